// Package framebridge converts between libav frames and the RGBA frames the
// effects work on.
package framebridge

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/internal"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/scaler"
	"github.com/xaionaro-go/xsync"
)

// Bridge is safe for concurrent use; conversions are serialized because the
// scale contexts and the scratch frame are shared.
type Bridge struct {
	TimeBase astiav.Rational

	locker    xsync.Mutex
	toRGBA    *scaler.Software
	fromRGBA  *scaler.Software
	rgbaFrame *astiav.Frame
}

func New(ctx context.Context, timeBase astiav.Rational) *Bridge {
	rgbaFrame := astiav.AllocFrame()
	internal.SetFinalizerFree(ctx, rgbaFrame)
	return &Bridge{
		TimeBase:  timeBase,
		rgbaFrame: rgbaFrame,
	}
}

func (b *Bridge) String() string {
	return fmt.Sprintf("FrameBridge(%d/%d)", b.TimeBase.Num(), b.TimeBase.Den())
}

// FromAVFrame returns a new RGBA frame with the same picture and
// resolution; the caller owns it.
func (b *Bridge) FromAVFrame(
	ctx context.Context,
	src *astiav.Frame,
) (_ret *frame.Frame, _err error) {
	logger.Tracef(ctx, "FromAVFrame")
	defer func() { logger.Tracef(ctx, "/FromAVFrame: %v", _err) }()
	return xsync.DoA2R2(ctx, &b.locker, b.fromAVFrame, ctx, src)
}

func (b *Bridge) fromAVFrame(
	ctx context.Context,
	src *astiav.Frame,
) (*frame.Frame, error) {
	res := frame.Resolution{Width: uint32(src.Width()), Height: uint32(src.Height())}
	if res.Width == 0 || res.Height == 0 {
		return nil, fmt.Errorf("the source frame has no picture (%s)", res)
	}

	rgba := src
	if src.PixelFormat() != astiav.PixelFormatRgba {
		if err := b.prepareRGBAFrame(res); err != nil {
			return nil, err
		}
		s, err := b.getScaler(ctx, &b.toRGBA, res, src.PixelFormat(), res, astiav.PixelFormatRgba)
		if err != nil {
			return nil, err
		}
		if err := s.ScaleFrame(ctx, src, b.rgbaFrame); err != nil {
			return nil, err
		}
		rgba = b.rgbaFrame
	}

	// libav planes are padded, so the picture is decoded separately and then
	// copied into a tightly packed frame
	var img image.RGBA
	if err := rgba.Data().ToImage(&img); err != nil {
		return nil, fmt.Errorf("unable to convert the frame into an RGBA image: %w", err)
	}
	if img.Rect.Dx() < int(res.Width) || img.Rect.Dy() < int(res.Height) {
		return nil, fmt.Errorf("the decoded picture %v is smaller than %s", img.Rect, res)
	}
	f := frame.New(int(res.Width), int(res.Height), b.PTSToDuration(src.Pts()))
	rowLen := 4 * f.Width()
	for y := 0; y < f.Height(); y++ {
		srcOff := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(f.Image.Pix[y*f.Image.Stride:][:rowLen], img.Pix[srcOff:][:rowLen])
	}
	return f, nil
}

// ToAVFrame renders the frame into dst using the given pixel format; dst's
// buffer is (re)allocated.
func (b *Bridge) ToAVFrame(
	ctx context.Context,
	f *frame.Frame,
	dst *astiav.Frame,
	pixFmt astiav.PixelFormat,
) (_err error) {
	logger.Tracef(ctx, "ToAVFrame")
	defer func() { logger.Tracef(ctx, "/ToAVFrame: %v", _err) }()
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}
	return xsync.DoR1(ctx, &b.locker, func() error {
		return b.toAVFrame(ctx, f, dst, pixFmt)
	})
}

func (b *Bridge) toAVFrame(
	ctx context.Context,
	f *frame.Frame,
	dst *astiav.Frame,
	pixFmt astiav.PixelFormat,
) error {
	res := f.Resolution()
	dst.Unref()
	dst.SetWidth(int(res.Width))
	dst.SetHeight(int(res.Height))
	dst.SetPixelFormat(pixFmt)
	if err := dst.AllocBuffer(0); err != nil {
		return fmt.Errorf("unable to allocate the frame buffer: %w", err)
	}
	dst.SetPts(b.DurationToPTS(f.Timestamp))

	if pixFmt == astiav.PixelFormatRgba {
		if err := dst.Data().FromImage(f.Image); err != nil {
			return fmt.Errorf("unable to copy the image into the frame: %w", err)
		}
		return nil
	}

	if err := b.prepareRGBAFrame(res); err != nil {
		return err
	}
	if err := b.rgbaFrame.Data().FromImage(f.Image); err != nil {
		return fmt.Errorf("unable to copy the image into the frame: %w", err)
	}
	s, err := b.getScaler(ctx, &b.fromRGBA, res, astiav.PixelFormatRgba, res, pixFmt)
	if err != nil {
		return err
	}
	return s.ScaleFrame(ctx, b.rgbaFrame, dst)
}

func (b *Bridge) prepareRGBAFrame(res frame.Resolution) error {
	if b.rgbaFrame.Width() == int(res.Width) &&
		b.rgbaFrame.Height() == int(res.Height) &&
		b.rgbaFrame.PixelFormat() == astiav.PixelFormatRgba {
		return nil
	}
	b.rgbaFrame.Unref()
	b.rgbaFrame.SetWidth(int(res.Width))
	b.rgbaFrame.SetHeight(int(res.Height))
	b.rgbaFrame.SetPixelFormat(astiav.PixelFormatRgba)
	if err := b.rgbaFrame.AllocBuffer(0); err != nil {
		return fmt.Errorf("unable to allocate an RGBA frame buffer: %w", err)
	}
	return nil
}

func (b *Bridge) getScaler(
	ctx context.Context,
	cache **scaler.Software,
	src frame.Resolution,
	srcPixFmt astiav.PixelFormat,
	dst frame.Resolution,
	dstPixFmt astiav.PixelFormat,
) (*scaler.Software, error) {
	if *cache != nil && (*cache).Matches(src, srcPixFmt, dst, dstPixFmt) {
		return *cache, nil
	}
	if *cache != nil {
		if err := (*cache).Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the scaler %s: %v", *cache, err)
		}
	}
	s, err := scaler.NewSoftware(ctx, src, srcPixFmt, dst, dstPixFmt)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "new scaler: %s", s)
	*cache = s
	return s, nil
}

func (b *Bridge) PTSToDuration(pts int64) time.Duration {
	return PTSToDuration(pts, b.TimeBase)
}

func (b *Bridge) DurationToPTS(d time.Duration) int64 {
	return DurationToPTS(d, b.TimeBase)
}

func PTSToDuration(pts int64, timeBase astiav.Rational) time.Duration {
	if pts == astiav.NoPtsValue || timeBase.Den() == 0 || pts < 0 {
		return 0
	}
	return time.Duration(pts) * time.Second * time.Duration(timeBase.Num()) / time.Duration(timeBase.Den())
}

func DurationToPTS(d time.Duration, timeBase astiav.Rational) int64 {
	if timeBase.Num() == 0 {
		return 0
	}
	return int64(d * time.Duration(timeBase.Den()) / (time.Second * time.Duration(timeBase.Num())))
}
