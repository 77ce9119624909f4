package scaler

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/helpers/closuresignaler"
	"github.com/xaionaro-go/fxpipeline/internal"
	"github.com/xaionaro-go/fxpipeline/logger"
)

// Software is a libswscale-backed Scaler.
type Software struct {
	*astiav.SoftwareScaleContext
	*closuresignaler.ClosureSignaler
}

var _ Scaler = (*Software)(nil)

func NewSoftware(
	ctx context.Context,
	src frame.Resolution,
	srcPixFmt astiav.PixelFormat,
	dst frame.Resolution,
	dstPixFmt astiav.PixelFormat,
	opts ...astiav.SoftwareScaleContextFlag,
) (*Software, error) {
	if src.Width == 0 || src.Height == 0 || dst.Width == 0 || dst.Height == 0 {
		return nil, fmt.Errorf("invalid resolutions: %s -> %s", src, dst)
	}
	if len(opts) == 0 {
		opts = []astiav.SoftwareScaleContextFlag{astiav.SoftwareScaleContextFlagBilinear}
	}
	swSCtx, err := astiav.CreateSoftwareScaleContext(
		int(src.Width),
		int(src.Height),
		srcPixFmt,
		int(dst.Width),
		int(dst.Height),
		dstPixFmt,
		astiav.NewSoftwareScaleContextFlags(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a software scale context: %w", err)
	}
	internal.SetFinalizerFree(ctx, swSCtx)
	return &Software{
		SoftwareScaleContext: swSCtx,
		ClosureSignaler:      closuresignaler.New(),
	}, nil
}

func (s *Software) String() string {
	return fmt.Sprintf(
		"SoftwareScaler(%s:%s -> %s:%s)",
		s.SourceResolution(), s.SourcePixelFormat(),
		s.DestinationResolution(), s.DestinationPixelFormat(),
	)
}

func (s *Software) Close(ctx context.Context) error {
	logger.Tracef(ctx, "Close")
	defer logger.Tracef(ctx, "/Close")
	s.ClosureSignaler.Close(ctx)
	return nil
}

func (s *Software) ScaleFrame(
	ctx context.Context,
	src *astiav.Frame,
	dst *astiav.Frame,
) (_err error) {
	logger.Tracef(ctx, "ScaleFrame")
	defer func() { logger.Tracef(ctx, "/ScaleFrame: %v", _err) }()
	if s.IsClosed() {
		return fmt.Errorf("scaler is closed")
	}
	if err := s.SoftwareScaleContext.ScaleFrame(src, dst); err != nil {
		return fmt.Errorf("unable to scale a frame: %w", err)
	}
	return nil
}

func (s *Software) SourceResolution() frame.Resolution {
	return frame.Resolution{
		Width:  uint32(s.SoftwareScaleContext.SourceWidth()),
		Height: uint32(s.SoftwareScaleContext.SourceHeight()),
	}
}

func (s *Software) SourcePixelFormat() astiav.PixelFormat {
	return s.SoftwareScaleContext.SourcePixelFormat()
}

func (s *Software) DestinationResolution() frame.Resolution {
	return frame.Resolution{
		Width:  uint32(s.SoftwareScaleContext.DestinationWidth()),
		Height: uint32(s.SoftwareScaleContext.DestinationHeight()),
	}
}

func (s *Software) DestinationPixelFormat() astiav.PixelFormat {
	return s.SoftwareScaleContext.DestinationPixelFormat()
}

// Matches reports whether the scaler converts exactly the given formats.
func (s *Software) Matches(
	src frame.Resolution,
	srcPixFmt astiav.PixelFormat,
	dst frame.Resolution,
	dstPixFmt astiav.PixelFormat,
) bool {
	return s.SourceResolution() == src &&
		s.SourcePixelFormat() == srcPixFmt &&
		s.DestinationResolution() == dst &&
		s.DestinationPixelFormat() == dstPixFmt
}
