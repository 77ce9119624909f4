// Package rawvideo is a sink that writes every frame as raw planar video,
// ready to be piped into ffplay/ffmpeg with "-f rawvideo".
package rawvideo

import (
	"context"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/framebridge"
	"github.com/xaionaro-go/fxpipeline/internal"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/xsync"
)

const DefaultPixelFormat = astiav.PixelFormatYuv420P

type Sink struct {
	PixelFormat astiav.PixelFormat

	locker  xsync.Mutex
	writer  io.Writer
	bridge  *framebridge.Bridge
	avFrame *astiav.Frame
	buf     []byte
	res     frame.Resolution
}

var _ scheduler.Sink = (*Sink)(nil)

func New(ctx context.Context, w io.Writer) *Sink {
	avFrame := astiav.AllocFrame()
	internal.SetFinalizerFree(ctx, avFrame)
	return &Sink{
		PixelFormat: DefaultPixelFormat,
		writer:      w,
		bridge:      framebridge.New(ctx, astiav.NewRational(1, 1000)),
		avFrame:     avFrame,
	}
}

func (s *Sink) String() string {
	return fmt.Sprintf("RawVideo(%s)", s.PixelFormat)
}

// SendFrame writes a single picture. All the frames must have the same
// resolution, since the raw stream has no headers.
func (s *Sink) SendFrame(
	ctx context.Context,
	f *frame.Frame,
) (_err error) {
	logger.Tracef(ctx, "SendFrame")
	defer func() { logger.Tracef(ctx, "/SendFrame: %v", _err) }()
	return xsync.DoR1(ctx, &s.locker, func() error {
		return s.sendFrame(ctx, f)
	})
}

func (s *Sink) sendFrame(
	ctx context.Context,
	f *frame.Frame,
) error {
	res := f.Resolution()
	switch {
	case s.res == frame.Resolution{}:
		s.res = res
		logger.Infof(ctx, "raw video stream: %s %s", res, s.PixelFormat)
	case s.res != res:
		return fmt.Errorf("the resolution changed from %s to %s mid-stream", s.res, res)
	}

	if err := s.bridge.ToAVFrame(ctx, f, s.avFrame, s.PixelFormat); err != nil {
		return fmt.Errorf("unable to convert the frame: %w", err)
	}
	size, err := s.avFrame.ImageBufferSize(1)
	if err != nil {
		return fmt.Errorf("unable to get the image buffer size: %w", err)
	}
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	s.buf = s.buf[:size]
	n, err := s.avFrame.ImageCopyToBuffer(s.buf, 1)
	if err != nil {
		return fmt.Errorf("unable to copy the image: %w", err)
	}
	if _, err := s.writer.Write(s.buf[:n]); err != nil {
		return fmt.Errorf("unable to write the frame: %w", err)
	}
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	if c, ok := s.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
