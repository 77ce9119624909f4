package framebridge

import (
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/logger"
)

func testCtx(t *testing.T) context.Context {
	ctx := logger.CtxWithLogrus(context.Background(), logger.LevelTrace)
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

func TestPTSConversion(t *testing.T) {
	tb := astiav.NewRational(1, 90000)
	assert.Equal(t, time.Second, PTSToDuration(90000, tb))
	assert.Equal(t, int64(45000), DurationToPTS(500*time.Millisecond, tb))
	assert.Equal(t, time.Duration(0), PTSToDuration(astiav.NoPtsValue, tb))
	assert.Equal(t, time.Duration(0), PTSToDuration(10, astiav.NewRational(1, 0)))

	tb = astiav.NewRational(1, 30)
	assert.Equal(t, 2*time.Second, PTSToDuration(60, tb))
	assert.Equal(t, int64(3), DurationToPTS(100*time.Millisecond, tb))
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestRoundTripYUV420P(t *testing.T) {
	ctx := testCtx(t)
	b := New(ctx, astiav.NewRational(1, 1000))

	const w, h = 64, 48
	in := frame.New(w, h, 1500*time.Millisecond)
	defer in.Release()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 200, G: 40, B: 40, A: 255}
			if x >= w/2 {
				c = color.RGBA{R: 30, G: 30, B: 220, A: 255}
			}
			in.Image.SetRGBA(x, y, c)
		}
	}

	av := astiav.AllocFrame()
	defer av.Free()
	require.NoError(t, b.ToAVFrame(ctx, in, av, astiav.PixelFormatYuv420P))
	assert.Equal(t, w, av.Width())
	assert.Equal(t, h, av.Height())
	assert.Equal(t, astiav.PixelFormatYuv420P, av.PixelFormat())
	assert.Equal(t, int64(1500), av.Pts())

	out, err := b.FromAVFrame(ctx, av)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, in.Resolution(), out.Resolution())
	assert.Equal(t, in.Timestamp, out.Timestamp)
	for _, p := range [][2]int{{8, 8}, {w - 8, h - 8}} {
		want, got := in.At(p[0], p[1]), out.At(p[0], p[1])
		assert.LessOrEqual(t, absDiff(want.R, got.R), 12, "R at %v", p)
		assert.LessOrEqual(t, absDiff(want.G, got.G), 12, "G at %v", p)
		assert.LessOrEqual(t, absDiff(want.B, got.B), 12, "B at %v", p)
		assert.Equal(t, uint8(255), got.A)
	}
}

func TestRGBAIsCopiedDirectly(t *testing.T) {
	ctx := testCtx(t)
	b := New(ctx, astiav.NewRational(1, 1000))

	in := frame.New(16, 16, 0)
	defer in.Release()
	in.Image.SetRGBA(3, 4, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	av := astiav.AllocFrame()
	defer av.Free()
	require.NoError(t, b.ToAVFrame(ctx, in, av, astiav.PixelFormatRgba))

	out, err := b.FromAVFrame(ctx, av)
	require.NoError(t, err)
	defer out.Release()
	assert.True(t, in.Equal(out))
	assert.Nil(t, b.toRGBA)
	assert.Nil(t, b.fromRGBA)
}

func TestFromEmptyAVFrame(t *testing.T) {
	ctx := testCtx(t)
	b := New(ctx, astiav.NewRational(1, 1000))

	av := astiav.AllocFrame()
	defer av.Free()
	_, err := b.FromAVFrame(ctx, av)
	require.Error(t, err)
}
