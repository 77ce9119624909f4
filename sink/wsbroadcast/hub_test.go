package wsbroadcast

import (
	"bytes"
	"context"
	"image/color"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/facebookincubator/go-belt"
	"github.com/gorilla/websocket"
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

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendFrameWithoutViewers(t *testing.T) {
	ctx := testCtx(t)
	h := New()
	defer h.Close(ctx)

	f := frame.New(64, 48, 0)
	defer f.Release()
	require.NoError(t, h.SendFrame(ctx, f))
	assert.Zero(t, h.GetStats().FramesSent)
}

func TestSendFrameBroadcast(t *testing.T) {
	ctx := testCtx(t)
	h := New()
	defer h.Close(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	viewers := []*websocket.Conn{dial(t, srv), dial(t, srv)}
	require.Eventually(t, func() bool {
		return h.ClientCount(ctx) == len(viewers)
	}, time.Second, time.Millisecond)

	f := frame.New(64, 48, time.Second)
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			f.Image.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	require.NoError(t, h.SendFrame(ctx, f))
	// the hub must not keep references to the frame
	f.Release()

	for _, conn := range viewers {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		msgType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.BinaryMessage, msgType)

		img, err := imaging.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 64, img.Bounds().Dx())
		assert.Equal(t, 48, img.Bounds().Dy())
		r, g, b, _ := img.At(32, 24).RGBA()
		assert.Greater(t, r>>8, uint32(200))
		assert.Less(t, g>>8, uint32(60))
		assert.Less(t, b>>8, uint32(60))
	}
	assert.Equal(t, uint64(2), h.GetStats().FramesSent)
}

func TestSlowViewerSkipsFrames(t *testing.T) {
	ctx := testCtx(t)
	h := New()
	h.SendQueue = 1
	defer h.Close(ctx)

	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	h.clients[c] = struct{}{}

	f := frame.New(16, 16, 0)
	defer f.Release()
	require.NoError(t, h.SendFrame(ctx, f))
	require.NoError(t, h.SendFrame(ctx, f))

	stats := h.GetStats()
	assert.Equal(t, uint64(1), stats.FramesSent)
	assert.Equal(t, uint64(1), stats.FramesSkipped)
	delete(h.clients, c)
}

func TestViewerDisconnect(t *testing.T) {
	ctx := testCtx(t)
	h := New()
	defer h.Close(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool {
		return h.ClientCount(ctx) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return h.ClientCount(ctx) == 0
	}, 2*time.Second, time.Millisecond)
}

func TestClose(t *testing.T) {
	ctx := testCtx(t)
	h := New()

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool {
		return h.ClientCount(ctx) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, h.Close(ctx))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	f := frame.New(8, 8, 0)
	defer f.Release()
	require.Error(t, h.SendFrame(ctx, f))

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
}
