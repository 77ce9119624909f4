// Package wsbroadcast is a sink that pushes every processed frame as a JPEG
// to all connected WebSocket viewers.
package wsbroadcast

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	"github.com/xaionaro-go/fxpipeline/frame"
	"github.com/xaionaro-go/fxpipeline/helpers/closuresignaler"
	"github.com/xaionaro-go/fxpipeline/logger"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

const (
	DefaultJPEGQuality = 80
	DefaultSendQueue   = 2
	writeTimeout       = 5 * time.Second
)

type Hub struct {
	*closuresignaler.ClosureSignaler
	JPEGQuality int
	SendQueue   int

	Upgrader websocket.Upgrader

	locker  xsync.Mutex
	clients map[*client]struct{}

	framesSent    atomic.Uint64
	framesSkipped atomic.Uint64
}

var _ scheduler.Sink = (*Hub)(nil)

func New() *Hub {
	return &Hub{
		ClosureSignaler: closuresignaler.New(),
		JPEGQuality:     DefaultJPEGQuality,
		SendQueue:       DefaultSendQueue,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1 << 16,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
}

func (h *Hub) String() string {
	return "WSBroadcast"
}

// ClientCount returns the amount of currently connected viewers.
func (h *Hub) ClientCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &h.locker, func() int {
		return len(h.clients)
	})
}

// SendFrame encodes the frame and queues it for every viewer. A viewer that
// is still busy with the previous frames does not get this one.
func (h *Hub) SendFrame(
	ctx context.Context,
	f *frame.Frame,
) (_err error) {
	if h.IsClosed() {
		return fmt.Errorf("the hub is closed")
	}
	if h.ClientCount(ctx) == 0 {
		return nil
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.Image, imaging.JPEG, imaging.JPEGQuality(h.JPEGQuality)); err != nil {
		return fmt.Errorf("unable to encode the frame as JPEG: %w", err)
	}
	msg := buf.Bytes()

	h.locker.Do(ctx, func() {
		for c := range h.clients {
			select {
			case c.send <- msg:
				h.framesSent.Inc()
			default:
				h.framesSkipped.Inc()
			}
		}
	})
	return nil
}

// ServeHTTP upgrades the request to a WebSocket and keeps the viewer
// registered until the connection breaks or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.IsClosed() {
		http.Error(w, "closed", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf(ctx, "unable to upgrade the connection from %s: %v", r.RemoteAddr, err)
		return
	}

	c := newClient(conn, h.SendQueue)
	h.register(ctx, c)
	ctx = context.WithoutCancel(ctx)
	observability.Go(ctx, func(ctx context.Context) {
		defer h.unregister(ctx, c)
		c.writeLoop(ctx, h.CloseChan())
	})
	observability.Go(ctx, func(ctx context.Context) {
		c.readLoop(ctx)
	})
}

func (h *Hub) register(ctx context.Context, c *client) {
	count := xsync.DoR1(ctx, &h.locker, func() int {
		h.clients[c] = struct{}{}
		return len(h.clients)
	})
	logger.Infof(ctx, "viewer %s connected, total: %d", c.conn.RemoteAddr(), count)
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	count := xsync.DoR1(ctx, &h.locker, func() int {
		delete(h.clients, c)
		return len(h.clients)
	})
	c.close()
	logger.Infof(ctx, "viewer %s disconnected, total: %d", c.conn.RemoteAddr(), count)
}

type Stats struct {
	FramesSent    uint64
	FramesSkipped uint64
}

func (h *Hub) GetStats() Stats {
	return Stats{
		FramesSent:    h.framesSent.Load(),
		FramesSkipped: h.framesSkipped.Load(),
	}
}

// Close disconnects all the viewers.
func (h *Hub) Close(ctx context.Context) error {
	h.ClosureSignaler.Close(ctx)
	clients := xsync.DoR1(ctx, &h.locker, func() []*client {
		result := make([]*client, 0, len(h.clients))
		for c := range h.clients {
			result = append(result, c)
		}
		return result
	})
	for _, c := range clients {
		c.close()
	}
	return nil
}
