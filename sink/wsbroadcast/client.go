package wsbroadcast

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xaionaro-go/fxpipeline/logger"
)

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, queueSize int) *client {
	if queueSize < 1 {
		queueSize = 1
	}
	return &client{
		conn: conn,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

func (c *client) writeLoop(
	ctx context.Context,
	hubClosed <-chan struct{},
) {
	for {
		select {
		case <-hubClosed:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeTimeout),
			)
			return
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				logger.Debugf(ctx, "unable to write to %s: %v", c.conn.RemoteAddr(), err)
				return
			}
		}
	}
}

// readLoop only drains the control frames; viewers never send anything
// meaningful.
func (c *client) readLoop(ctx context.Context) {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			logger.Tracef(ctx, "read from %s ended: %v", c.conn.RemoteAddr(), err)
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
