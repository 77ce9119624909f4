// Package closuresignaler lets a component announce that it was closed to
// everybody who is waiting on it.
package closuresignaler

import (
	"context"
	"sync"

	"github.com/xaionaro-go/fxpipeline/logger"
)

type ClosureSignaler struct {
	closeOnce sync.Once
	c         chan struct{}
}

func New() *ClosureSignaler {
	return &ClosureSignaler{
		c: make(chan struct{}),
	}
}

// CloseChan is closed once Close is called.
func (c *ClosureSignaler) CloseChan() <-chan struct{} {
	return c.c
}

// Close is idempotent.
func (c *ClosureSignaler) Close(ctx context.Context) {
	c.closeOnce.Do(func() {
		logger.Debugf(ctx, "signaling closure")
		close(c.c)
	})
}

func (c *ClosureSignaler) IsClosed() bool {
	select {
	case <-c.c:
		return true
	default:
		return false
	}
}
