// Package pool provides a typed wrapper around sync.Pool.
package pool

import (
	"sync"
	"sync/atomic"
)

// ReuseMemory may be switched off to make use-after-release bugs visible
// (released items are then simply left to the GC).
var ReuseMemory = true

type Pool[T any] struct {
	sync.Pool
	ResetFunc func(*T)

	allocations atomic.Uint64
}

func NewPool[T any](
	allocFunc func() *T,
	resetFunc func(*T),
) *Pool[T] {
	p := &Pool[T]{
		ResetFunc: resetFunc,
	}
	p.Pool.New = func() any {
		p.allocations.Add(1)
		return allocFunc()
	}
	return p
}

func (p *Pool[T]) Get() *T {
	return p.Pool.Get().(*T)
}

func (p *Pool[T]) Put(items ...*T) {
	if !ReuseMemory {
		return
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		if p.ResetFunc != nil {
			p.ResetFunc(item)
		}
		p.Pool.Put(item)
	}
}

// Allocations returns how many items were allocated because the pool was
// empty.
func (p *Pool[T]) Allocations() uint64 {
	return p.allocations.Load()
}
