//go:build !debug_trace
// +build !debug_trace

package logger

import (
	"context"
)

// Tracef is a no-op unless built with the debug_trace tag: per-frame
// tracing is far too chatty for a real-time pipeline.
func Tracef(ctx context.Context, format string, args ...any) {}
