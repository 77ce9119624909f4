package logger

import (
	"context"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
)

func FromCtx(ctx context.Context) logger.Logger {
	return logger.FromCtx(ctx)
}

func CtxWithLogger(ctx context.Context, l logger.Logger) context.Context {
	return logger.CtxWithLogger(ctx, l)
}

// CtxWithLogrus builds a logrus-backed logger of the given level, makes it
// the process-wide default and puts it into the returned context.
//
// It is what both the CLI and the tests use to get logging going.
func CtxWithLogrus(ctx context.Context, level Level) context.Context {
	l := logrus.Default().WithLevel(level)
	SetDefault(func() Logger {
		return l
	})
	return CtxWithLogger(ctx, l)
}

// WithField returns a context whose logger attaches the given field to
// every entry.
func WithField(ctx context.Context, key string, value any) context.Context {
	return belt.WithField(ctx, key, value)
}

// Flush flushes everything buffered by the observability tools of the context.
func Flush(ctx context.Context) {
	belt.Flush(ctx)
}
