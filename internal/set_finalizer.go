package internal

import (
	"context"
	"runtime"

	"github.com/xaionaro-go/fxpipeline/logger"
)

// SetFinalizerFree makes sure a libav-backed object is freed even if
// nobody calls Free on it explicitly.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Debugf(ctx, "freeing %T", freer)
		freer.Free()
	})
}
