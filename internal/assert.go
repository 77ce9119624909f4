// Package internal contains helpers shared by the packages of this module
// that are not a part of its API.
package internal

import (
	"context"

	"github.com/xaionaro-go/fxpipeline/logger"
)

// Assert panics (through the context logger, so the entry is not lost) if
// the invariant does not hold.
func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	logger.Panic(ctx, "assertion failed", extraArgs)
}
