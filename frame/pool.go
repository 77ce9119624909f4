package frame

import (
	"github.com/xaionaro-go/fxpipeline/pool"
)

// Pool keeps the pixel buffers of released frames for reuse.
var Pool = pool.NewPool(
	func() *Frame { return &Frame{} },
	func(f *Frame) {
		f.Image = nil
		f.Timestamp = 0
	},
)
