package effects

import (
	"time"

	"github.com/xaionaro-go/fxpipeline/transform"
)

// Observer gets notified about every transform applied to a frame.
type Observer interface {
	ObserveTransform(kind transform.Kind, duration time.Duration, passedThrough bool)
}

type nopObserver struct{}

func (nopObserver) ObserveTransform(transform.Kind, time.Duration, bool) {}
