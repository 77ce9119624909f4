package detector

import (
	"errors"
)

var (
	ErrClosed              = errors.New("the detector service is closed")
	ErrNoService           = errors.New("no detector service is configured")
	ErrDuplicateResolution = errors.New("the detection was already resolved")
)

// ErrPanic is returned when a detector implementation panicked.
type ErrPanic struct {
	Value any
}

func (e ErrPanic) Error() string {
	return "the detector panicked: " + sprint(e.Value)
}
