package scheduler

import (
	"fmt"
)

// State is the lifecycle stage of a captured frame.
type State int

const (
	StateCaptured = State(iota)
	StateQueued
	StateProcessing
	StateForwarded
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateCaptured:
		return "captured"
	case StateQueued:
		return "queued"
	case StateProcessing:
		return "processing"
	case StateForwarded:
		return "forwarded"
	case StateDropped:
		return "dropped"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}
