package scheduler

import (
	"fmt"
	"strings"
)

// Policy decides what happens to frames captured while earlier frames are
// still being processed.
type Policy int

const (
	PolicyUndefined = Policy(iota)

	// PolicyDropWhileBusy processes at most one frame at a time; frames
	// captured meanwhile are dropped.
	PolicyDropWhileBusy

	// PolicyReorder processes up to MaxInFlight frames concurrently and
	// restores the capture order with a bounded reorder buffer.
	PolicyReorder

	EndOfPolicy
)

const DefaultPolicy = PolicyDropWhileBusy

func (p Policy) String() string {
	switch p {
	case PolicyUndefined:
		return "undefined"
	case PolicyDropWhileBusy:
		return "drop_while_busy"
	case PolicyReorder:
		return "reorder"
	default:
		return fmt.Sprintf("unknown_policy_%d", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPolicy, nil
	}
	for p := PolicyUndefined + 1; p < EndOfPolicy; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PolicyUndefined, fmt.Errorf("unknown scheduling policy '%s'", s)
}

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
