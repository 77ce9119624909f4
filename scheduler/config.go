package scheduler

import (
	"fmt"
)

type Config struct {
	Policy            Policy `yaml:"policy"`
	MaxInFlight       int    `yaml:"max_in_flight"`
	ReorderBufferSize int    `yaml:"reorder_buffer_size"`
}

func DefaultConfig() Config {
	return Config{
		Policy:            DefaultPolicy,
		MaxInFlight:       4,
		ReorderBufferSize: 8,
	}
}

func (cfg Config) Validate() error {
	switch cfg.Policy {
	case PolicyDropWhileBusy:
	case PolicyReorder:
		if cfg.MaxInFlight < 1 {
			return fmt.Errorf("max_in_flight must be positive, but is %d", cfg.MaxInFlight)
		}
		if cfg.ReorderBufferSize < 0 {
			return fmt.Errorf("reorder_buffer_size must not be negative, but is %d", cfg.ReorderBufferSize)
		}
	default:
		return fmt.Errorf("invalid policy: %s", cfg.Policy)
	}
	return nil
}

// maxInFlight is the amount of frames that may be processed concurrently.
func (cfg Config) maxInFlight() int {
	if cfg.Policy == PolicyDropWhileBusy {
		return 1
	}
	return cfg.MaxInFlight
}
