package capture

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid capture config")

// Config holds the timing policy of a capture.
type Config struct {
	// Deadline bounds the wait for the device locator before falling back.
	Deadline time.Duration
	// DeviceTimeout is handed to the device locator; it must be shorter than Deadline.
	DeviceTimeout time.Duration
	// IPTimeout bounds the IP geolocation lookup.
	IPTimeout time.Duration
	// ResolveTimeout bounds the link lookup.
	ResolveTimeout time.Duration
	// PersistTimeout bounds each store write (hit increment, location record).
	PersistTimeout time.Duration
	// LateWindow is how long after Deadline a late device result is still accepted.
	LateWindow time.Duration
}

// DefaultConfig returns the production timing policy.
func DefaultConfig() Config {
	return Config{
		Deadline:       6 * time.Second,
		DeviceTimeout:  5 * time.Second,
		IPTimeout:      5 * time.Second,
		ResolveTimeout: 3 * time.Second,
		PersistTimeout: 3 * time.Second,
		LateWindow:     30 * time.Second,
	}
}

// Validate checks that every bound is positive, that the device timeout
// expires before the deadline and that no lookup outlasts it.
func (c Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"deadline":        c.Deadline,
		"device timeout":  c.DeviceTimeout,
		"ip timeout":      c.IPTimeout,
		"resolve timeout": c.ResolveTimeout,
		"persist timeout": c.PersistTimeout,
		"late window":     c.LateWindow,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}

	if c.DeviceTimeout >= c.Deadline {
		return fmt.Errorf("%w: device timeout %s must be shorter than deadline %s",
			ErrInvalidConfig, c.DeviceTimeout, c.Deadline)
	}

	// The winning path waits for both lookups before dispatching.
	if c.IPTimeout > c.Deadline {
		return fmt.Errorf("%w: ip timeout %s exceeds deadline %s", ErrInvalidConfig, c.IPTimeout, c.Deadline)
	}

	if c.ResolveTimeout > c.Deadline {
		return fmt.Errorf("%w: resolve timeout %s exceeds deadline %s", ErrInvalidConfig, c.ResolveTimeout, c.Deadline)
	}

	return nil
}
