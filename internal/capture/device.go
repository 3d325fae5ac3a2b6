package capture

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPermissionDenied    = errors.New("device geolocation permission denied")
	ErrPositionUnavailable = errors.New("device position unavailable")
	ErrDeviceTimeout       = errors.New("device geolocation timed out")
	ErrUnsupported         = errors.New("device geolocation unsupported")
)

// Position is a device-level fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64  // meters
	Altitude  *float64 // nil when the device does not report it
}

// DeviceOptions configures a single position request.
type DeviceOptions struct {
	HighAccuracy bool
	MaximumAge   time.Duration // 0 disables cached fixes
	Timeout      time.Duration
}

// DeviceLocator obtains a single position fix from the visitor's device.
// Failures are reported with ErrPermissionDenied, ErrPositionUnavailable,
// ErrDeviceTimeout or ErrUnsupported.
type DeviceLocator interface {
	Locate(ctx context.Context, opts DeviceOptions) (*Position, error)
}

// DeviceError maps a browser failure code to its error.
// Unknown codes are treated as an unavailable position.
func DeviceError(code string) error {
	switch code {
	case "denied", "permission_denied", "1":
		return ErrPermissionDenied
	case "timeout", "3":
		return ErrDeviceTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return ErrPositionUnavailable
	}
}
