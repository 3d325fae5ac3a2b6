package capture

import (
	"context"
	"sync/atomic"
)

type deviceReport struct {
	position *Position
	err      error
}

// DeviceRelay is a DeviceLocator fed by a report arriving from elsewhere,
// typically the visitor's browser posting its geolocation result.
// Only the first report is kept.
type DeviceRelay struct {
	reports  chan deviceReport
	reported atomic.Bool
}

// NewDeviceRelay creates an empty relay.
func NewDeviceRelay() *DeviceRelay {
	return &DeviceRelay{reports: make(chan deviceReport, 1)}
}

// ReportPosition delivers a successful fix. It returns false if a report was
// already delivered.
func (r *DeviceRelay) ReportPosition(pos Position) bool {
	return r.report(deviceReport{position: &pos})
}

// ReportFailure delivers a failure. It returns false if a report was already delivered.
func (r *DeviceRelay) ReportFailure(err error) bool {
	if err == nil {
		err = ErrPositionUnavailable
	}

	return r.report(deviceReport{err: err})
}

func (r *DeviceRelay) report(rep deviceReport) bool {
	if !r.reported.CompareAndSwap(false, true) {
		return false
	}

	r.reports <- rep

	return true
}

// Locate waits for the report. The device enforces opts.Timeout on its own side.
func (r *DeviceRelay) Locate(ctx context.Context, _ DeviceOptions) (*Position, error) {
	select {
	case rep := <-r.reports:
		return rep.position, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ DeviceLocator = (*DeviceRelay)(nil)
