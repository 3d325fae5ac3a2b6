package capture

import "github.com/serroba/link-tracker/internal/tracking"

// Trigger names the path that claimed the terminal transition.
type Trigger string

const (
	TriggerNone          Trigger = ""
	TriggerDeviceSuccess Trigger = "device_success"
	TriggerDeviceFailure Trigger = "device_failure"
	TriggerDeadline      Trigger = "deadline"
)

// Status is the terminal state shown to the visitor.
type Status string

const (
	StatusInvalidLink Status = "invalid_link"
	StatusRedirect    Status = "redirect"
	StatusDone        Status = "done"
)

// Message returns the neutral status text displayed on the tracking page.
func (s Status) Message() string {
	switch s {
	case StatusInvalidLink:
		return "Invalid link"
	case StatusRedirect:
		return "Redirecting…"
	default:
		return "Loading complete."
	}
}

// Outcome is the result of a visit's terminal transition.
type Outcome struct {
	Status      Status
	Destination string // set only for StatusRedirect
	Trigger     Trigger
	Source      tracking.Source // source of the record written by the winning path, if any
}

// Message returns the status text for this outcome. A visit that stays on
// the page after recording a device fix tells the visitor it can be closed.
func (o Outcome) Message() string {
	if o.Status == StatusDone && o.Source == tracking.SourceGPS {
		return "Location captured. You may close this tab."
	}

	return o.Status.Message()
}

// Navigator performs the terminal navigation of a visit. It is invoked exactly once.
type Navigator interface {
	Navigate(outcome Outcome)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(outcome Outcome)

func (f NavigatorFunc) Navigate(outcome Outcome) {
	f(outcome)
}
