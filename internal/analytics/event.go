package analytics

import "time"

const (
	TopicVisitDispatched  = "visit.dispatched"
	TopicLocationRecorded = "location.recorded"
)

// VisitDispatchedEvent is emitted once per visit when the terminal transition happens.
type VisitDispatchedEvent struct {
	VisitID      string    `json:"visitId"`
	LinkID       string    `json:"linkId"`
	Trigger      string    `json:"trigger"`
	Status       string    `json:"status"`
	Source       string    `json:"source,omitempty"` // empty when no record was written
	LatencyMS    int64     `json:"latencyMs"`
	DispatchedAt time.Time `json:"dispatchedAt"`
}

// LocationRecordedEvent is emitted for every location record written.
type LocationRecordedEvent struct {
	VisitID    string    `json:"visitId"`
	LinkID     string    `json:"linkId"`
	Source     string    `json:"source"`
	Late       bool      `json:"late"` // written after the visit was dispatched
	Country    string    `json:"country,omitempty"`
	City       string    `json:"city,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
