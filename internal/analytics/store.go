package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveVisitDispatched(ctx context.Context, event *VisitDispatchedEvent) error
	SaveLocationRecorded(ctx context.Context, event *LocationRecordedEvent) error
}

// LinkStats aggregates visit outcomes for one link.
type LinkStats struct {
	Visits      int64            `json:"visits"`
	Redirected  int64            `json:"redirected"`
	Triggers    map[string]int64 `json:"triggers"`
	Sources     map[string]int64 `json:"sources"`
	LateRecords int64            `json:"lateRecords"`
	Countries   map[string]int64 `json:"countries"`
}

// StatsReader reads aggregated statistics for a link.
type StatsReader interface {
	LinkStats(ctx context.Context, linkID string) (*LinkStats, error)
	DeleteLinkStats(ctx context.Context, linkID string) error
}

// StatsStore both aggregates events and serves the aggregates.
type StatsStore interface {
	Store
	StatsReader
}
