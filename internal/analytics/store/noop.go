package store

import (
	"context"

	"github.com/serroba/link-tracker/internal/analytics"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of analytics.StatsStore. It logs events
// and reports empty statistics.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op analytics store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveVisitDispatched(_ context.Context, event *analytics.VisitDispatchedEvent) error {
	n.logger.Info("visit dispatched event received",
		zap.String("visit", event.VisitID),
		zap.String("link", event.LinkID),
		zap.String("trigger", event.Trigger),
		zap.String("status", event.Status),
		zap.Int64("latencyMs", event.LatencyMS),
	)

	return nil
}

func (n *Noop) SaveLocationRecorded(_ context.Context, event *analytics.LocationRecordedEvent) error {
	n.logger.Info("location recorded event received",
		zap.String("visit", event.VisitID),
		zap.String("link", event.LinkID),
		zap.String("source", event.Source),
		zap.Bool("late", event.Late),
	)

	return nil
}

func (n *Noop) LinkStats(_ context.Context, _ string) (*analytics.LinkStats, error) {
	return &analytics.LinkStats{
		Triggers:  map[string]int64{},
		Sources:   map[string]int64{},
		Countries: map[string]int64{},
	}, nil
}

func (n *Noop) DeleteLinkStats(_ context.Context, _ string) error {
	return nil
}

var _ analytics.StatsStore = (*Noop)(nil)
