package analytics

import (
	"context"

	"github.com/serroba/link-tracker/internal/messaging"
)

// Handlers builds the typed message handlers that feed a Store.
type Handlers struct {
	store Store
}

// NewHandlers creates handlers persisting into store.
func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// VisitDispatched persists a dispatched visit.
func (h *Handlers) VisitDispatched() messaging.Handler[VisitDispatchedEvent] {
	return func(ctx context.Context, event *VisitDispatchedEvent) error {
		return h.store.SaveVisitDispatched(ctx, event)
	}
}

// LocationRecorded persists a recorded location.
func (h *Handlers) LocationRecorded() messaging.Handler[LocationRecordedEvent] {
	return func(ctx context.Context, event *LocationRecordedEvent) error {
		return h.store.SaveLocationRecorded(ctx, event)
	}
}
