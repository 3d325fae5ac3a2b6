package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/serroba/link-tracker/internal/tracking"
)

type memoryLink struct {
	link      tracking.Link
	locations map[string]*tracking.LocationRecord // visitID -> record
}

// MemoryStore is an in-memory implementation of tracking.Repository.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[tracking.LinkID]*memoryLink
	now   func() time.Time
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithNow sets the time source used for server-assigned timestamps.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		links: make(map[tracking.LinkID]*memoryLink),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MemoryStore) CreateLink(_ context.Context, link *tracking.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *link
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = m.now().UTC()
	}

	link.CreatedAt = stored.CreatedAt

	m.links[link.ID] = &memoryLink{
		link:      stored,
		locations: make(map[string]*tracking.LocationRecord),
	}

	return nil
}

func (m *MemoryStore) GetLink(_ context.Context, id tracking.LinkID) (*tracking.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.links[id]
	if !ok {
		return nil, tracking.ErrNotFound
	}

	link := entry.link

	return &link, nil
}

func (m *MemoryStore) IncrementHits(_ context.Context, id tracking.LinkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.links[id]
	if !ok {
		return tracking.ErrNotFound
	}

	entry.link.HitCount++

	return nil
}

func (m *MemoryStore) SaveLocation(_ context.Context, id tracking.LinkID, record *tracking.LocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.links[id]
	if !ok {
		return tracking.ErrNotFound
	}

	if !record.Supersedes(entry.locations[record.VisitID]) {
		return nil
	}

	stored := *record
	stored.Timestamp = m.now().UTC()
	entry.locations[record.VisitID] = &stored

	return nil
}

func (m *MemoryStore) ListLinks(_ context.Context) ([]*tracking.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	links := make([]*tracking.Link, 0, len(m.links))

	for _, entry := range m.links {
		link := entry.link
		links = append(links, &link)
	}

	slices.SortFunc(links, func(a, b *tracking.Link) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return links, nil
}

func (m *MemoryStore) DeleteLink(_ context.Context, id tracking.LinkID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[id]; !ok {
		return tracking.ErrNotFound
	}

	delete(m.links, id)

	return nil
}

func (m *MemoryStore) ListLocations(_ context.Context, id tracking.LinkID) ([]*tracking.LocationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.links[id]
	if !ok {
		return nil, tracking.ErrNotFound
	}

	records := make([]*tracking.LocationRecord, 0, len(entry.locations))

	for _, r := range entry.locations {
		record := *r
		records = append(records, &record)
	}

	slices.SortFunc(records, func(a, b *tracking.LocationRecord) int {
		return cmp.Or(b.Timestamp.Compare(a.Timestamp), cmp.Compare(a.VisitID, b.VisitID))
	})

	return records, nil
}

// Compile-time check.
var _ tracking.Repository = (*MemoryStore)(nil)
