package capture_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/serroba/link-tracker/internal/analytics"
	"github.com/serroba/link-tracker/internal/capture"
	"github.com/serroba/link-tracker/internal/messaging"
	"github.com/serroba/link-tracker/internal/tracking"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock *manualClock
	at    time.Time
	f     func()
	fired bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) capture.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)

	return t
}

// Advance moves the clock forward and runs every callback that became due.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	var due []*manualTimer

	for _, t := range c.timers {
		if !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, t := range c.timers {
		if !t.fired {
			n++
		}
	}

	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired {
		return false
	}

	t.fired = true

	return true
}

type fakeStore struct {
	mu      sync.Mutex
	links   map[tracking.LinkID]*tracking.Link
	records map[string]*tracking.LocationRecord
	saves   int
	calls   int

	getErr  error
	incErr  error
	saveErr error
}

func newFakeStore(links ...*tracking.Link) *fakeStore {
	s := &fakeStore{
		links:   make(map[tracking.LinkID]*tracking.Link),
		records: make(map[string]*tracking.LocationRecord),
	}

	for _, l := range links {
		s.links[l.ID] = l
	}

	return s
}

func (s *fakeStore) GetLink(_ context.Context, id tracking.LinkID) (*tracking.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.getErr != nil {
		return nil, s.getErr
	}

	link, ok := s.links[id]
	if !ok {
		return nil, tracking.ErrNotFound
	}

	cp := *link

	return &cp, nil
}

func (s *fakeStore) IncrementHits(_ context.Context, id tracking.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.incErr != nil {
		return s.incErr
	}

	link, ok := s.links[id]
	if !ok {
		return tracking.ErrNotFound
	}

	link.HitCount++

	return nil
}

func (s *fakeStore) SaveLocation(_ context.Context, _ tracking.LinkID, record *tracking.LocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.saveErr != nil {
		return s.saveErr
	}

	if record.Supersedes(s.records[record.VisitID]) {
		s.records[record.VisitID] = record
		s.saves++
	}

	return nil
}

func (s *fakeStore) hits(id tracking.LinkID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if link, ok := s.links[id]; ok {
		return link.HitCount
	}

	return 0
}

func (s *fakeStore) record(visitID string) *tracking.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.records[visitID]
}

func (s *fakeStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

type fakeIP struct {
	info *tracking.IPInfo
	err  error
}

func (f *fakeIP) Lookup(context.Context, string) (*tracking.IPInfo, error) {
	return f.info, f.err
}

// fakeDevice answers with pos or err, after release is closed when set.
type fakeDevice struct {
	release chan struct{}
	pos     *capture.Position
	err     error

	mu   sync.Mutex
	opts []capture.DeviceOptions
}

func (d *fakeDevice) Locate(ctx context.Context, opts capture.DeviceOptions) (*capture.Position, error) {
	d.mu.Lock()
	d.opts = append(d.opts, opts)
	d.mu.Unlock()

	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return d.pos, d.err
}

type recordingNavigator struct {
	mu       sync.Mutex
	outcomes []capture.Outcome
}

func (n *recordingNavigator) Navigate(outcome capture.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.outcomes = append(n.outcomes, outcome)
}

func (n *recordingNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.outcomes)
}

type eventRecorder struct {
	mu         sync.Mutex
	dispatched []analytics.VisitDispatchedEvent
	recorded   []analytics.LocationRecordedEvent
}

func (r *eventRecorder) publishDispatched(_ context.Context, e *analytics.VisitDispatchedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dispatched = append(r.dispatched, *e)

	return nil
}

func (r *eventRecorder) publishRecorded(_ context.Context, e *analytics.LocationRecordedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recorded = append(r.recorded, *e)

	return nil
}

func (r *eventRecorder) snapshot() ([]analytics.VisitDispatchedEvent, []analytics.LocationRecordedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]analytics.VisitDispatchedEvent(nil), r.dispatched...),
		append([]analytics.LocationRecordedEvent(nil), r.recorded...)
}

// stalledBroker never acknowledges a publish; calls return when ctx ends.
type stalledBroker struct {
	mu        sync.Mutex
	calls     int
	unbounded int
}

func stalledPublish[T any](b *stalledBroker) messaging.Publish[T] {
	return func(ctx context.Context, _ *T) error {
		b.mu.Lock()
		b.calls++

		if _, ok := ctx.Deadline(); !ok {
			b.unbounded++
		}
		b.mu.Unlock()

		<-ctx.Done()

		return ctx.Err()
	}
}

func (b *stalledBroker) snapshot() (calls, unbounded int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.calls, b.unbounded
}

var errBoom = errors.New("boom")

func ptr(v float64) *float64 {
	return &v
}

func ipWithCoords() *tracking.IPInfo {
	return &tracking.IPInfo{
		IP:        "203.0.113.7",
		City:      "Lisbon",
		Region:    "Lisbon",
		Country:   "Portugal",
		Org:       "Example ISP",
		Timezone:  "Europe/Lisbon",
		Latitude:  ptr(38.72),
		Longitude: ptr(-9.14),
	}
}
