package capture

import (
	"sync"
	"time"

	"github.com/serroba/link-tracker/internal/metrics"
)

// Session pairs a running capture with the relay that feeds its device locator.
type Session struct {
	Capture *Capture
	Device  *DeviceRelay
}

// Registry tracks in-flight visits so device reports and outcome polls can
// find them by visit id. A visit is forgotten retention after it settles.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	clock     Clock
	retention time.Duration
}

// NewRegistry creates a registry that keeps settled visits for retention.
func NewRegistry(clock Clock, retention time.Duration) *Registry {
	if clock == nil {
		clock = RealClock()
	}

	return &Registry{
		sessions:  make(map[string]*Session),
		clock:     clock,
		retention: retention,
	}
}

// Add registers a session and schedules its removal once its capture settles.
func (r *Registry) Add(s *Session) {
	id := s.Capture.VisitID()

	r.mu.Lock()
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveVisits.Set(float64(n))

	go func() {
		<-s.Capture.Settled()
		r.clock.AfterFunc(r.retention, func() { r.remove(id, s) })
	}()
}

// Get returns the session of a visit.
func (r *Registry) Get(visitID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[visitID]

	return s, ok
}

// Len returns the number of tracked visits.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

func (r *Registry) remove(id string, s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[id]; ok && cur == s {
		delete(r.sessions, id)
	}

	n := len(r.sessions)
	r.mu.Unlock()

	metrics.ActiveVisits.Set(float64(n))
}
