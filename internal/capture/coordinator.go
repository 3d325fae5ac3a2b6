package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/serroba/link-tracker/internal/analytics"
	"github.com/serroba/link-tracker/internal/messaging"
	"github.com/serroba/link-tracker/internal/metrics"
	"github.com/serroba/link-tracker/internal/tracking"
	"go.uber.org/zap"
)

// IPLocator looks up coarse location context for an IP address.
type IPLocator interface {
	Lookup(ctx context.Context, ip string) (*tracking.IPInfo, error)
}

// Visit describes one opening of a tracking link.
type Visit struct {
	ID       string
	LinkID   tracking.LinkID
	ClientIP string
	Client   tracking.ClientMeta
	Device   DeviceLocator // nil when the visitor has no geolocation capability
}

// Coordinator runs the capture-and-redirect flow for each visit.
type Coordinator struct {
	store             tracking.Store
	ip                IPLocator
	cfg               Config
	clock             Clock
	publishDispatched messaging.Publish[analytics.VisitDispatchedEvent]
	publishRecorded   messaging.Publish[analytics.LocationRecordedEvent]
	logger            *zap.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the real clock driving the deadline guard.
func WithClock(clock Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// NewCoordinator creates a coordinator. ip may be nil, in which case every
// lookup yields empty context.
func NewCoordinator(
	store tracking.Store,
	ip IPLocator,
	cfg Config,
	publishDispatched messaging.Publish[analytics.VisitDispatchedEvent],
	publishRecorded messaging.Publish[analytics.LocationRecordedEvent],
	logger *zap.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		store:             store,
		ip:                ip,
		cfg:               cfg,
		clock:             RealClock(),
		publishDispatched: publishDispatched,
		publishRecorded:   publishRecorded,
		logger:            logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Config returns the timing policy in use.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// Start begins capturing a visit and returns immediately. nav is invoked
// exactly once, when the visit reaches its terminal state.
//
// The capture outlives ctx: cancelling the request that started it does not
// stop it. Background work ends at the latest Deadline+LateWindow after Start.
func (c *Coordinator) Start(ctx context.Context, visit Visit, nav Navigator) *Capture {
	cp := &Capture{
		c:         c,
		visit:     visit,
		nav:       nav,
		logger:    c.logger.With(zap.String("visit", visit.ID), zap.String("link", string(visit.LinkID))),
		startedAt: c.clock.Now(),
		linkReady: make(chan struct{}),
		ipReady:   make(chan struct{}),
		done:      make(chan struct{}),
		settled:   make(chan struct{}),
	}

	if visit.LinkID == "" {
		cp.gate.Claim()
		cp.finish(Outcome{Status: StatusInvalidLink})
		close(cp.settled)

		return cp
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Deadline+c.cfg.LateWindow)

	cp.wg.Go(func() { cp.resolve(ctx) })
	cp.wg.Go(func() { cp.countHit(ctx) })
	cp.wg.Go(func() { cp.lookupIP(ctx) })

	cp.wg.Add(1)
	cp.deadline = c.clock.AfterFunc(c.cfg.Deadline, func() {
		defer cp.wg.Done()
		cp.settle(ctx, TriggerDeadline, nil, errDeadline)
	})

	cp.wg.Go(func() { cp.locate(ctx) })

	go func() {
		cp.wg.Wait()
		cancel()
		close(cp.settled)
	}()

	return cp
}

var errDeadline = errors.New("deadline expired before device responded")

// Capture is the state of one visit: the gate, the pending deadline and the
// results of the concurrent lookups.
type Capture struct {
	c         *Coordinator
	visit     Visit
	nav       Navigator
	logger    *zap.Logger
	startedAt time.Time

	gate     Gate
	deadline Timer
	wg       sync.WaitGroup

	linkReady   chan struct{}
	destination string

	ipReady chan struct{}
	ipInfo  tracking.IPInfo

	done    chan struct{}
	outcome Outcome

	settled chan struct{}
}

// VisitID returns the id of the captured visit.
func (cp *Capture) VisitID() string {
	return cp.visit.ID
}

// Done is closed once the visit has been dispatched.
func (cp *Capture) Done() <-chan struct{} {
	return cp.done
}

// Outcome returns the terminal outcome. Only valid after Done is closed.
func (cp *Capture) Outcome() Outcome {
	<-cp.done

	return cp.outcome
}

// Dispatched reports whether the terminal transition has been claimed.
func (cp *Capture) Dispatched() bool {
	return cp.gate.Claimed()
}

// Settled is closed when every path of the visit, including late results, has finished.
func (cp *Capture) Settled() <-chan struct{} {
	return cp.settled
}

// Wait blocks until the capture has settled.
func (cp *Capture) Wait() {
	<-cp.settled
}

func (cp *Capture) resolve(ctx context.Context) {
	defer close(cp.linkReady)

	ctx, cancel := context.WithTimeout(ctx, cp.c.cfg.ResolveTimeout)
	defer cancel()

	link, err := cp.c.store.GetLink(ctx, cp.visit.LinkID)

	switch {
	case errors.Is(err, tracking.ErrNotFound):
		cp.logger.Debug("tracking link does not exist")
	case err != nil:
		cp.logger.Warn("link lookup failed, continuing without destination", zap.Error(err))
	default:
		cp.destination = link.DestinationURL
	}
}

func (cp *Capture) countHit(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, cp.c.cfg.PersistTimeout)
	defer cancel()

	if err := cp.c.store.IncrementHits(ctx, cp.visit.LinkID); err != nil {
		metrics.HitIncrements.WithLabelValues("failed").Inc()
		cp.logger.Warn("failed to increment hit count", zap.Error(err))

		return
	}

	metrics.HitIncrements.WithLabelValues("ok").Inc()
}

func (cp *Capture) lookupIP(ctx context.Context) {
	defer close(cp.ipReady)

	if cp.c.ip == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cp.c.cfg.IPTimeout)
	defer cancel()

	info, err := cp.c.ip.Lookup(ctx, cp.visit.ClientIP)
	if err != nil {
		cp.logger.Debug("ip lookup failed, ip context left empty", zap.Error(err))

		return
	}

	if info != nil {
		cp.ipInfo = *info
	}
}

func (cp *Capture) locate(ctx context.Context) {
	if cp.visit.Device == nil {
		cp.settle(ctx, TriggerDeviceFailure, nil, ErrUnsupported)

		return
	}

	pos, err := cp.visit.Device.Locate(ctx, DeviceOptions{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      cp.c.cfg.DeviceTimeout,
	})
	if err != nil {
		cp.settle(ctx, TriggerDeviceFailure, nil, err)

		return
	}

	if pos == nil {
		cp.settle(ctx, TriggerDeviceFailure, nil, ErrPositionUnavailable)

		return
	}

	cp.settle(ctx, TriggerDeviceSuccess, pos, nil)
}

// settle is the single arbitration point fed by the device locator and the
// deadline guard. The winner records and dispatches; losers only record a
// late device fix.
func (cp *Capture) settle(ctx context.Context, trigger Trigger, pos *Position, cause error) {
	if !cp.gate.Claim() {
		cp.late(ctx, trigger, pos, cause)

		return
	}

	if trigger != TriggerDeadline {
		cp.stopDeadline()
	}

	if cause != nil {
		cp.logger.Debug("device location not available, falling back to ip",
			zap.String("trigger", string(trigger)),
			zap.Error(cause),
		)
	}

	record := composeRecord(&cp.visit, cp.waitIP(ctx), pos)

	var source tracking.Source
	if cp.persist(ctx, record) {
		source = record.Source
	}

	cp.dispatch(ctx, trigger, source)

	if source != "" {
		cp.publishRecorded(ctx, record, false)
	}
}

func (cp *Capture) late(ctx context.Context, trigger Trigger, pos *Position, cause error) {
	metrics.CaptureLateResults.WithLabelValues(string(trigger)).Inc()

	if pos == nil {
		cp.logger.Debug("ignoring result after dispatch",
			zap.String("trigger", string(trigger)),
			zap.Error(cause),
		)

		return
	}

	cp.logger.Debug("device fix arrived after dispatch, recording without navigating")

	record := composeRecord(&cp.visit, cp.waitIP(ctx), pos)
	if cp.persist(ctx, record) {
		cp.publishRecorded(ctx, record, true)
	}
}

func (cp *Capture) stopDeadline() {
	if cp.deadline.Stop() {
		cp.wg.Done()
	}
}

func (cp *Capture) waitIP(ctx context.Context) tracking.IPInfo {
	select {
	case <-cp.ipReady:
		return cp.ipInfo
	case <-ctx.Done():
		return tracking.IPInfo{}
	}
}

func (cp *Capture) waitDestination(ctx context.Context) string {
	select {
	case <-cp.linkReady:
		return cp.destination
	case <-ctx.Done():
		return ""
	}
}

func (cp *Capture) persist(ctx context.Context, record *tracking.LocationRecord) bool {
	if !record.HasCoordinates() {
		metrics.LocationWrites.WithLabelValues(string(record.Source), "skipped").Inc()
		cp.logger.Debug("no coordinates from any source, nothing recorded")

		return false
	}

	writeCtx, cancel := context.WithTimeout(ctx, cp.c.cfg.PersistTimeout)
	defer cancel()

	if err := cp.c.store.SaveLocation(writeCtx, cp.visit.LinkID, record); err != nil {
		metrics.LocationWrites.WithLabelValues(string(record.Source), "failed").Inc()
		cp.logger.Warn("failed to save location record",
			zap.String("source", string(record.Source)),
			zap.Error(err),
		)

		return false
	}

	metrics.LocationWrites.WithLabelValues(string(record.Source), "saved").Inc()

	return true
}

// publishRecorded runs after dispatch and is bounded by PersistTimeout.
func (cp *Capture) publishRecorded(ctx context.Context, record *tracking.LocationRecord, late bool) {
	ctx, cancel := context.WithTimeout(ctx, cp.c.cfg.PersistTimeout)
	defer cancel()

	event := &analytics.LocationRecordedEvent{
		VisitID:    cp.visit.ID,
		LinkID:     string(cp.visit.LinkID),
		Source:     string(record.Source),
		Late:       late,
		Country:    record.Country,
		City:       record.City,
		RecordedAt: cp.c.clock.Now(),
	}

	if err := cp.c.publishRecorded(ctx, event); err != nil {
		cp.logger.Error("failed to publish location recorded event", zap.Error(err))
	}
}

func (cp *Capture) dispatch(ctx context.Context, trigger Trigger, source tracking.Source) {
	outcome := Outcome{
		Status:  StatusDone,
		Trigger: trigger,
		Source:  source,
	}

	if dest := cp.waitDestination(ctx); dest != "" {
		outcome.Status = StatusRedirect
		outcome.Destination = dest
	}

	cp.finish(outcome)

	latency := cp.c.clock.Now().Sub(cp.startedAt)

	metrics.CaptureDispatches.WithLabelValues(string(trigger), string(outcome.Status)).Inc()
	metrics.CaptureDispatchLatency.Observe(latency.Seconds())

	event := &analytics.VisitDispatchedEvent{
		VisitID:      cp.visit.ID,
		LinkID:       string(cp.visit.LinkID),
		Trigger:      string(trigger),
		Status:       string(outcome.Status),
		Source:       string(source),
		LatencyMS:    latency.Milliseconds(),
		DispatchedAt: cp.c.clock.Now(),
	}

	pubCtx, cancel := context.WithTimeout(ctx, cp.c.cfg.PersistTimeout)
	defer cancel()

	if err := cp.c.publishDispatched(pubCtx, event); err != nil {
		cp.logger.Error("failed to publish visit dispatched event", zap.Error(err))
	}
}

func (cp *Capture) finish(outcome Outcome) {
	cp.outcome = outcome
	close(cp.done)

	if cp.nav != nil {
		cp.nav.Navigate(outcome)
	}
}
