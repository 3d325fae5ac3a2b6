package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptureDispatches counts terminal dispatches by the trigger that won the race.
	CaptureDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_dispatches_total",
			Help: "Total number of visit dispatches by winning trigger and status",
		},
		[]string{"trigger", "status"}, // trigger: device_success, device_failure, deadline
	)

	CaptureDispatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capture_dispatch_latency_seconds",
			Help:    "Time from tracking link entry to terminal dispatch",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	// CaptureLateResults counts device results that arrived after dispatch.
	CaptureLateResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_late_results_total",
			Help: "Total number of device results arriving after the visit was dispatched",
		},
		[]string{"trigger"},
	)

	LocationWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_writes_total",
			Help: "Total number of location record write attempts",
		},
		[]string{"source", "result"}, // result: saved, skipped, failed
	)

	HitIncrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hit_increments_total",
			Help: "Total number of hit counter increments",
		},
		[]string{"result"},
	)

	IPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ip_lookups_total",
			Help: "Total number of IP geolocation lookups",
		},
		[]string{"result"}, // success, failure, rejected
	)

	IPLookupBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ip_lookup_circuit_breaker_state",
			Help: "IP lookup circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	ActiveVisits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "capture_active_visits",
			Help: "Number of visits currently held in the visit registry",
		},
	)
)
