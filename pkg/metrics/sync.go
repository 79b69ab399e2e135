package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records the outcome of ledger synchronization passes.
type SyncMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	hydrated *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewSyncMetrics registers the synchronization metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_pass_duration_seconds",
		Help:    "Duration of ledger synchronization passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pass_success",
		Help: "Completed synchronization passes.",
	}, []string{"view"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pass_failure",
		Help: "Synchronization passes that failed at event discovery.",
	}, []string{"view"})
	hydrated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_objects_hydrated",
		Help: "Ledger objects successfully hydrated and parsed.",
	}, []string{"view"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_objects_skipped",
		Help: "Ledger objects dropped by hydration failure or tolerant parsing.",
	}, []string{"view"})
	reg.MustRegister(duration, success, failure, hydrated, skipped)
	return &SyncMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		hydrated: hydrated,
		skipped:  skipped,
	}
}

// ObserveDuration records the duration of one pass for the named view.
func (s *SyncMetrics) ObserveDuration(view string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(view)).Observe(duration.Seconds())
}

// IncSuccess increments the completed-pass counter for the named view.
func (s *SyncMetrics) IncSuccess(view string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(view)).Inc()
}

// IncFailure increments the failed-pass counter for the named view.
func (s *SyncMetrics) IncFailure(view string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(view)).Inc()
}

// AddHydrated counts objects that made it into a pass result.
func (s *SyncMetrics) AddHydrated(view string, n int) {
	if s == nil || s.hydrated == nil || n <= 0 {
		return
	}
	s.hydrated.WithLabelValues(normalizeLabel(view)).Add(float64(n))
}

// AddSkipped counts objects dropped by hydration failure or parse skip.
func (s *SyncMetrics) AddSkipped(view string, n int) {
	if s == nil || s.skipped == nil || n <= 0 {
		return
	}
	s.skipped.WithLabelValues(normalizeLabel(view)).Add(float64(n))
}

func normalizeLabel(view string) string {
	if view == "" {
		return "unknown"
	}
	return view
}
