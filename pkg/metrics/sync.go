package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records outcomes of pending-sale drains.
type SyncMetrics struct {
	duration   prometheus.Histogram
	records    *prometheus.CounterVec
	queueDepth prometheus.Gauge
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_sync_duration_seconds",
		Help:    "Duration of pending-sale drain runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sale_sync_records_total",
		Help: "Pending sale records processed, by result.",
	}, []string{"result"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sale_sync_queue_depth",
		Help: "Unsynced sale records remaining in the local queue.",
	})
	reg.MustRegister(duration, records, queueDepth)
	return &SyncMetrics{
		duration:   duration,
		records:    records,
		queueDepth: queueDepth,
	}
}

// ObserveDuration records the duration of one drain run.
func (m *SyncMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// IncSynced counts a record that reached the ledger.
func (m *SyncMetrics) IncSynced() {
	if m == nil || m.records == nil {
		return
	}
	m.records.WithLabelValues("synced").Inc()
}

// IncFailed counts a record that failed and stays queued.
func (m *SyncMetrics) IncFailed() {
	if m == nil || m.records == nil {
		return
	}
	m.records.WithLabelValues("failed").Inc()
}

// SetQueueDepth publishes the current unsynced backlog size.
func (m *SyncMetrics) SetQueueDepth(depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
