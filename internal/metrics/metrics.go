package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rotation metrics
	cyclesTotal     *prometheus.CounterVec
	slotWritesTotal *prometheus.CounterVec
	fillerTotal     *prometheus.CounterVec
	cycleDuration   prometheus.Histogram

	// Registration guard
	metricsOnce sync.Once
)

// CycleMetrics provides methods to record rotation cycle metrics.
type CycleMetrics struct{}

// NewCycleMetrics creates a new CycleMetrics instance.
// InitMetrics must have been called for records to take effect.
func NewCycleMetrics() *CycleMetrics {
	return &CycleMetrics{}
}

// InitMetrics initializes all Prometheus metrics.
// This should be called once at startup if metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		cyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketrot_cycles_total",
				Help: "Total number of rotation cycles by outcome",
			},
			[]string{"status"},
		)

		slotWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketrot_slot_writes_total",
				Help: "Total number of key slot writes by server and result",
			},
			[]string{"server", "result"},
		)

		fillerTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticketrot_filler_keys_total",
				Help: "Total number of filler keys synthesized for never-populated or unreadable slots",
			},
			[]string{"server", "reason"},
		)

		cycleDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ticketrot_cycle_duration_seconds",
				Help:    "Duration of rotation cycles in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		)
	})
}

// RecordCycleCompleted records a finished cycle and its duration.
func (m *CycleMetrics) RecordCycleCompleted(status string, seconds float64) {
	if cyclesTotal == nil {
		return
	}
	cyclesTotal.WithLabelValues(status).Inc()
	cycleDuration.Observe(seconds)
}

// RecordSlotWrite records one slot write attempt.
func (m *CycleMetrics) RecordSlotWrite(server, result string) {
	if slotWritesTotal == nil {
		return
	}
	slotWritesTotal.WithLabelValues(server, result).Inc()
}

// RecordFiller records a synthesized filler key. Reason distinguishes
// a slot that never existed from one that existed but was unreadable.
func (m *CycleMetrics) RecordFiller(server, reason string) {
	if fillerTotal == nil {
		return
	}
	fillerTotal.WithLabelValues(server, reason).Inc()
}

// WriteTextfile dumps the default registry in the node_exporter
// textfile collector format. Suited to cron-driven one-shot runs where
// no scrape endpoint exists.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
