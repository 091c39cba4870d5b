package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the batch runner, dimensioned by a "handler" label
// carrying the runner name, so a process hosting several named runners gets
// independent series for each.
var (
	StagingBufferGrowTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchrunner_staging_buffer_grow_total",
			Help: "Total number of items added to a runner's staging buffer",
		},
		[]string{"handler"},
	)

	StagingBufferResetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchrunner_staging_buffer_reset_total",
			Help: "Total number of times a runner's staging buffer was flushed",
		},
		[]string{"handler"},
	)

	BufferGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "batchrunner_buffer_items",
			Help: "Current number of items staged or queued but not yet delivered to a handler",
		},
		[]string{"handler"},
	)

	TaskGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "batchrunner_tasks_in_flight",
			Help: "Current number of handler invocations in flight",
		},
		[]string{"handler"},
	)

	HandlerOutcomeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchrunner_handler_duration_seconds",
			Help:    "Duration of handler invocations, by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "outcome"},
	)
)

// Recorder implements runner.MetricsRecorder against the package's
// Prometheus collectors. It is defined here, rather than in internal/runner,
// so internal/runner never imports a concrete metrics backend; it depends
// only on the MetricsRecorder interface it declares itself.
type Recorder struct{}

func (Recorder) GrowStagingBuffer(name string, n int) {
	StagingBufferGrowTotal.WithLabelValues(name).Add(float64(n))
}

func (Recorder) ResetStagingBuffer(name string) {
	StagingBufferResetTotal.WithLabelValues(name).Inc()
}

func (Recorder) ObserveOutcome(name, outcome string, duration time.Duration) {
	HandlerOutcomeDuration.WithLabelValues(name, outcome).Observe(duration.Seconds())
}

func (Recorder) SetGauges(name string, bufferGauge, taskGauge int) {
	BufferGauge.WithLabelValues(name).Set(float64(bufferGauge))
	TaskGauge.WithLabelValues(name).Set(float64(taskGauge))
}
