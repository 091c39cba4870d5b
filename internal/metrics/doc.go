/*
Package metrics provides Prometheus instrumentation for the batch runner.

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format by internal/httpapi.

# Available Metrics

  - batchrunner_staging_buffer_grow_total: items added to staging (counter)
    Labels: handler
  - batchrunner_staging_buffer_reset_total: staging buffer flushes (counter)
    Labels: handler
  - batchrunner_buffer_items: staged plus queued items awaiting delivery (gauge)
    Labels: handler
  - batchrunner_tasks_in_flight: handler invocations in flight (gauge)
    Labels: handler
  - batchrunner_handler_duration_seconds: handler invocation duration (histogram)
    Labels: handler, outcome (ok, retry, retry_with)

The handler label carries the runner's configured name.

# Usage

	r, err := runner.Start(ctx, handle, runner.Config{
	    Name:    "ingest",
	    Metrics: metrics.Recorder{},
	    // ...
	})

Recorder implements runner.MetricsRecorder against the package-level
collectors above; it holds no state of its own, so a single Recorder{} value
can be shared across every runner in a process.

# See Also

  - internal/runner: the MetricsRecorder interface this package implements
  - internal/httpapi: exposes the collectors via promhttp
*/
package metrics
