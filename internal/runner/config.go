package runner

import (
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
)

// Config holds the construction configuration for a Runner. All fields are
// required unless documented otherwise.
type Config struct {
	// FlushInterval is the delay between staging buffer drains.
	FlushInterval time.Duration

	// MaxConcurrency bounds the number of simultaneous handler invocations.
	MaxConcurrency int

	// MaxBatchSize bounds the number of items in any batch delivered to the
	// handler.
	MaxBatchSize int

	// InitChunkSize governs the initial streamer's delivery granularity,
	// independent of MaxBatchSize.
	InitChunkSize int

	// Stream is the collaborator capability that enumerates pre-existing
	// pending items once, at startup.
	Stream StreamFunc

	// HandlerState is passed by reference to every handler invocation and
	// to Stream. The runner treats it as opaque.
	HandlerState any

	// Name optionally identifies this runner instance for external
	// addressing, logging, and metric dimensions. Defaults to "runner".
	Name string

	// ShutdownDeadline bounds how long Shutdown waits for in-flight handler
	// invocations before abandoning them. Defaults to 30s.
	ShutdownDeadline time.Duration

	// MailboxSize bounds the dispatcher's inbound message channel. Buffer
	// calls block (subject to the caller's context) once it is full, which
	// is the mechanism by which Buffer's timeout contract is honored.
	// Defaults to 256.
	MailboxSize int

	// RetryBackoff, if non-nil, delays a retried batch's return to the
	// queue tail by an exponentially-growing, jittered interval instead of
	// requeueing it immediately. Nil preserves the core's specified
	// behavior of an immediate tail requeue.
	RetryBackoff *RetryBackoffConfig

	// Metrics receives the runner's telemetry events and gauges. Nil
	// disables telemetry.
	Metrics MetricsRecorder

	// Supervisor, if non-nil, is the task_supervisor used to spawn and
	// supervise the dispatcher and initial streamer. When set, Start
	// registers the runner as a supervised service instead of returning
	// control of its lifetime to the caller.
	Supervisor *suture.Supervisor
}

// Validate reports a descriptive error naming the first missing or invalid
// required field, or nil if the configuration is complete.
func (c *Config) Validate() error {
	if c.FlushInterval <= 0 {
		return fmt.Errorf("runner config: missing required field %q", "flush_interval")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("runner config: missing required field %q", "max_concurrency")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("runner config: missing required field %q", "max_batch_size")
	}
	if c.InitChunkSize <= 0 {
		return fmt.Errorf("runner config: missing required field %q", "init_chunk_size")
	}
	if c.Stream == nil {
		return fmt.Errorf("runner config: missing required field %q", "stream")
	}
	return nil
}

// applyDefaults fills in optional fields left at their zero value.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "runner"
	}
	if c.ShutdownDeadline <= 0 {
		c.ShutdownDeadline = 30 * time.Second
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = 256
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
}
