package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// RunnerLogger provides specialized logging for the batch runner.
// It adds domain-specific methods for common dispatcher and streamer
// scenarios on top of the global logger.
type RunnerLogger struct {
	logger zerolog.Logger
}

// NewRunnerLogger creates a logger configured for a named runner instance.
func NewRunnerLogger(name string) *RunnerLogger {
	return &RunnerLogger{
		logger: With().Str("component", "runner").Str("handler", name).Logger(),
	}
}

// NewRunnerLoggerWithLogger creates a RunnerLogger with a custom base logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value (copy-on-write semantics)
func NewRunnerLoggerWithLogger(logger zerolog.Logger, name string) *RunnerLogger {
	return &RunnerLogger{
		logger: logger.With().Str("component", "runner").Str("handler", name).Logger(),
	}
}

// WithFields returns a new RunnerLogger with additional default fields.
func (r *RunnerLogger) WithFields(fields map[string]interface{}) *RunnerLogger {
	ctx := r.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &RunnerLogger{logger: ctx.Logger()}
}

// Debug logs a debug message.
func (r *RunnerLogger) Debug(msg string, fields ...interface{}) {
	event := r.logger.Debug()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Info logs an info message.
func (r *RunnerLogger) Info(msg string, fields ...interface{}) {
	event := r.logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Warn logs a warning message.
func (r *RunnerLogger) Warn(msg string, fields ...interface{}) {
	event := r.logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Error logs an error message.
func (r *RunnerLogger) Error(msg string, fields ...interface{}) {
	event := r.logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// InfoContext logs an info message with context (correlation ID attached).
func (r *RunnerLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := r.loggerWithContext(ctx)
	event := logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// WarnContext logs a warning message with context.
func (r *RunnerLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := r.loggerWithContext(ctx)
	event := logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// ErrorContext logs an error message with context.
func (r *RunnerLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := r.loggerWithContext(ctx)
	event := logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// loggerWithContext returns a logger with context fields added.
func (r *RunnerLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	logCtx := r.logger.With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}

	return logCtx.Logger()
}

// ============================================================
// Domain-Specific Runner Logging Methods
// ============================================================

// LogBatchDispatched logs when a batch is handed to a handler invocation.
func (r *RunnerLogger) LogBatchDispatched(ctx context.Context, token string, size, retries int) {
	r.InfoContext(ctx, "batch dispatched",
		"token", token,
		"batch_size", size,
		"retries", retries,
	)
}

// LogBatchRetried logs when a batch is requeued after a retry outcome or crash.
func (r *RunnerLogger) LogBatchRetried(ctx context.Context, token string, retries int, crashed bool) {
	logger := r.loggerWithContext(ctx)
	event := logger.Warn().
		Str("token", token).
		Int("retries", retries).
		Bool("crashed", crashed)
	event.Msg("batch retried")
}

// LogHandlerCrashed logs when a handler invocation terminates abnormally.
func (r *RunnerLogger) LogHandlerCrashed(ctx context.Context, token string, reason error) {
	logger := r.loggerWithContext(ctx)
	event := logger.Error().
		Str("token", token).
		Err(reason)
	event.Msg("handler invocation crashed")
}

// LogFlush logs a staging buffer flush.
func (r *RunnerLogger) LogFlush(itemCount, chunkCount int) {
	r.Info("staging buffer flushed",
		"item_count", itemCount,
		"chunk_count", chunkCount,
	)
}

// LogStreamComplete logs normal completion of the initial streamer.
func (r *RunnerLogger) LogStreamComplete() {
	r.Info("initial streamer completed")
}

// LogStreamerCrashed logs abnormal termination of the initial streamer.
func (r *RunnerLogger) LogStreamerCrashed(reason error) {
	event := r.logger.Error().Err(reason)
	event.Msg("initial streamer crashed")
}

// LogShutdown logs the start and outcome of a shutdown sequence.
func (r *RunnerLogger) LogShutdown(pendingTasks int, abandoned bool) {
	event := r.logger.Info().Int("pending_tasks", pendingTasks).Bool("abandoned", abandoned)
	event.Msg("runner shutdown complete")
}

// addFieldPairs adds key-value pairs to a zerolog event.
func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			e = e.Interface(key, fields[i+1])
		}
	}
	return e
}
