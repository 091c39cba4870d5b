package runner

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/silvergrove/batchrunner/internal/logging"
)

// BreakerConfig configures an optional circuit breaker around a Handler
// that calls out to a remote, flaky collaborator (the "bounded pool of
// external callers" named in the runner's purpose). The core Dispatcher
// has no notion of a breaker; this is a helper for handlers that want one.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns reasonable production defaults.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// NewBreaker creates a gobreaker instance parameterized over Outcome, so a
// Handler can wrap its remote call directly without juggling interface{}.
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[Outcome] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return gobreaker.NewCircuitBreaker[Outcome](settings)
}

// WithBreaker wraps call with breaker protection, translating a tripped
// breaker into a Retry outcome rather than propagating gobreaker's own
// error type to the handler's caller.
func WithBreaker(breaker *gobreaker.CircuitBreaker[Outcome], call func(context.Context) (Outcome, error)) func(context.Context) Outcome {
	return func(ctx context.Context) Outcome {
		outcome, err := breaker.Execute(func() (Outcome, error) { return call(ctx) })
		if err != nil {
			return Retry()
		}
		return outcome
	}
}
