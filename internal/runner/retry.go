package runner

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/silvergrove/batchrunner/internal/cache"
)

// RetryBackoffConfig controls the optional exponential-backoff-with-jitter
// delay applied before a retried batch becomes eligible for dispatch again.
// It is an opt-in addition for deployments where immediate tail requeue
// would cause a persistently failing handler to starve other batches of
// throughput.
type RetryBackoffConfig struct {
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFraction    float64

	// RandomSeed makes jitter reproducible in tests. Zero uses a
	// time-based seed.
	RandomSeed int64
}

// DefaultRetryBackoffConfig returns reasonable production defaults.
func DefaultRetryBackoffConfig() RetryBackoffConfig {
	return RetryBackoffConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Minute,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// retryBackoff schedules queuedBatch records for re-entry into the batch
// queue at a computed future time, using a min-heap ordered by that time so
// the dispatcher can cheaply pop everything that has become due.
type retryBackoff struct {
	cfg   RetryBackoffConfig
	ready *cache.MinHeap[queuedBatch]

	rngMu sync.Mutex
	rng   *rand.Rand

	seqMu sync.Mutex
	seq   uint64
}

func newRetryBackoff(cfg RetryBackoffConfig) *retryBackoff {
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2.0
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = cfg.InitialBackoff * 64
	}
	if cfg.JitterFraction <= 0 || cfg.JitterFraction > 1.0 {
		cfg.JitterFraction = 0.1
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &retryBackoff{
		cfg:   cfg,
		ready: cache.NewMinHeap[queuedBatch](0),
		//nolint:gosec // weak random is fine for non-cryptographic jitter
		rng: rand.New(rand.NewSource(seed)),
	}
}

// schedule delays qb's return to the batch queue by a backoff that grows
// exponentially with its retry count (capped, with jitter).
func (b *retryBackoff) schedule(qb queuedBatch) {
	delay := b.calculateBackoff(qb.retries)
	b.seqMu.Lock()
	b.seq++
	key := fmt.Sprintf("retry-%d", b.seq)
	b.seqMu.Unlock()
	b.ready.Push(key, qb, time.Now().Add(delay))
}

// due pops every scheduled batch whose delay has elapsed as of now.
func (b *retryBackoff) due(now time.Time) []queuedBatch {
	entries := b.ready.PopBefore(now)
	if len(entries) == 0 {
		return nil
	}
	out := make([]queuedBatch, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out
}

// calculateBackoff computes an exponential delay for the given retry count,
// capped at MaxBackoff and jittered by +/- JitterFraction.
func (b *retryBackoff) calculateBackoff(retries int) time.Duration {
	backoff := float64(b.cfg.InitialBackoff) * math.Pow(b.cfg.BackoffMultiplier, float64(retries))
	if backoff > float64(b.cfg.MaxBackoff) {
		backoff = float64(b.cfg.MaxBackoff)
	}

	b.rngMu.Lock()
	jitter := backoff * b.cfg.JitterFraction * (b.rng.Float64()*2 - 1)
	b.rngMu.Unlock()

	return time.Duration(backoff + jitter)
}
