package runner

import (
	"context"
	"time"

	"github.com/silvergrove/batchrunner/internal/logging"
)

// Dispatcher is the single-owner serial coordinator. It owns the batch
// queue, the staging buffer, the handler pool, the initial streamer's
// lifecycle, and the flush timer. All of that state is mutated only from
// the goroutine running Dispatcher.run; every other goroutine communicates
// with it exclusively through its mailbox.
type Dispatcher struct {
	cfg     Config
	handler Handler
	logger  *logging.RunnerLogger

	mailbox chan message

	queue   batchQueue
	staging stagingBuffer
	pool    handlerPool

	streamerState streamerState
	streamCancel  context.CancelFunc

	backoff *retryBackoff

	closed bool
}

func newDispatcher(handler Handler, cfg Config) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		handler: handler,
		logger:  logging.NewRunnerLogger(cfg.Name),
		mailbox: make(chan message, cfg.MailboxSize),
		pool:    newHandlerPool(),
	}
	if cfg.RetryBackoff != nil {
		d.backoff = newRetryBackoff(*cfg.RetryBackoff)
	}
	return d
}

// run is the dispatcher's reactor loop. It exits once shutdown completes.
func (d *Dispatcher) run(ctx context.Context) {
	flushTimer := time.NewTimer(d.cfg.FlushInterval)
	defer flushTimer.Stop()

	var retryTicker *time.Ticker
	var retryTickerC <-chan time.Time
	if d.backoff != nil {
		retryTicker = time.NewTicker(retryPollInterval(d.cfg.FlushInterval))
		retryTickerC = retryTicker.C
		defer retryTicker.Stop()
	}

	// initial-stream is delivered through the mailbox like any other
	// message, so it participates in the same single-owner ordering.
	d.mailbox <- initialStreamMsg{}

	for {
		select {
		case msg := <-d.mailbox:
			if sd, ok := msg.(shutdownMsg); ok {
				d.runShutdown(ctx, sd)
				return
			}
			d.handle(ctx, msg)
			d.dispatchAttempt(ctx)

		case <-flushTimer.C:
			d.handleFlush()
			d.dispatchAttempt(ctx)
			flushTimer.Reset(d.cfg.FlushInterval)

		case <-retryTickerC:
			for _, qb := range d.backoff.due(time.Now()) {
				d.queue.PushBack(qb)
			}
			d.dispatchAttempt(ctx)

		case <-ctx.Done():
			return
		}
	}
}

// retryPollInterval picks a polling cadence for the optional retry-backoff
// heap: a quarter of the flush interval, but never less than 50ms.
func retryPollInterval(flushInterval time.Duration) time.Duration {
	interval := flushInterval / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return interval
}

func (d *Dispatcher) handle(ctx context.Context, msg message) {
	switch m := msg.(type) {
	case bufferMsg:
		d.handleBuffer(m)
	case asyncEnqueueMsg:
		d.queue.PushBackMany(m.batches)
	case initialStreamMsg:
		d.handleInitialStream(ctx)
	case handlerDoneMsg:
		d.handleHandlerDone(ctx, m)
	case handlerCrashedMsg:
		d.handleHandlerCrashed(ctx, m)
	case metricsMsg:
		m.reply <- d.metricsSnapshot()
	}
}

func (d *Dispatcher) handleBuffer(m bufferMsg) {
	if d.closed {
		m.ack <- errRunnerShuttingDown
		return
	}
	d.staging.Add(m.items)
	d.cfg.Metrics.GrowStagingBuffer(d.cfg.Name, len(m.items))
	m.ack <- nil
}

func (d *Dispatcher) handleInitialStream(ctx context.Context) {
	if d.streamerState != streamerNotStarted {
		return
	}
	d.streamerState = streamerRunning
	streamCtx, cancel := context.WithCancel(ctx)
	d.streamCancel = cancel
	go d.runInitialStreamer(streamCtx)
}

// handleFlush chunks the staging buffer into the batch queue. A flush with
// nothing staged is a no-op.
func (d *Dispatcher) handleFlush() {
	if d.staging.Empty() {
		return
	}
	items := d.staging.Drain()
	d.cfg.Metrics.ResetStagingBuffer(d.cfg.Name)

	chunks := chunkItems(items, d.cfg.MaxBatchSize)
	for _, c := range chunks {
		d.queue.PushBack(queuedBatch{items: c, retries: 0})
	}
	d.logger.LogFlush(len(items), len(chunks))
}

func (d *Dispatcher) handleHandlerDone(ctx context.Context, m handlerDoneMsg) {
	qb, ok := d.pool.Remove(m.token)
	if !ok {
		return
	}
	d.cfg.Metrics.ObserveOutcome(d.cfg.Name, outcomeName(m.outcome.kind), m.duration)

	switch m.outcome.kind {
	case outcomeOK:
		// discard; every item in the batch is delivered.
	case outcomeRetry:
		d.requeue(ctx, m.token, qb.items, qb.retries+1, false)
	case outcomeRetryWith:
		d.requeue(ctx, m.token, m.outcome.newItems, qb.retries+1, false)
	}
}

func (d *Dispatcher) handleHandlerCrashed(ctx context.Context, m handlerCrashedMsg) {
	if m.token == streamerToken {
		d.streamerState = streamerComplete
		if m.reason != nil {
			d.logger.LogStreamerCrashed(m.reason)
		} else {
			d.logger.LogStreamComplete()
		}
		return
	}

	qb, ok := d.pool.Remove(m.token)
	if !ok {
		return
	}
	d.requeue(ctx, m.token, qb.items, qb.retries+1, true)
}

func (d *Dispatcher) requeue(ctx context.Context, token Token, items []Item, retries int, crashed bool) {
	d.logger.LogBatchRetried(ctx, token.String(), retries, crashed)
	qb := queuedBatch{items: items, retries: retries}
	if d.backoff != nil {
		d.backoff.schedule(qb)
		return
	}
	d.queue.PushBack(qb)
}

// dispatchAttempt launches handler invocations until concurrency is
// saturated or the batch queue drains. It is run after every state-changing
// message, per the core's sole mechanism for starting new work.
func (d *Dispatcher) dispatchAttempt(ctx context.Context) {
	for d.pool.Len() < d.cfg.MaxConcurrency && d.queue.Len() > 0 {
		qb := d.queue.PopFront()
		token := newToken()
		d.pool.Add(token, qb)
		d.spawnHandler(ctx, token, qb)
	}
}

func (d *Dispatcher) spawnHandler(ctx context.Context, token Token, qb queuedBatch) {
	hctx := logging.ContextWithCorrelationID(ctx, token.String())
	d.logger.LogBatchDispatched(hctx, token.String(), len(qb.items), qb.retries)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				select {
				case d.mailbox <- handlerCrashedMsg{token: token, reason: panicError(r)}:
				case <-ctx.Done():
				}
			}
		}()
		start := time.Now()
		outcome := d.handler(hctx, Batch{Items: qb.items, Retries: qb.retries}, d.cfg.HandlerState)
		select {
		case d.mailbox <- handlerDoneMsg{token: token, outcome: outcome, duration: time.Since(start)}:
		case <-ctx.Done():
		}
	}()
}

func (d *Dispatcher) metricsSnapshot() Metrics {
	m := Metrics{
		BufferGauge: d.staging.ItemCount() + d.queue.Len()*d.cfg.MaxBatchSize,
		TaskGauge:   d.pool.Len(),
	}
	d.cfg.Metrics.SetGauges(d.cfg.Name, m.BufferGauge, m.TaskGauge)
	return m
}

// runShutdown stops accepting new buffer submissions, cancels the initial
// streamer, and waits for in-flight handler invocations up to the
// configured deadline before abandoning whatever remains.
func (d *Dispatcher) runShutdown(ctx context.Context, sd shutdownMsg) {
	d.closed = true
	if d.streamCancel != nil {
		d.streamCancel()
	}

	deadline, cancel := context.WithTimeout(ctx, d.cfg.ShutdownDeadline)
	defer cancel()

	for d.pool.Len() > 0 {
		select {
		case msg := <-d.mailbox:
			switch m := msg.(type) {
			case handlerDoneMsg:
				d.pool.Remove(m.token)
			case handlerCrashedMsg:
				if m.token != streamerToken {
					d.pool.Remove(m.token)
				}
			case bufferMsg:
				m.ack <- errRunnerShuttingDown
			case metricsMsg:
				m.reply <- d.metricsSnapshot()
			}
		case <-deadline.Done():
			d.logger.LogShutdown(d.pool.Len(), true)
			close(sd.done)
			return
		}
	}
	d.logger.LogShutdown(0, false)
	close(sd.done)
}

func outcomeName(k outcomeKind) string {
	switch k {
	case outcomeOK:
		return "ok"
	case outcomeRetry:
		return "retry"
	case outcomeRetryWith:
		return "retry_with"
	default:
		return "unknown"
	}
}

func panicError(r interface{}) error {
	return &handlerPanicError{value: r}
}

type handlerPanicError struct {
	value interface{}
}

func (e *handlerPanicError) Error() string {
	return "handler panic: " + formatPanic(e.value)
}

func formatPanic(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-error panic value"
}
