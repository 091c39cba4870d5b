package runner

import (
	"context"
	"errors"
)

// errRunnerShuttingDown is returned by Buffer once Shutdown has been called,
// and from the dispatcher's drain loop for any Buffer call that arrives
// while it is waiting for in-flight handlers to finish.
var errRunnerShuttingDown = errors.New("runner: shutting down")

// Runner is the external handle to a running buffered batch task runner. It
// is safe for concurrent use: all of its methods communicate with a single
// owning dispatcher goroutine through a mailbox, so callers never
// synchronize on the runner's internal state directly.
type Runner struct {
	d *Dispatcher
}

// Start validates cfg, constructs a Runner around handler, and launches its
// dispatcher goroutine. If cfg.Supervisor is set, the dispatcher instead
// runs as a supervised service and Start returns once it has been added to
// the tree; the caller is not responsible for calling Shutdown in that case,
// though it still may.
func Start(ctx context.Context, handler Handler, cfg Config) (*Runner, error) {
	if handler == nil {
		return nil, errors.New("runner: handler is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	d := newDispatcher(handler, cfg)
	r := &Runner{d: d}

	if cfg.Supervisor != nil {
		cfg.Supervisor.Add(&supervisorService{r: r})
		return r, nil
	}

	go d.run(ctx)
	return r, nil
}

// Buffer appends items to the staging buffer, async-enqueue style: it
// returns as soon as the dispatcher has accepted the items into staging, not
// once they have been handled. It returns an error if ctx is done first, or
// if the runner has begun shutting down.
func (r *Runner) Buffer(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	ack := make(chan error, 1)
	select {
	case r.d.mailbox <- bufferMsg{items: items, ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns a snapshot of the current buffer_gauge and task_gauge
// values. It blocks until the dispatcher processes the request, honoring
// ctx's deadline.
func (r *Runner) Metrics(ctx context.Context) (Metrics, error) {
	reply := make(chan Metrics, 1)
	select {
	case r.d.mailbox <- metricsMsg{reply: reply}:
	case <-ctx.Done():
		return Metrics{}, ctx.Err()
	}
	select {
	case m := <-reply:
		return m, nil
	case <-ctx.Done():
		return Metrics{}, ctx.Err()
	}
}

// Shutdown stops the runner: it rejects further Buffer calls, cancels the
// initial streamer if still running, and waits for in-flight handler
// invocations to complete up to cfg.ShutdownDeadline before abandoning
// whatever remains. It blocks until the dispatcher goroutine exits or ctx is
// done, whichever comes first.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case r.d.mailbox <- shutdownMsg{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
