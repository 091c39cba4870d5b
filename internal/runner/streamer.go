package runner

import (
	"context"
	"fmt"
)

// streamerState tracks the single initial streamer's lifecycle. At most one
// exists per Runner.
type streamerState int

const (
	streamerNotStarted streamerState = iota
	streamerRunning
	streamerComplete
)

// newReduceFunc builds the reduce closure passed to the collaborator's
// StreamFunc. It implements the chunk-and-deliver behavior: once the
// running count reaches chunkSize, the accumulated items are chunked into
// maxBatchSize segments and handed to the dispatcher via async-enqueue,
// and the accumulator resets to empty.
func newReduceFunc(chunkSize, maxBatchSize int, deliver func([]queuedBatch)) ReduceFunc {
	return func(item Item, acc Accumulator) Accumulator {
		acc.Pending = append(acc.Pending, item)
		acc.Count++
		if acc.Count >= chunkSize {
			deliver(buildSubQueue(acc.Pending, maxBatchSize))
			return Accumulator{}
		}
		return acc
	}
}

// buildSubQueue chunks a flat item slice into fresh (segment, 0) records.
func buildSubQueue(items []Item, maxBatchSize int) []queuedBatch {
	chunks := chunkItems(items, maxBatchSize)
	subQueue := make([]queuedBatch, 0, len(chunks))
	for _, c := range chunks {
		subQueue = append(subQueue, queuedBatch{items: c, retries: 0})
	}
	return subQueue
}

// runInitialStreamer drives the collaborator's StreamFunc to completion,
// delivering chunked sub-queues to the dispatcher's mailbox as they become
// ready, and finally reporting its own termination (normal or abnormal) via
// a handler-crashed message on the sentinel streamer token.
func (d *Dispatcher) runInitialStreamer(ctx context.Context) {
	deliver := func(sub []queuedBatch) {
		if len(sub) == 0 {
			return
		}
		select {
		case d.mailbox <- asyncEnqueueMsg{batches: sub}:
		case <-ctx.Done():
		}
	}
	reduce := newReduceFunc(d.cfg.InitChunkSize, d.cfg.MaxBatchSize, deliver)

	defer func() {
		if r := recover(); r != nil {
			d.postStreamerDone(ctx, fmt.Errorf("initial streamer panic: %v", r))
		}
	}()

	final, err := d.cfg.Stream(ctx, d.cfg.HandlerState, Accumulator{}, reduce)
	if err != nil {
		d.postStreamerDone(ctx, fmt.Errorf("initial streamer: %w", err))
		return
	}
	if final.Count > 0 {
		deliver(buildSubQueue(final.Pending, d.cfg.MaxBatchSize))
	}
	d.postStreamerDone(ctx, nil)
}

func (d *Dispatcher) postStreamerDone(ctx context.Context, reason error) {
	select {
	case d.mailbox <- handlerCrashedMsg{token: streamerToken, reason: reason}:
	case <-ctx.Done():
	}
}
