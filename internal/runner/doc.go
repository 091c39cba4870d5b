// Package runner implements a buffered batch task runner: a long-lived
// coordinator that accumulates opaque work items, groups them into
// bounded-size batches, and executes those batches concurrently through a
// user-supplied handler with a capped degree of parallelism, retrying
// batches that fail.
//
// # Overview
//
// A Runner mediates between three independent producers of work: a one-shot
// enumeration of pre-existing items pulled through a caller-supplied stream
// function, ad-hoc submissions via Buffer, and the handler invocations
// themselves, which may ask for their batch to be retried. All of this state
// is owned exclusively by a single dispatcher goroutine; every other
// goroutine communicates with it by sending a message over its mailbox, so
// the dispatcher itself never needs a lock.
//
// # Quick Start
//
//	r, err := runner.Start(ctx, handler, runner.Config{
//	    FlushInterval:  time.Second,
//	    MaxConcurrency: 8,
//	    MaxBatchSize:   100,
//	    InitChunkSize:  1000,
//	    Stream:         store.Stream,
//	    HandlerState:   state,
//	})
//	defer r.Shutdown(ctx)
//
//	err = r.Buffer(ctx, []runner.Item{item1, item2})
package runner
