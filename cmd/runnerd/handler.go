package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"

	json "github.com/goccy/go-json"

	"github.com/silvergrove/batchrunner/internal/runner"
)

// demoHandler is an example runner.Handler standing in for the "bounded
// pool of external callers (typically remote RPC)" named in the runner's
// purpose: it POSTs each batch to a downstream endpoint, with the call
// wrapped in a circuit breaker so a flaky downstream degrades to fast
// retries instead of piling up in-flight requests.
type demoHandler struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[runner.Outcome]
	url     string
}

func newDemoHandler(client *http.Client, breaker *gobreaker.CircuitBreaker[runner.Outcome], url string) runner.Handler {
	h := &demoHandler{
		client:  client,
		breaker: breaker,
		url:     url,
	}
	return h.run
}

func (h *demoHandler) run(ctx context.Context, batch runner.Batch, _ any) runner.Outcome {
	call := runner.WithBreaker(h.breaker, func(ctx context.Context) (runner.Outcome, error) {
		return h.post(ctx, batch)
	})
	return call(ctx)
}

func (h *demoHandler) post(ctx context.Context, batch runner.Batch) (runner.Outcome, error) {
	body, err := json.Marshal(batch.Items)
	if err != nil {
		return runner.Retry(), fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return runner.Retry(), fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return runner.Retry(), err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return runner.OK(), nil
	case resp.StatusCode == http.StatusPartialContent:
		// Downstream handled only part of the batch; the whole batch is
		// requeued through RetryWith.
		return runner.RetryWith(batch.Items), nil
	default:
		return runner.Retry(), fmt.Errorf("downstream returned status %d", resp.StatusCode)
	}
}
