package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/silvergrove/batchrunner/internal/runner"
)

func startTestRunner(t *testing.T, handler runner.Handler) *runner.Runner {
	t.Helper()
	cfg := runner.Config{
		FlushInterval:  10 * time.Millisecond,
		MaxConcurrency: 2,
		MaxBatchSize:   10,
		InitChunkSize:  10,
		Stream: func(_ context.Context, _ any, initial runner.Accumulator, _ runner.ReduceFunc) (runner.Accumulator, error) {
			return initial, nil
		},
	}
	r, err := runner.Start(context.Background(), handler, cfg)
	if err != nil {
		t.Fatalf("runner.Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Shutdown(ctx)
	})
	return r
}

func TestHealthzReturnsOK(t *testing.T) {
	r := startTestRunner(t, func(_ context.Context, _ runner.Batch, _ any) runner.Outcome { return runner.OK() })
	srv := httptest.NewServer(NewRouter(&API{Runner: r}, Config{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz/")
	if err != nil {
		t.Fatalf("GET /healthz/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPostBufferAcceptsItems(t *testing.T) {
	var mu sync.Mutex
	var received []runner.Item
	done := make(chan struct{})

	handler := func(_ context.Context, batch runner.Batch, _ any) runner.Outcome {
		mu.Lock()
		received = append(received, batch.Items...)
		n := len(received)
		mu.Unlock()
		if n >= 2 {
			select {
			case <-done:
			default:
				close(done)
			}
		}
		return runner.OK()
	}
	r := startTestRunner(t, handler)
	srv := httptest.NewServer(NewRouter(&API{Runner: r}, Config{}))
	defer srv.Close()

	body := bufferRequest{Items: []string{
		base64.StdEncoding.EncodeToString([]byte("one")),
		base64.StdEncoding.EncodeToString([]byte("two")),
	}}
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	resp, err := http.Post(srv.URL+"/buffer/", "application/json", strings.NewReader(string(encoded)))
	if err != nil {
		t.Fatalf("POST /buffer/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not observe both items")
	}
}

func TestPostBufferRejectsInvalidBase64(t *testing.T) {
	r := startTestRunner(t, func(_ context.Context, _ runner.Batch, _ any) runner.Outcome { return runner.OK() })
	srv := httptest.NewServer(NewRouter(&API{Runner: r}, Config{}))
	defer srv.Close()

	body := `{"items": ["not-valid-base64!!"]}`
	resp, err := http.Post(srv.URL+"/buffer/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /buffer/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPostBufferRejectsEmptyItems(t *testing.T) {
	r := startTestRunner(t, func(_ context.Context, _ runner.Batch, _ any) runner.Outcome { return runner.OK() })
	srv := httptest.NewServer(NewRouter(&API{Runner: r}, Config{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/buffer/", "application/json", strings.NewReader(`{"items": []}`))
	if err != nil {
		t.Fatalf("POST /buffer/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMetricsEndpointServesPrometheusExposition(t *testing.T) {
	r := startTestRunner(t, func(_ context.Context, _ runner.Batch, _ any) runner.Outcome { return runner.OK() })
	srv := httptest.NewServer(NewRouter(&API{Runner: r}, Config{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics/")
	if err != nil {
		t.Fatalf("GET /metrics/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
