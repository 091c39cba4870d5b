package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/silvergrove/batchrunner/internal/runner"
)

// API adapts a runner to HTTP handlers. It holds no state of its own beyond
// the runner handle and a request timeout applied to every call.
type API struct {
	Runner         *runner.Runner
	RequestTimeout time.Duration
}

// bufferRequest is the POST /buffer/ request body: a batch of items, each
// a base64-encoded byte payload.
type bufferRequest struct {
	Items []string `json:"items"`
}

type bufferResponse struct {
	Accepted int `json:"accepted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Healthz reports liveness. It does not reach into the dispatcher: a
// process that can still serve HTTP is alive by definition, and readiness
// (is the dispatcher keeping up) is better judged from Metrics.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PostBuffer decodes a batch of base64 items and hands them to the
// runner's Buffer, returning 202 once the dispatcher has accepted them
// into its staging buffer.
func (a *API) PostBuffer(w http.ResponseWriter, r *http.Request) {
	var req bufferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "items must not be empty"})
		return
	}

	items := make([]runner.Item, 0, len(req.Items))
	for _, encoded := range req.Items {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "items must be base64-encoded"})
			return
		}
		items = append(items, runner.Item(decoded))
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.requestTimeout())
	defer cancel()

	if err := a.Runner.Buffer(ctx, items); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, bufferResponse{Accepted: len(items)})
}

func (a *API) requestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return 5 * time.Second
	}
	return a.RequestTimeout
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
