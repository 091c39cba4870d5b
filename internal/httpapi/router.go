// Package httpapi exposes a runner's health, metrics, and buffer-ingestion
// surface over HTTP, composed the way the Chi ecosystem is wired elsewhere
// in this codebase: a small middleware stack applied globally, then
// per-route-group rate limiting on top.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/silvergrove/batchrunner/internal/logging"
)

// RateLimitHealth and RateLimitBuffer mirror the endpoint-specific rate
// limit tuning pattern: health checks are hit far more often, and far more
// harmlessly, than the buffer ingestion endpoint.
var (
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
	RateLimitBuffer = RateLimitConfig{Requests: 600, Window: time.Minute}
)

// RateLimitConfig defines the request budget for one route group.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Config configures the router's middleware stack.
type Config struct {
	CORSAllowedOrigins []string

	// RateLimitBuffer overrides the default buffer-endpoint rate limit. Zero
	// value keeps RateLimitBuffer's package default.
	RateLimitBuffer RateLimitConfig
}

// NewRouter builds the chi router exposing healthz, metrics, and buffer
// ingestion for api.
func NewRouter(api *API, cfg Config) http.Handler {
	bufferLimit := cfg.RateLimitBuffer
	if bufferLimit.Requests == 0 {
		bufferLimit = RateLimitBuffer
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogging)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler)
	r.Use(securityHeaders)

	r.Route("/healthz", func(r chi.Router) {
		r.Use(httprate.LimitByIP(RateLimitHealth.Requests, RateLimitHealth.Window))
		r.Get("/", api.Healthz)
	})

	r.Route("/metrics", func(r chi.Router) {
		r.Use(httprate.LimitByIP(RateLimitHealth.Requests, RateLimitHealth.Window))
		r.Handle("/", promhttp.Handler())
	})

	r.Route("/buffer", func(r chi.Router) {
		r.Use(httprate.LimitByIP(bufferLimit.Requests, bufferLimit.Window))
		r.Post("/", api.PostBuffer)
	})

	return r
}

// securityHeaders mirrors the no-store, no-sniff posture expected of a JSON
// API surface that is never meant to be framed or cached.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// requestLogging logs one structured line per request at the runner's
// logging level, tagging each with the request ID chi assigned.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
