// Package main is the entry point for runnerd, an example process hosting
// a single buffered batch task runner.
//
// # Application Architecture
//
// The process initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and an
//     optional config file (Koanf v2)
//  2. Logging: configure the global zerolog logger
//  3. Store: open the embedded Badger streaming collaborator
//  4. Supervisor tree: three layers (ingestion / dispatch / api)
//  5. Runner: start the dispatcher as a supervised dispatch-layer service
//  6. Ingest: optionally add a NATS subscriber feeding Runner.Buffer
//  7. HTTP API: healthz / metrics / buffer endpoints
//  8. Signal handling: graceful shutdown on SIGINT/SIGTERM
//
// # Example Usage
//
//	export RUNNER_MAX_CONCURRENCY=16
//	export STORE_PATH=/data/runnerd/store
//	export NATS_ENABLED=true
//	export NATS_URL=nats://127.0.0.1:4222
//	./runnerd
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/silvergrove/batchrunner/internal/config"
	"github.com/silvergrove/batchrunner/internal/httpapi"
	"github.com/silvergrove/batchrunner/internal/ingest"
	"github.com/silvergrove/batchrunner/internal/logging"
	"github.com/silvergrove/batchrunner/internal/metrics"
	"github.com/silvergrove/batchrunner/internal/runner"
	"github.com/silvergrove/batchrunner/internal/store"
	"github.com/silvergrove/batchrunner/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("runner", cfg.Runner.Name).Msg("Starting runnerd with supervisor tree")

	st, err := store.Open(store.Config{
		Path:            cfg.Store.Path,
		Prefix:          "pending:",
		RateLimitPerSec: cfg.Store.RateLimitPerSec,
		RateLimitBurst:  cfg.Store.RateLimitBurst,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Runner.ShutdownDeadline,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	breaker := runner.NewBreaker(runner.DefaultBreakerConfig(cfg.Runner.Name + "-downstream"))
	httpClient := &http.Client{Timeout: 10 * time.Second}
	handler := newDemoHandler(httpClient, breaker, cfg.Runner.DownstreamURL)

	runnerCfg := runner.Config{
		Name:             cfg.Runner.Name,
		FlushInterval:    cfg.Runner.FlushInterval,
		MaxConcurrency:   cfg.Runner.MaxConcurrency,
		MaxBatchSize:     cfg.Runner.MaxBatchSize,
		InitChunkSize:    cfg.Runner.InitChunkSize,
		Stream:           st.Stream,
		HandlerState:     nil,
		ShutdownDeadline: cfg.Runner.ShutdownDeadline,
		MailboxSize:      cfg.Runner.MailboxSize,
		Metrics:          metrics.Recorder{},
		Supervisor:       tree.Dispatch(),
	}
	if cfg.Runner.RetryBackoffEnabled {
		runnerCfg.RetryBackoff = &runner.RetryBackoffConfig{
			InitialBackoff:    cfg.Runner.RetryInitialBackoff,
			MaxBackoff:        cfg.Runner.RetryMaxBackoff,
			BackoffMultiplier: cfg.Runner.RetryBackoffMultiplier,
			JitterFraction:    cfg.Runner.RetryJitterFraction,
		}
	}

	r, err := runner.Start(ctx, handler, runnerCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to start runner")
	}

	if cfg.NATS.Enabled {
		sub, err := ingest.Connect(ingest.Config{
			URL:        cfg.NATS.URL,
			Subject:    cfg.NATS.Subject,
			QueueGroup: cfg.NATS.QueueGroup,
		}, r.Buffer)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect ingest subscriber")
		}
		defer func() {
			if err := sub.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing ingest subscriber")
			}
		}()
		tree.AddIngestionService(&ingestService{sub: sub})
		logging.Info().Str("subject", cfg.NATS.Subject).Msg("NATS ingest subscriber added to supervisor tree")
	}

	api := &httpapi.API{Runner: r, RequestTimeout: cfg.Server.ReadHeaderTimeout}
	httpRouter := httpapi.NewRouter(api, httpapi.Config{CORSAllowedOrigins: cfg.Server.CORSOrigins})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	tree.AddAPIService(&httpService{server: httpServer})
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("runnerd stopped gracefully")
}
