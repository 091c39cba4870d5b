package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/silvergrove/batchrunner/internal/ingest"
)

// ingestService adapts the NATS subscriber to suture.Service so it runs as
// a supervised service under the ingestion layer.
type ingestService struct {
	sub *ingest.Subscriber
}

func (s *ingestService) Serve(ctx context.Context) error {
	err := s.sub.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return err
}

func (s *ingestService) String() string {
	return "nats-ingest"
}

// httpService adapts *http.Server to suture.Service so the API layer's
// server is supervised and shut down gracefully with the rest of the tree.
type httpService struct {
	server *http.Server
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *httpService) String() string {
	return "http-api"
}
