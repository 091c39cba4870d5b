// Package ingest provides an ad-hoc NATS producer that forwards inbound
// messages into a runner's staging buffer via Buffer.
package ingest

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/silvergrove/batchrunner/internal/logging"
	"github.com/silvergrove/batchrunner/internal/runner"
)

// BufferFunc is the subset of *runner.Runner the subscriber depends on,
// narrowed for testability.
type BufferFunc func(ctx context.Context, items []runner.Item) error

// Config configures a Subscriber.
type Config struct {
	URL        string
	Subject    string
	QueueGroup string
}

// Subscriber forwards every message received on Config.Subject to a
// runner's Buffer, one item per message. It performs no batching of its
// own; the staging buffer and flush timer on the receiving end own that.
type Subscriber struct {
	conn   *nats.Conn
	owned  bool
	cfg    Config
	buffer BufferFunc
}

// Connect dials cfg.URL and returns a Subscriber that owns the connection
// it opened; Close tears it down.
func Connect(cfg Config, buffer BufferFunc) (*Subscriber, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	return &Subscriber{conn: conn, owned: true, cfg: cfg, buffer: buffer}, nil
}

// New wraps an existing, externally-managed NATS connection. Close leaves
// the connection open.
func New(conn *nats.Conn, cfg Config, buffer BufferFunc) *Subscriber {
	return &Subscriber{conn: conn, owned: false, cfg: cfg, buffer: buffer}
}

// Run subscribes to cfg.Subject (queue-grouped when cfg.QueueGroup is set)
// and forwards every message's payload to buffer until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, 64)

	var sub *nats.Subscription
	var err error
	if s.cfg.QueueGroup != "" {
		sub, err = s.conn.ChanQueueSubscribe(s.cfg.Subject, s.cfg.QueueGroup, msgs)
	} else {
		sub, err = s.conn.ChanSubscribe(s.cfg.Subject, msgs)
	}
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.cfg.Subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			if err := s.buffer(ctx, []runner.Item{msg.Data}); err != nil {
				logging.Error().Err(err).Str("subject", s.cfg.Subject).Msg("failed to buffer ingested message")
			}
		}
	}
}

// Close shuts down the subscriber's owned connection, if any.
func (s *Subscriber) Close() error {
	if s.owned {
		s.conn.Close()
	}
	return nil
}
