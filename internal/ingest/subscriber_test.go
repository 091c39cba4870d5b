package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/silvergrove/batchrunner/internal/runner"
)

func startTestServer(t *testing.T) *server.Server {
	t.Helper()
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1, // random free port
		NoLog:     true,
		NoSigs:    true,
		JetStream: false,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready within timeout")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestSubscriberForwardsMessagesToBuffer(t *testing.T) {
	ns := startTestServer(t)

	var mu sync.Mutex
	var received []runner.Item
	done := make(chan struct{})

	bufferFn := func(_ context.Context, items []runner.Item) error {
		mu.Lock()
		received = append(received, items...)
		n := len(received)
		mu.Unlock()
		if n >= 2 {
			select {
			case <-done:
			default:
				close(done)
			}
		}
		return nil
	}

	sub, err := Connect(Config{URL: ns.ClientURL(), Subject: "batchrunner.test"}, bufferFn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sub.Run(ctx)

	pub, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("publisher Connect: %v", err)
	}
	defer pub.Close()

	if err := pub.Publish("batchrunner.test", []byte("one")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Publish("batchrunner.test", []byte("two")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not forward both messages")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected 2 items buffered, got %d", len(received))
	}
}
