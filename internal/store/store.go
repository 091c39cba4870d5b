// Package store provides an embedded Badger-backed example of the Initial
// Streamer's collaborator capability: it enumerates a set of pre-existing
// pending items, once, by scanning a key prefix.
package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/time/rate"

	"github.com/silvergrove/batchrunner/internal/runner"
)

// Store wraps an embedded Badger database holding pending work items as
// key/value pairs under a single prefix.
type Store struct {
	db      *badger.DB
	prefix  []byte
	limiter *rate.Limiter
}

// Config configures an Open call.
type Config struct {
	Path string

	// Prefix scopes Stream's scan and Put's writes to a single keyspace,
	// so a store can hold more than one kind of record.
	Prefix string

	// RateLimitPerSec paces Stream's enumeration. Zero disables pacing.
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Open creates or opens a Badger database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", cfg.Path, err)
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerSec > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), burst)
	}

	return &Store{
		db:      db,
		prefix:  []byte(cfg.Prefix),
		limiter: limiter,
	}, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores one pending item under key, scoped to the store's prefix.
func (s *Store) Put(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(append([]byte{}, s.prefix...), key...), value)
	})
}

// Delete removes one pending item, typically once a handler has confirmed
// it was delivered.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(append(append([]byte{}, s.prefix...), key...))
	})
}

// Stream implements runner.StreamFunc: it scans every key under the store's
// prefix exactly once, in key order, folding each value into the
// accumulator via reduce. A configured rate limiter paces the scan so a
// very large keyspace does not starve the staging buffer's flush timer of
// CPU during startup enumeration.
func (s *Store) Stream(ctx context.Context, _ any, initial runner.Accumulator, reduce runner.ReduceFunc) (runner.Accumulator, error) {
	acc := initial

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var value []byte
			if err := item.Value(func(v []byte) error {
				value = append([]byte{}, v...)
				return nil
			}); err != nil {
				return fmt.Errorf("read value for key %q: %w", item.Key(), err)
			}
			acc = reduce(value, acc)
		}
		return nil
	})
	if err != nil {
		return runner.Accumulator{}, fmt.Errorf("stream store: %w", err)
	}
	return acc, nil
}
