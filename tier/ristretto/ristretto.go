// Package ristretto adapts dgraph-io/ristretto as a volatile tier for
// deployments that prefer admission-policy throughput over the exact LRU
// semantics of tier/volatile. Ristretto's TinyLFU admission is
// approximate: under pressure it may reject writes or evict entries that
// are not strictly the least recently used.
package ristretto

import (
	"context"
	"errors"
	"strings"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/tiercache/tier"
)

type Store struct {
	c *rc.Cache
}

var _ tier.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Name() string { return "volatile" }

func (s *Store) Ready(context.Context) bool { return true }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	// Rejection under pressure is acceptable for a cache; the entry simply
	// stays cold.
	s.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Store) Del(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

// DelPrefix drops the whole store: ristretto cannot enumerate keys, and for
// a cache over-invalidation is safe while under-invalidation is not.
func (s *Store) DelPrefix(_ context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, nil
	}
	s.c.Clear()
	return 0, nil
}

func (s *Store) Clear(context.Context) error {
	s.c.Clear()
	return nil
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's own counters to the application
// (not part of tier.Store).
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
