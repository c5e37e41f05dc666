// Package remote is the per-user durable tier, backed by Redis. It is the
// slowest tier and the only one shared across devices for one user: every
// key is scoped by the identity's user token, so nothing leaks between
// users. Without an identity scope the tier is a silent no-op: it reports
// not ready, yields no hits and accepts no writes, but never errors.
package remote

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache/tier"
)

const DefaultTTL = 7 * 24 * time.Hour

var ErrNilClient = errors.New("remote: nil client")

type Store struct {
	rdb         goredis.UniversalClient
	identity    tier.Identity
	closeClient bool
}

var _ tier.Store = (*Store)(nil)

type Config struct {
	Client   goredis.UniversalClient
	Identity tier.Identity
	// CloseClient: set true only if this store exclusively owns the client.
	CloseClient bool
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	id := cfg.Identity
	if id == nil {
		id = tier.NoIdentity{}
	}
	return &Store{rdb: cfg.Client, identity: id, closeClient: cfg.CloseClient}, nil
}

func (s *Store) Name() string { return "remote" }

func (s *Store) Ready(ctx context.Context) bool {
	_, ok := s.identity.UserScope(ctx)
	return ok
}

// scoped prefixes the key with the user scope. Row-level isolation between
// users is assumed guaranteed by the backend keyspace.
func (s *Store) scoped(ctx context.Context, key string) (string, bool) {
	scope, ok := s.identity.UserScope(ctx)
	if !ok {
		return "", false
	}
	return "u:" + scope + ":" + key, true
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, ok := s.scoped(ctx, key)
	if !ok {
		return nil, false, nil
	}
	b, err := s.rdb.Get(ctx, k).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k, ok := s.scoped(ctx, key)
	if !ok {
		return nil // identity absent: accept and drop
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.rdb.Set(ctx, k, value, ttl).Err()
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	k, ok := s.scoped(ctx, key)
	if !ok {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, k).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	k, ok := s.scoped(ctx, key)
	if !ok {
		return nil
	}
	return s.rdb.Del(ctx, k).Err()
}

// DelPrefix scans the user's keyspace and deletes matches. SCAN-based, so
// best-effort under concurrent writers.
func (s *Store) DelPrefix(ctx context.Context, prefix string) (int, error) {
	p, ok := s.scoped(ctx, prefix)
	if !ok {
		return 0, nil
	}
	return s.deleteScan(ctx, p+"*")
}

// Clear removes everything under the current user scope only.
func (s *Store) Clear(ctx context.Context) error {
	scope, ok := s.identity.UserScope(ctx)
	if !ok {
		return nil
	}
	_, err := s.deleteScan(ctx, "u:"+scope+":*")
	return err
}

func (s *Store) deleteScan(ctx context.Context, match string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := s.rdb.Del(ctx, keys...).Result()
			removed += int(n)
			if err != nil {
				return removed, err
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
