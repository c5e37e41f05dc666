// Package local is the durable per-device tier, backed by SQLite
// (modernc.org/sqlite, pure Go). It survives process restarts but is not
// shared across devices. Larger and slower than the volatile tier: default
// capacity 500 entries, default TTL 24h. Capacity pruning is LRU on the
// last_accessed column; expiry is lazy on read plus a periodic sweep.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	DefaultMaxEntries = 500
	DefaultTTL        = 24 * time.Hour
	defaultSweep      = 15 * time.Minute
)

type Store struct {
	db      *sql.DB
	max     int
	onEvict func(n int)

	mu     sync.Mutex
	closed bool

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type Config struct {
	// Path to the database file. Required. Use a file under the
	// application's data directory; ":memory:" works for tests.
	Path string
	// MaxEntries caps the store; 0 => DefaultMaxEntries, negative => unbounded.
	MaxEntries int
	// SweepInterval for eager expiry; 0 => 15m, negative disables the sweep.
	SweepInterval time.Duration
	// OnEvict is called with the number of rows removed by each capacity
	// prune. Optional; keep it cheap, it runs on the Set path.
	OnEvict func(n int)
}

func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("local: path is required")
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("local: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local: init schema: %w", err)
	}

	s := &Store{db: db, max: cfg.MaxEntries, onEvict: cfg.OnEvict}
	if s.max == 0 {
		s.max = DefaultMaxEntries
	}

	sweep := cfg.SweepInterval
	if sweep == 0 {
		sweep = defaultSweep
	}
	if sweep > 0 {
		s.ticker = time.NewTicker(sweep)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					_, _ = s.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`,
						time.Now().UnixNano())
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		k             TEXT PRIMARY KEY,
		v             BLOB NOT NULL,
		expires_at    INTEGER NOT NULL,
		last_accessed INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache_entries(expires_at)`); err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_lru ON cache_entries(last_accessed)`)
	return err
}

func (s *Store) Name() string { return "local" }

func (s *Store) Ready(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := time.Now().UnixNano()

	var v []byte
	var exp int64
	err := s.db.QueryRowContext(ctx,
		`SELECT v, expires_at FROM cache_entries WHERE k = ?`, key).Scan(&v, &exp)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if exp <= now {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE k = ?`, key)
		return nil, false, nil
	}
	// LRU bookkeeping; best-effort, a lost bump only skews eviction order.
	_, _ = s.db.ExecContext(ctx,
		`UPDATE cache_entries SET last_accessed = ? WHERE k = ?`, now, key)
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (k, v, expires_at, last_accessed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET
		   v = excluded.v,
		   expires_at = excluded.expires_at,
		   last_accessed = excluded.last_accessed`,
		key, value, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return err
	}
	return s.prune(ctx)
}

// prune evicts least-recently-accessed rows when over capacity.
func (s *Store) prune(ctx context.Context) error {
	if s.max <= 0 {
		return nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return err
	}
	if count <= s.max {
		return nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE k IN (
		   SELECT k FROM cache_entries ORDER BY last_accessed ASC LIMIT ?
		 )`, count-s.max)
	if err != nil {
		return err
	}
	if s.onEvict != nil {
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			s.onEvict(int(n))
		}
	}
	return nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM cache_entries WHERE k = ? AND expires_at > ?`,
		key, time.Now().UnixNano()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE k = ?`, key)
	return err
}

func (s *Store) DelPrefix(ctx context.Context, prefix string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE substr(k, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.stopCh != nil {
		close(s.stopCh)
		s.ticker.Stop()
		s.wg.Wait()
	}
	return s.db.Close()
}
