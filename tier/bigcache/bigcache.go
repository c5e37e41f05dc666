// Package bigcache adapts allegro/bigcache as a volatile tier sized for
// large entry counts. BigCache has no per-entry TTL; the global LifeWindow
// applies, so the coordinator's envelope expiry is the effective TTL check.
package bigcache

import (
	"context"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/tiercache/tier"
)

type Store struct {
	c *bc.BigCache
}

var _ tier.Store = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Name() string { return "volatile" }

func (s *Store) Ready(context.Context) bool { return true }

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	// Per-entry TTL unsupported; LifeWindow governs.
	return s.c.Set(key, value)
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Store) Del(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (s *Store) DelPrefix(_ context.Context, prefix string) (int, error) {
	it := s.c.Iterator()
	var keys []string
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.Key(), prefix) {
			keys = append(keys, info.Key())
		}
	}
	removed := 0
	for _, k := range keys {
		if err := s.c.Delete(k); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Clear(context.Context) error {
	return s.c.Reset()
}

func (s *Store) Close(context.Context) error {
	return s.c.Close()
}
