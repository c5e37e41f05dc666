// Package stack assembles the standard three-tier store stack (volatile,
// local, remote) from one config. It exists so applications do not repeat
// the same wiring: capacity-eviction stats, optional tiers, shared-store
// teardown. The coordinator never closes stores, so Build returns a close
// function the caller owns.
package stack

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/tier"
	"github.com/unkn0wn-root/tiercache/tier/local"
	"github.com/unkn0wn-root/tiercache/tier/remote"
	"github.com/unkn0wn-root/tiercache/tier/volatile"
)

type Config struct {
	// Volatile tier. Always built.
	VolatileMaxEntries int           // 0 => 50
	VolatileTTL        time.Duration // 0 => 30m

	// Local tier. Skipped when LocalPath is empty.
	LocalPath       string
	LocalMaxEntries int           // 0 => 500
	LocalTTL        time.Duration // 0 => 24h

	// Remote tier. Skipped when Redis is nil. Without an Identity the tier
	// is built but stays not-ready (a silent no-op) until a scope appears.
	Redis            goredis.UniversalClient
	Identity         tier.Identity
	CloseRedisClient bool
	RemoteTTL        time.Duration // 0 => 7d

	// Stats receives capacity-eviction counts from the bounded tiers
	// (volatile and local).
	Stats *tiercache.StatsCollector
}

// Build returns the tier slice in probe order plus a close function that
// tears down every store Build created. The same slice can back any number
// of Cache namespaces.
func Build(cfg Config) ([]tiercache.Tier, func(ctx context.Context) error, error) {
	var (
		tiers  []tiercache.Tier
		stores []tier.Store
	)

	var onEvict func(string)
	if cfg.Stats != nil {
		st := cfg.Stats
		onEvict = func(string) { st.RecordEviction() }
	}
	vol := volatile.New(volatile.Config{
		MaxEntries: cfg.VolatileMaxEntries,
		OnEvict:    onEvict,
	})
	stores = append(stores, vol)
	tiers = append(tiers, tiercache.Tier{
		Store:  vol,
		Config: tier.Config{DefaultTTL: cfg.VolatileTTL},
	})

	if cfg.LocalPath != "" {
		var onPrune func(int)
		if cfg.Stats != nil {
			st := cfg.Stats
			onPrune = st.RecordEvictions
		}
		loc, err := local.New(local.Config{
			Path:       cfg.LocalPath,
			MaxEntries: cfg.LocalMaxEntries,
			OnEvict:    onPrune,
		})
		if err != nil {
			closeAll(stores)
			return nil, nil, err
		}
		stores = append(stores, loc)
		tiers = append(tiers, tiercache.Tier{
			Store:  loc,
			Config: tier.Config{DefaultTTL: cfg.LocalTTL},
		})
	}

	if cfg.Redis != nil {
		rem, err := remote.New(remote.Config{
			Client:      cfg.Redis,
			Identity:    cfg.Identity,
			CloseClient: cfg.CloseRedisClient,
		})
		if err != nil {
			closeAll(stores)
			return nil, nil, err
		}
		stores = append(stores, rem)
		tiers = append(tiers, tiercache.Tier{
			Store:  rem,
			Config: tier.Config{DefaultTTL: cfg.RemoteTTL},
		})
	}

	closeFn := func(ctx context.Context) error {
		var errs []error
		for _, s := range stores {
			if err := s.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return tiers, closeFn, nil
}

func closeAll(stores []tier.Store) {
	for _, s := range stores {
		_ = s.Close(context.Background())
	}
}
