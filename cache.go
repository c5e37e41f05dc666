package tiercache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/tiercache/internal/keyutil"
	"github.com/unkn0wn-root/tiercache/internal/wire"
)

// Fallback envelope TTLs per well-known tier name, matching the tier
// packages' own defaults. Unknown tiers get fallbackTTL.
var defaultTTLs = map[string]time.Duration{
	"volatile": 30 * time.Minute,
	"local":    24 * time.Hour,
	"remote":   7 * 24 * time.Hour,
}

const fallbackTTL = 10 * time.Minute

type cache[V any] struct {
	ns      string
	version int
	tiers   []Tier
	codec   Codec[V]
	log     Logger
	hooks   Hooks
	stats   *StatsCollector
	enabled bool

	group    singleflight.Group
	inflight sync.Map // storage key -> struct{}, while a produce is running

	flusher *flusher // nil => direct write-through to the slowest tier too

	closeOnce sync.Once
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Namespace == "" {
		return nil, fmt.Errorf("tiercache: namespace is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("tiercache: codec is required")
	}
	if len(opts.Tiers) == 0 {
		return nil, fmt.Errorf("tiercache: at least one tier is required")
	}

	tiers := make([]Tier, 0, len(opts.Tiers))
	for _, t := range opts.Tiers {
		if t.Store == nil {
			return nil, fmt.Errorf("tiercache: nil tier store")
		}
		if t.Config.Disabled {
			continue
		}
		tiers = append(tiers, t)
	}

	c := &cache[V]{
		ns:      opts.Namespace,
		tiers:   tiers,
		codec:   opts.Codec,
		enabled: !opts.Disabled && len(tiers) > 0,
	}

	// defaults
	c.version = coalesce(opts.KeyVersion, 1)
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.stats = opts.Stats
	if c.stats == nil {
		c.stats = NewStatsCollector()
	}

	// Coalescing writes to a single tier would defeat the round-trip law,
	// so the scheduler only engages with at least two tiers.
	if opts.FlushInterval > 0 && len(tiers) > 1 {
		c.flusher = newFlusher(tiers[len(tiers)-1], opts.FlushInterval, c.stats, c.hooks, c.log)
	}
	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

// Close stops background work (the flush scheduler) after a final flush.
// It does NOT close the tier stores: they may be shared by other
// namespaces and are owned by whoever constructed them.
func (c *cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		if c.flusher != nil {
			c.flusher.close(ctx)
		}
	})
	return nil
}

func (c *cache[V]) Stats() Stats { return c.stats.Snapshot() }

// Key canonicalizes params and derives the storage key. Canonicalization
// (sorted keys, lowercased strings, dropped nulls) guarantees that
// semantically identical requests map to the same key regardless of field
// order.
func (c *cache[V]) Key(params any) (string, error) {
	d, err := keyutil.Digest(params)
	if err != nil {
		return "", &InvalidKeyInputError{Namespace: c.ns, Err: err}
	}
	return fmt.Sprintf("%s:v%d:%s", c.ns, c.version, d), nil
}

// prefix covers every key of this namespace, across key versions.
func (c *cache[V]) prefix() string { return c.ns + ":" }

func (c *cache[V]) Get(ctx context.Context, params any) (V, Source, error) {
	var zero V
	if !c.enabled {
		return zero, SourceMiss, nil
	}
	key, err := c.Key(params)
	if err != nil {
		return zero, SourceMiss, err
	}
	return c.getByKey(ctx, key)
}

func (c *cache[V]) getByKey(ctx context.Context, key string) (V, Source, error) {
	var zero V
	now := time.Now()
	c.stats.RecordRequest()

	for i, t := range c.tiers {
		name := t.Store.Name()
		if !t.Store.Ready(ctx) {
			c.hooks.TierSkipped(name, "not_ready")
			continue
		}
		raw, ok, err := t.Store.Get(ctx, key)
		if err != nil {
			// tier trouble is never the caller's problem; keep probing
			c.hooks.TierSkipped(name, "get_error")
			c.log.Warn("tier get failed", Fields{"tier": name, "key": key, "err": err})
			continue
		}
		if !ok {
			continue
		}

		e, err := wire.Decode(raw)
		if err != nil {
			c.selfHeal(ctx, t, key, "corrupt", err)
			continue
		}
		if e.Expired(now) {
			c.selfHeal(ctx, t, key, "expired", nil)
			continue
		}
		v, err := c.codec.Decode(e.Payload)
		if err != nil {
			c.selfHeal(ctx, t, key, "value_decode", err)
			continue
		}

		c.stats.RecordHit(name)
		c.touchAndPromote(ctx, i, key, e.Touch(now), now)
		return v, Source(name), nil
	}

	c.stats.RecordMiss()
	return zero, SourceMiss, nil
}

// selfHeal drops an entry the read path could not use. The caller sees a
// plain miss; the detail goes to hooks and debug logs only.
func (c *cache[V]) selfHeal(ctx context.Context, t Tier, key, reason string, cause error) {
	name := t.Store.Name()
	_ = t.Store.Del(context.WithoutCancel(ctx), key)
	c.stats.RecordSelfHeal()
	c.hooks.SelfHeal(name, key, reason)
	if cause != nil {
		derr := &DeserializationError{Tier: name, Key: key, Err: cause}
		c.log.Debug("self-healed entry", Fields{"reason": reason, "err": derr.Error()})
	} else {
		c.log.Debug("self-healed entry", Fields{"reason": reason, "tier": name, "key": key})
	}
}

// touchAndPromote writes bumped access metadata back to the hit tier and
// copies the entry into every faster tier with that tier's own TTL.
// Best-effort on a detached context: caller cancellation does not abandon
// the writes.
func (c *cache[V]) touchAndPromote(ctx context.Context, hit int, key string, e wire.Entry, now time.Time) {
	bg := context.WithoutCancel(ctx)
	hitTier := c.tiers[hit]

	// Access-metadata write-back keeps the entry's original expiry. Skip
	// it when the hit tier is governed by the flush scheduler: a metadata
	// bump is not worth a remote round trip there.
	if c.flusher == nil || hit != len(c.tiers)-1 {
		remaining := time.Until(time.Unix(0, e.ExpiresAt))
		if err := hitTier.Store.Set(bg, key, wire.Encode(e), remaining); err != nil {
			c.log.Debug("access metadata write-back failed",
				Fields{"tier": hitTier.Store.Name(), "key": key, "err": err})
		}
	}

	if hit == 0 {
		return
	}
	for j := 0; j < hit; j++ {
		f := c.tiers[j]
		if !f.Store.Ready(ctx) {
			continue
		}
		name := f.Store.Name()
		ttl := c.tierTTL(f)
		promoted := wire.Entry{
			CachedAt:       e.CachedAt,
			ExpiresAt:      now.Add(ttl).UnixNano(),
			LastAccessedAt: e.LastAccessedAt,
			AccessCount:    e.AccessCount,
			Payload:        e.Payload,
		}
		c.stats.RecordWrite(name)
		if err := f.Store.Set(bg, key, wire.Encode(promoted), ttl); err != nil {
			c.stats.RecordWriteFailure(name)
			c.log.Warn("promotion write failed", Fields{"tier": name, "key": key, "err": err})
		}
	}
	c.hooks.Promoted(key, hitTier.Store.Name())
}

func (c *cache[V]) tierTTL(t Tier) time.Duration {
	if t.Config.DefaultTTL > 0 {
		return t.Config.DefaultTTL
	}
	if d, ok := defaultTTLs[t.Store.Name()]; ok {
		return d
	}
	return fallbackTTL
}

func (c *cache[V]) Set(ctx context.Context, params any, value V) error {
	return c.SetTTL(ctx, params, value, 0)
}

func (c *cache[V]) SetTTL(ctx context.Context, params any, value V, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	key, err := c.Key(params)
	if err != nil {
		return err
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("tiercache: encode %q: %w", key, err)
	}
	return c.writeThrough(ctx, key, payload, ttl)
}

// writeThrough writes payload to every ready tier in parallel. Per-tier
// envelopes carry per-tier TTLs unless ttlOverride is set. Concurrent
// writes to the same key race; the last write to complete wins. No merge
// semantics: values here are derived and recomputable.
func (c *cache[V]) writeThrough(ctx context.Context, key string, payload []byte, ttlOverride time.Duration) error {
	now := time.Now()
	bg := context.WithoutCancel(ctx)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		attempted int
		errs      []error
	)
	for i, t := range c.tiers {
		ttl := ttlOverride
		if ttl <= 0 {
			ttl = c.tierTTL(t)
		}
		encoded := wire.Encode(wire.NewEntry(payload, now, ttl))

		if c.flusher != nil && i == len(c.tiers)-1 {
			c.flusher.enqueue(key, encoded, ttl)
			continue
		}
		if !t.Store.Ready(ctx) {
			c.hooks.TierSkipped(t.Store.Name(), "not_ready")
			continue
		}

		attempted++
		wg.Add(1)
		go func(t Tier, encoded []byte, ttl time.Duration) {
			defer wg.Done()
			name := t.Store.Name()
			c.stats.RecordWrite(name)
			if err := t.Store.Set(bg, key, encoded, ttl); err != nil {
				c.stats.RecordWriteFailure(name)
				c.hooks.WriteFailed(name, key, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}(t, encoded, ttl)
	}
	wg.Wait()

	if attempted > 0 && len(errs) == attempted {
		c.hooks.AllWritesFailed(key, attempted)
		return &PersistenceWarning{Key: key, Errs: errs}
	}
	if len(errs) > 0 {
		c.log.Warn("write-through partially failed",
			Fields{"key": key, "failed": len(errs), "attempted": attempted})
	}
	return nil
}

func (c *cache[V]) GetOrProduce(ctx context.Context, params any, produce ProducerFunc[V]) (V, Source, error) {
	var zero V
	key, err := c.Key(params)
	if err != nil {
		return zero, SourceMiss, err
	}

	if c.enabled {
		if v, src, err := c.getByKey(ctx, key); err == nil && src != SourceMiss {
			return v, src, nil
		}
	}

	// Track the in-flight produce so FilterUnseen can exclude the id.
	c.inflight.Store(key, struct{}{})
	defer c.inflight.Delete(key)

	res, err, shared := c.group.Do(key, func() (any, error) {
		v, err := produce(ctx)
		if err != nil {
			// producer errors pass through untouched; no retry here
			return nil, err
		}
		if !c.enabled {
			return v, nil
		}
		payload, encErr := c.codec.Encode(v)
		if encErr != nil {
			c.log.Warn("produced value not cacheable", Fields{"key": key, "err": encErr})
			return v, nil
		}
		if werr := c.writeThrough(ctx, key, payload, 0); werr != nil {
			// cache failure never blocks the produced value
			c.log.Warn("produced value could not be persisted", Fields{"key": key, "err": werr})
		}
		return v, nil
	})
	if err != nil {
		return zero, SourceMiss, err
	}
	if shared {
		c.log.Debug("producer call shared across concurrent callers", Fields{"key": key})
	}
	return res.(V), SourceMiss, nil
}

func (c *cache[V]) Invalidate(ctx context.Context, params any) error {
	if !c.enabled {
		return nil
	}
	key, err := c.Key(params)
	if err != nil {
		return err
	}
	if c.flusher != nil {
		c.flusher.drop(key)
	}
	bg := context.WithoutCancel(ctx)
	for _, t := range c.tiers {
		if !t.Store.Ready(ctx) {
			continue
		}
		if err := t.Store.Del(bg, key); err != nil {
			c.log.Warn("invalidate failed on tier",
				Fields{"tier": t.Store.Name(), "key": key, "err": err})
		}
	}
	return nil
}

func (c *cache[V]) InvalidateAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	if c.flusher != nil {
		c.flusher.dropPrefix(c.prefix())
	}
	bg := context.WithoutCancel(ctx)
	removed := 0
	for _, t := range c.tiers {
		if !t.Store.Ready(ctx) {
			continue
		}
		n, err := t.Store.DelPrefix(bg, c.prefix())
		if err != nil {
			c.log.Warn("namespace invalidation failed on tier",
				Fields{"tier": t.Store.Name(), "ns": c.ns, "err": err})
			continue
		}
		removed += n
	}
	c.log.Debug("namespace invalidated", Fields{"ns": c.ns, "removed": removed})
	return nil
}

func (c *cache[V]) Flush(ctx context.Context) error {
	if c.flusher == nil {
		return nil
	}
	return c.flusher.flush(ctx)
}
