package tiercache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/tier"
)

// Codec re-exports codec.Codec for Options literals.
type Codec[V any] = c.Codec[V]

// Source identifies which tier served a Get.
type Source string

// SourceMiss means no tier held a fresh value; the caller is responsible
// for producing one and writing it back via Set.
const SourceMiss Source = "miss"

// ProducerFunc produces a fresh value on a cache miss (search API call,
// transcript extraction, analysis request). The cache never retries a
// producer and forwards its errors unchanged; retry policy belongs to the
// producer.
type ProducerFunc[V any] func(ctx context.Context) (V, error)

// Cache is the per-namespace coordinator over a shared tier stack.
// V is the caller's value type; serialization is handled by a pluggable
// Codec[V], and tiers store opaque envelope bytes.
type Cache[V any] interface {
	Enabled() bool
	Close(ctx context.Context) error

	// Key returns the canonical storage key for params, or an
	// *InvalidKeyInputError when params cannot be canonicalized.
	Key(params any) (string, error)

	// Get probes tiers in increasing latency order, promoting hits into
	// faster tiers. A total miss is (zero, SourceMiss, nil), never an
	// error: the cache is not a source of hard failures.
	Get(ctx context.Context, params any) (V, Source, error)

	// GetOrProduce is Get plus value production on miss. Concurrent
	// produces for the same key are collapsed into one producer call.
	// Producer errors are forwarded unchanged; write-through failures do
	// not block the freshly produced value.
	GetOrProduce(ctx context.Context, params any, produce ProducerFunc[V]) (V, Source, error)

	// Set writes through to every ready tier in parallel with each tier's
	// own TTL. Partial failure is logged, never returned; failure on all
	// attempted tiers returns a *PersistenceWarning (non-fatal).
	Set(ctx context.Context, params any, value V) error

	// SetTTL is Set with one explicit TTL overriding every tier's default.
	SetTTL(ctx context.Context, params any, value V, ttl time.Duration) error

	// Invalidate removes the exact entry from all tiers.
	Invalidate(ctx context.Context, params any) error

	// InvalidateAll removes every entry of this namespace from all tiers.
	InvalidateAll(ctx context.Context) error

	// FilterUnseen returns the ids (in input order, de-duplicated) that
	// are neither fresh in any ready tier nor currently being produced.
	// It never claims an uncached id is cached: tier errors count as
	// unseen.
	FilterUnseen(ctx context.Context, ids []string) ([]string, error)

	// Flush forces any writes pending on the flush scheduler out to the
	// slowest tier.
	Flush(ctx context.Context) error

	// Stats returns a snapshot of the collector backing this cache.
	Stats() Stats
}

// Tier pairs a store with its coordinator-level configuration. Order in
// Options.Tiers is probe order: fastest first.
type Tier struct {
	Store  tier.Store
	Config tier.Config
}

// Options tune the behavior of the coordinator.
// Only Namespace, Tiers and Codec are required; others have defaults.
type Options[V any] struct {
	// Required
	Namespace string // logical namespace, e.g. "search", "transcript", "analysis"
	Tiers     []Tier // probe order, fastest first
	Codec     c.Codec[V]

	// KeyVersion is baked into every storage key so that changing the
	// payload shape invalidates old entries wholesale. 0 => 1.
	KeyVersion int

	Logger Logger          // if nil, NopLogger is used
	Hooks  Hooks           // if nil, NopHooks is used
	Stats  *StatsCollector // if nil, a private collector is created

	// FlushInterval > 0 coalesces writes to the slowest tier and flushes
	// them at most once per interval (plus on Flush/Close). 0 writes
	// through directly.
	FlushInterval time.Duration

	Disabled bool // default false (enabled)
}

// New constructs a coordinator. The instance is plain state: callers own
// its lifetime and pass it to whoever needs it; there is no package-level
// singleton.
func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
