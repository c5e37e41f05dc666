// Package tier defines the storage abstraction used by tiercache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no
// prepended/appended metadata, no re-encoding, no mutation). If a store
// performs internal transforms (e.g., compression), they MUST be fully
// reversed so that the bytes returned by Get are identical to the bytes
// provided to Set.
//
// Stores are ordered by latency: volatile (in-process), local (per-device
// durable), remote (per-user durable over the network). Each tier enforces
// its own TTL independently; tiers are not required to be mutually
// consistent.
package tier

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Store interface {
	// Name identifies the tier in stats and logs (e.g. "volatile").
	Name() string

	// Ready reports whether the tier can serve requests right now.
	// A not-ready tier is skipped silently by the coordinator: no reads,
	// no writes, no stats recorded against it. Remote stores return false
	// when no identity scope is available.
	Ready(ctx context.Context) bool

	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL, replacing any previous value
	// for the key wholesale.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Has reports whether a non-expired value exists for key, without
	// reading it. Must not report true for a key Get would miss.
	Has(ctx context.Context, key string) (bool, error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// DelPrefix removes every key with the given prefix and returns how
	// many were removed (best-effort where the backend cannot count).
	DelPrefix(ctx context.Context, prefix string) (int, error)

	// Clear removes everything this store holds.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Config tunes one tier at the coordinator level. Zero values select the
// tier's own defaults. Capacity bounds live on the store configs
// (volatile.Config.MaxEntries, local.Config.MaxEntries), not here: the
// coordinator treats stores as opaque and cannot resize them.
type Config struct {
	// DefaultTTL applies when the coordinator writes without an explicit
	// TTL. Faster tiers conventionally use shorter TTLs.
	DefaultTTL time.Duration

	// Disabled gates the tier; a disabled tier behaves like one that is
	// never ready. Default false (enabled).
	Disabled bool
}

// Identity supplies the opaque per-user scope for remote stores. Absence
// of a scope disables the remote tier only; it never errors.
type Identity interface {
	// UserScope returns the scope token and whether one is available.
	UserScope(ctx context.Context) (string, bool)
}

// StaticIdentity is an Identity with a fixed scope. The zero value reports
// no scope.
type StaticIdentity string

func (s StaticIdentity) UserScope(context.Context) (string, bool) {
	return string(s), s != ""
}

// NoIdentity never supplies a scope.
type NoIdentity struct{}

func (NoIdentity) UserScope(context.Context) (string, bool) { return "", false }
