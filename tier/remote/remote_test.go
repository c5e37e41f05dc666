package remote

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache/tier"
)

// Identity-absent behavior needs no server: every operation short-circuits
// before touching the client.
func TestNoIdentityIsSilentNoOp(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{
		Client:   goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}), // never dialed
		Identity: tier.NoIdentity{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(ctx)

	if s.Ready(ctx) {
		t.Fatalf("store without identity must not be ready")
	}
	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set without identity must not error: %v", err)
	}
	if _, ok, err := s.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get without identity must miss silently: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Has(ctx, "k"); err != nil || ok {
		t.Fatalf("Has without identity: ok=%v err=%v", ok, err)
	}
	if err := s.Del(ctx, "k"); err != nil {
		t.Fatalf("Del without identity: %v", err)
	}
	if n, err := s.DelPrefix(ctx, "search:"); err != nil || n != 0 {
		t.Fatalf("DelPrefix without identity: n=%d err=%v", n, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear without identity: %v", err)
	}
}

func TestNilClientRejected(t *testing.T) {
	if _, err := New(Config{Identity: tier.StaticIdentity("u1")}); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestScopedKeyIsolation(t *testing.T) {
	ctx := context.Background()
	s, _ := New(Config{
		Client:   goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}),
		Identity: tier.StaticIdentity("user-42"),
	})
	defer s.Close(ctx)

	k, ok := s.scoped(ctx, "transcript:v1:abc")
	if !ok || k != "u:user-42:transcript:v1:abc" {
		t.Fatalf("scoped key: got %q ok=%v", k, ok)
	}
	if !s.Ready(ctx) {
		t.Fatalf("store with identity should be ready")
	}
}
