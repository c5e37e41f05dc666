package volatile

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	s := New(Config{MaxEntries: max, SweepInterval: -1})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	if err := s.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get: ok=%v err=%v got=%q", ok, err, got)
	}

	// Replacement is wholesale.
	if err := s.Set(ctx, "k1", []byte("v2"), time.Minute); err != nil {
		t.Fatalf("Set replace: %v", err)
	}
	got, _, _ = s.Get(ctx, "k1")
	if string(got) != "v2" {
		t.Fatalf("replace: got %q want v2", got)
	}
	if s.Len() != 1 {
		t.Fatalf("replace must not grow the store, len=%d", s.Len())
	}
}

func TestLazyExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	_ = s.Set(ctx, "k", []byte("v"), 30*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expired entry returned by Get")
	}
	// Lazy expiry removed it.
	if s.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", s.Len())
	}
}

func TestHasDoesNotBumpRecency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)

	_ = s.Set(ctx, "a", []byte("a"), time.Minute)
	_ = s.Set(ctx, "b", []byte("b"), time.Minute)

	// Probe "a" via Has; it must remain the LRU entry.
	if ok, _ := s.Has(ctx, "a"); !ok {
		t.Fatalf("Has(a) should be true")
	}
	_ = s.Set(ctx, "c", []byte("c"), time.Minute)

	if ok, _ := s.Has(ctx, "a"); ok {
		t.Fatalf("a should have been evicted despite the Has probe")
	}
	if ok, _ := s.Has(ctx, "b"); !ok {
		t.Fatalf("b should survive")
	}
}

func TestLRUEvictionExactness(t *testing.T) {
	ctx := context.Background()
	const n = 5
	evicted := make([]string, 0, 1)
	s := New(Config{
		MaxEntries:    n,
		SweepInterval: -1,
		OnEvict:       func(k string) { evicted = append(evicted, k) },
	})
	t.Cleanup(func() { _ = s.Close(ctx) })

	for i := 0; i < n; i++ {
		_ = s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	// Touch everything except k2, making k2 the least recently used.
	for i := 0; i < n; i++ {
		if i == 2 {
			continue
		}
		if _, ok, _ := s.Get(ctx, fmt.Sprintf("k%d", i)); !ok {
			t.Fatalf("warmup read missed k%d", i)
		}
	}

	// Insert entry n+1: exactly k2 must go.
	_ = s.Set(ctx, "k-new", []byte("v"), time.Minute)

	if len(evicted) != 1 || evicted[0] != "k2" {
		t.Fatalf("expected exactly k2 evicted, got %v", evicted)
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%d", i)
		_, ok, _ := s.Get(ctx, key)
		if i == 2 && ok {
			t.Fatalf("k2 still retrievable after eviction")
		}
		if i != 2 && !ok {
			t.Fatalf("%s should still be retrievable", key)
		}
	}
	if _, ok, _ := s.Get(ctx, "k-new"); !ok {
		t.Fatalf("newly inserted key missing")
	}
}

func TestDelPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	_ = s.Set(ctx, "search:v1:a", []byte("1"), time.Minute)
	_ = s.Set(ctx, "search:v1:b", []byte("2"), time.Minute)
	_ = s.Set(ctx, "transcript:v1:a", []byte("3"), time.Minute)

	n, err := s.DelPrefix(ctx, "search:")
	if err != nil || n != 2 {
		t.Fatalf("DelPrefix: n=%d err=%v", n, err)
	}
	if ok, _ := s.Has(ctx, "transcript:v1:a"); !ok {
		t.Fatalf("unrelated namespace removed")
	}
}

func TestClearAndClose(t *testing.T) {
	ctx := context.Background()
	s := New(Config{MaxEntries: 10})

	_ = s.Set(ctx, "k", []byte("v"), time.Minute)
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Clear left %d entries", s.Len())
	}

	if !s.Ready(ctx) {
		t.Fatalf("store should be ready before Close")
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Ready(ctx) {
		t.Fatalf("store should not be ready after Close")
	}
	// Close is idempotent.
	if err := s.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	ctx := context.Background()
	s := New(Config{MaxEntries: 10, SweepInterval: 20 * time.Millisecond})
	t.Cleanup(func() { _ = s.Close(ctx) })

	_ = s.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	_ = s.Set(ctx, "long", []byte("v"), time.Minute)

	deadline := time.Now().Add(time.Second)
	for s.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Len() != 1 {
		t.Fatalf("sweep did not remove expired entry, len=%d", s.Len())
	}
}
