package local

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	s, err := New(Config{
		Path:          filepath.Join(t.TempDir(), "cache.db"),
		MaxEntries:    max,
		SweepInterval: -1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
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

	if _, ok, _ := s.Get(ctx, "absent"); ok {
		t.Fatalf("absent key should miss")
	}
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s1, err := New(Config{Path: path, SweepInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s1.Set(ctx, "persist", []byte("survives"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s1.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := New(Config{Path: path, SweepInterval: -1})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close(ctx)

	got, ok, err := s2.Get(ctx, "persist")
	if err != nil || !ok || string(got) != "survives" {
		t.Fatalf("entry did not survive reopen: ok=%v err=%v got=%q", ok, err, got)
	}
}

func TestLazyExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	_ = s.Set(ctx, "k", []byte("v"), 30*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if _, ok, err := s.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expired entry returned: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Has(ctx, "k"); ok {
		t.Fatalf("Has reported expired entry")
	}
}

func TestLRUPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 3)

	for i := 0; i < 3; i++ {
		_ = s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
		time.Sleep(2 * time.Millisecond) // distinct last_accessed
	}
	// Touch k0 so k1 becomes the LRU row.
	if _, ok, _ := s.Get(ctx, "k0"); !ok {
		t.Fatalf("warmup read missed k0")
	}

	_ = s.Set(ctx, "k3", []byte("v"), time.Hour)

	if ok, _ := s.Has(ctx, "k1"); ok {
		t.Fatalf("k1 should have been pruned")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if ok, _ := s.Has(ctx, k); !ok {
			t.Fatalf("%s should survive pruning", k)
		}
	}
}

func TestPruneReportsEvictions(t *testing.T) {
	ctx := context.Background()
	evicted := 0
	s, err := New(Config{
		Path:          filepath.Join(t.TempDir(), "cache.db"),
		MaxEntries:    2,
		SweepInterval: -1,
		OnEvict:       func(n int) { evicted += n },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(ctx)

	for i := 0; i < 3; i++ {
		_ = s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
		time.Sleep(2 * time.Millisecond)
	}
	if evicted != 1 {
		t.Fatalf("OnEvict reported %d evictions, want 1", evicted)
	}
	if ok, _ := s.Has(ctx, "k0"); ok {
		t.Fatalf("k0 should have been pruned")
	}
}

func TestDelPrefixAndClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	_ = s.Set(ctx, "search:v1:a", []byte("1"), time.Hour)
	_ = s.Set(ctx, "search:v1:b", []byte("2"), time.Hour)
	_ = s.Set(ctx, "analysis:v1:a", []byte("3"), time.Hour)

	n, err := s.DelPrefix(ctx, "search:")
	if err != nil || n != 2 {
		t.Fatalf("DelPrefix: n=%d err=%v", n, err)
	}
	if ok, _ := s.Has(ctx, "analysis:v1:a"); !ok {
		t.Fatalf("unrelated namespace removed")
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, _ := s.Has(ctx, "analysis:v1:a"); ok {
		t.Fatalf("Clear left entries behind")
	}
}

func TestReadyAfterClose(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "c.db"), SweepInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.Ready(ctx) {
		t.Fatalf("expected ready before close")
	}
	_ = s.Close(ctx)
	if s.Ready(ctx) {
		t.Fatalf("expected not ready after close")
	}
}
