package tiercache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type pendingWrite struct {
	encoded []byte
	ttl     time.Duration
}

// flusher coalesces writes to the slowest tier and pushes them out at most
// once per interval (plus on explicit Flush and on Close). Writes to the
// same key between flushes collapse to the latest one. This replaces
// implicit debounce timers with an owned, inspectable schedule.
type flusher struct {
	t     Tier
	stats *StatsCollector
	hooks Hooks
	log   Logger

	mu      sync.Mutex
	pending map[string]pendingWrite

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newFlusher(t Tier, interval time.Duration, stats *StatsCollector, hooks Hooks, log Logger) *flusher {
	f := &flusher{
		t:       t,
		stats:   stats,
		hooks:   hooks,
		log:     log,
		pending: make(map[string]pendingWrite),
		ticker:  time.NewTicker(interval),
		stopCh:  make(chan struct{}),
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-f.ticker.C:
				_ = f.flush(context.Background())
			case <-f.stopCh:
				return
			}
		}
	}()
	return f
}

func (f *flusher) enqueue(key string, encoded []byte, ttl time.Duration) {
	f.mu.Lock()
	f.pending[key] = pendingWrite{encoded: encoded, ttl: ttl}
	f.mu.Unlock()
}

func (f *flusher) drop(key string) {
	f.mu.Lock()
	delete(f.pending, key)
	f.mu.Unlock()
}

func (f *flusher) dropPrefix(prefix string) {
	f.mu.Lock()
	for k := range f.pending {
		if strings.HasPrefix(k, prefix) {
			delete(f.pending, k)
		}
	}
	f.mu.Unlock()
}

func (f *flusher) flush(ctx context.Context) error {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return nil
	}
	batch := f.pending
	f.pending = make(map[string]pendingWrite)
	f.mu.Unlock()

	name := f.t.Store.Name()
	if !f.t.Store.Ready(ctx) {
		// identity-less remote: drop silently, no write attempts recorded
		f.hooks.TierSkipped(name, "not_ready")
		return nil
	}

	failed := 0
	for k, p := range batch {
		f.stats.RecordWrite(name)
		if err := f.t.Store.Set(ctx, k, p.encoded, p.ttl); err != nil {
			f.stats.RecordWriteFailure(name)
			f.hooks.WriteFailed(name, k, err)
			failed++
		}
	}
	if failed > 0 {
		f.log.Warn("flush partially failed",
			Fields{"tier": name, "failed": failed, "total": len(batch)})
	}
	return nil
}

func (f *flusher) close(ctx context.Context) {
	f.closeOnce.Do(func() {
		close(f.stopCh)
		f.ticker.Stop()
		f.wg.Wait()
		_ = f.flush(ctx)
	})
}
