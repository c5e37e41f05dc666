// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/tiercache"
//	"github.com/unkn0wn-root/tiercache/codec"
//	asynchook "github.com/unkn0wn-root/tiercache/hooks/async"
//	"github.com/unkn0wn-root/tiercache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:    10, // sample logs: ~every 10th self-heal
//	    TierSkippedEvery: 1,  // log every skipped tier
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache, _ := tiercache.New[Transcript](tiercache.Options[Transcript]{
//	    Namespace: "transcript",
//	    Tiers:     tiers,
//	    Codec:     codec.JSON[Transcript]{},
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/tiercache"
)

type Hooks struct {
	inner tiercache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(inner tiercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHeal(t, k, r string)    { h.try(func() { h.inner.SelfHeal(t, k, r) }) }
func (h *Hooks) TierSkipped(t, r string)    { h.try(func() { h.inner.TierSkipped(t, r) }) }
func (h *Hooks) Promoted(k, from string)    { h.try(func() { h.inner.Promoted(k, from) }) }
func (h *Hooks) AllWritesFailed(k string, n int) {
	h.try(func() { h.inner.AllWritesFailed(k, n) })
}
func (h *Hooks) WriteFailed(t, k string, err error) {
	h.try(func() { h.inner.WriteFailed(t, k, err) })
}
