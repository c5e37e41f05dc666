package tiercache

import (
	"sync"
	"sync/atomic"
)

// StatsCollector accumulates hit/miss/write counters. Purely additive and
// in-process: counters reset with the process, which is acceptable for
// cache telemetry. One collector may be shared by several Cache instances
// (e.g. the search, transcript and analysis namespaces of one app) so the
// numbers describe the whole engine; pass it via Options.Stats.
//
// All methods are safe for concurrent use.
type StatsCollector struct {
	requests  atomic.Uint64
	misses    atomic.Uint64
	selfHeals atomic.Uint64
	evictions atomic.Uint64

	mu    sync.RWMutex
	tiers map[string]*tierCounters
}

type tierCounters struct {
	hits          atomic.Uint64
	writes        atomic.Uint64
	writeFailures atomic.Uint64
}

// TierStats is a point-in-time snapshot of one tier's counters.
type TierStats struct {
	Hits          uint64
	Writes        uint64
	WriteFailures uint64
}

// Stats is a point-in-time snapshot of the collector.
type Stats struct {
	Requests  uint64
	Misses    uint64
	SelfHeals uint64
	Evictions uint64
	Tiers     map[string]TierStats
	// Efficiency is totalHits / totalRequests; 0 when no requests yet.
	Efficiency float64
}

func NewStatsCollector() *StatsCollector {
	return &StatsCollector{tiers: make(map[string]*tierCounters)}
}

func (s *StatsCollector) tier(name string) *tierCounters {
	s.mu.RLock()
	t, ok := s.tiers[name]
	s.mu.RUnlock()
	if ok {
		return t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.tiers[name]; ok {
		return t
	}
	t = &tierCounters{}
	s.tiers[name] = t
	return t
}

func (s *StatsCollector) RecordRequest()          { s.requests.Add(1) }
func (s *StatsCollector) RecordHit(tier string)   { s.tier(tier).hits.Add(1) }
func (s *StatsCollector) RecordMiss()             { s.misses.Add(1) }
func (s *StatsCollector) RecordSelfHeal()         { s.selfHeals.Add(1) }
func (s *StatsCollector) RecordEviction()         { s.evictions.Add(1) }
func (s *StatsCollector) RecordWrite(tier string) { s.tier(tier).writes.Add(1) }
func (s *StatsCollector) RecordWriteFailure(tier string) {
	s.tier(tier).writeFailures.Add(1)
}

// RecordEvictions counts a batch of capacity evictions (e.g. one SQL prune
// removing several rows).
func (s *StatsCollector) RecordEvictions(n int) {
	if n > 0 {
		s.evictions.Add(uint64(n))
	}
}

// Snapshot returns a consistent-enough copy for reporting. Counters are
// read individually, so a snapshot taken under load may be off by a few
// in-flight increments; that is fine for telemetry.
func (s *StatsCollector) Snapshot() Stats {
	out := Stats{
		Requests:  s.requests.Load(),
		Misses:    s.misses.Load(),
		SelfHeals: s.selfHeals.Load(),
		Evictions: s.evictions.Load(),
		Tiers:     make(map[string]TierStats),
	}

	var hits uint64
	s.mu.RLock()
	for name, t := range s.tiers {
		ts := TierStats{
			Hits:          t.hits.Load(),
			Writes:        t.writes.Load(),
			WriteFailures: t.writeFailures.Load(),
		}
		hits += ts.Hits
		out.Tiers[name] = ts
	}
	s.mu.RUnlock()

	if out.Requests > 0 {
		out.Efficiency = float64(hits) / float64(out.Requests)
	}
	return out
}
