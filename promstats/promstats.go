// Package promstats exports tiercache statistics as Prometheus metrics.
//
// The collector reads a snapshot on every scrape, so counters stay exact
// without double bookkeeping in the hot path:
//
//	stats := tiercache.NewStatsCollector()
//	prometheus.MustRegister(promstats.New("transcript", stats))
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/tiercache"
)

type Collector struct {
	namespace string
	stats     *tiercache.StatsCollector

	requests      *prometheus.Desc
	misses        *prometheus.Desc
	selfHeals     *prometheus.Desc
	evictions     *prometheus.Desc
	efficiency    *prometheus.Desc
	hits          *prometheus.Desc
	writes        *prometheus.Desc
	writeFailures *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// New builds a collector for one namespace. Register it with any
// prometheus.Registerer; multiple namespaces may share one StatsCollector
// as long as each gets its own promstats.Collector.
func New(namespace string, stats *tiercache.StatsCollector) *Collector {
	ns := []string{"namespace"}
	nsTier := []string{"namespace", "tier"}
	return &Collector{
		namespace: namespace,
		stats:     stats,
		requests: prometheus.NewDesc("tiercache_requests_total",
			"Cache lookups served.", ns, nil),
		misses: prometheus.NewDesc("tiercache_misses_total",
			"Lookups no tier could satisfy.", ns, nil),
		selfHeals: prometheus.NewDesc("tiercache_self_heals_total",
			"Entries deleted on read (corrupt, expired or undecodable).", ns, nil),
		evictions: prometheus.NewDesc("tiercache_evictions_total",
			"Entries evicted by capacity bounds.", ns, nil),
		efficiency: prometheus.NewDesc("tiercache_efficiency_ratio",
			"Hits across all tiers divided by requests.", ns, nil),
		hits: prometheus.NewDesc("tiercache_tier_hits_total",
			"Lookups served by this tier.", nsTier, nil),
		writes: prometheus.NewDesc("tiercache_tier_writes_total",
			"Write attempts against this tier.", nsTier, nil),
		writeFailures: prometheus.NewDesc("tiercache_tier_write_failures_total",
			"Write attempts against this tier that failed.", nsTier, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.misses
	ch <- c.selfHeals
	ch <- c.evictions
	ch <- c.efficiency
	ch <- c.hits
	ch <- c.writes
	ch <- c.writeFailures
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue,
		float64(s.Requests), c.namespace)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue,
		float64(s.Misses), c.namespace)
	ch <- prometheus.MustNewConstMetric(c.selfHeals, prometheus.CounterValue,
		float64(s.SelfHeals), c.namespace)
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue,
		float64(s.Evictions), c.namespace)
	ch <- prometheus.MustNewConstMetric(c.efficiency, prometheus.GaugeValue,
		s.Efficiency, c.namespace)

	for tier, t := range s.Tiers {
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue,
			float64(t.Hits), c.namespace, tier)
		ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue,
			float64(t.Writes), c.namespace, tier)
		ch <- prometheus.MustNewConstMetric(c.writeFailures, prometheus.CounterValue,
			float64(t.WriteFailures), c.namespace, tier)
	}
}
