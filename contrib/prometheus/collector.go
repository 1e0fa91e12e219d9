// Package prometheus exposes a client's statement and pool statistics as
// Prometheus metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/syssam/stratum"
)

// Collector implements prometheus.Collector over a client's statistics
// snapshot. Every scrape takes a fresh snapshot, so no state is duplicated
// between the engine and the metrics registry.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(stratumprom.NewCollector(client, "myapp"))
type Collector struct {
	client *stratum.Client

	statements    *prometheus.Desc
	slowQueries   *prometheus.Desc
	latencySum    *prometheus.Desc
	latencyMin    *prometheus.Desc
	latencyMax    *prometheus.Desc
	transactions  *prometheus.Desc
	poolOpen      *prometheus.Desc
	poolInUse     *prometheus.Desc
	poolIdle      *prometheus.Desc
	poolMax       *prometheus.Desc
	uptimeSeconds *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for the client's statistics. Metric
// names are prefixed with namespace when it is non-empty.
func NewCollector(client *stratum.Client, namespace string) *Collector {
	fqname := func(name string) string {
		return prometheus.BuildFQName(namespace, "stratum", name)
	}
	return &Collector{
		client: client,
		statements: prometheus.NewDesc(
			fqname("statements_total"),
			"Statements executed, by outcome.",
			[]string{"outcome"}, nil,
		),
		slowQueries: prometheus.NewDesc(
			fqname("slow_queries_total"),
			"Statements exceeding the slow-query threshold.",
			nil, nil,
		),
		latencySum: prometheus.NewDesc(
			fqname("statement_latency_seconds_sum"),
			"Cumulative statement latency.",
			nil, nil,
		),
		latencyMin: prometheus.NewDesc(
			fqname("statement_latency_seconds_min"),
			"Minimum observed statement latency.",
			nil, nil,
		),
		latencyMax: prometheus.NewDesc(
			fqname("statement_latency_seconds_max"),
			"Maximum observed statement latency.",
			nil, nil,
		),
		transactions: prometheus.NewDesc(
			fqname("transactions_total"),
			"Transactions, by lifecycle event.",
			[]string{"event"}, nil,
		),
		poolOpen: prometheus.NewDesc(
			fqname("pool_open_connections"),
			"Open connections in the pool.",
			nil, nil,
		),
		poolInUse: prometheus.NewDesc(
			fqname("pool_in_use_connections"),
			"Connections currently in use.",
			nil, nil,
		),
		poolIdle: prometheus.NewDesc(
			fqname("pool_idle_connections"),
			"Idle connections in the pool.",
			nil, nil,
		),
		poolMax: prometheus.NewDesc(
			fqname("pool_max_open_connections"),
			"Maximum allowed open connections.",
			nil, nil,
		),
		uptimeSeconds: prometheus.NewDesc(
			fqname("uptime_seconds"),
			"Time since the statistics started accumulating.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.statements
	ch <- c.slowQueries
	ch <- c.latencySum
	ch <- c.latencyMin
	ch <- c.latencyMax
	ch <- c.transactions
	ch <- c.poolOpen
	ch <- c.poolInUse
	ch <- c.poolIdle
	ch <- c.poolMax
	ch <- c.uptimeSeconds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.client.Stats()
	ch <- prometheus.MustNewConstMetric(c.statements, prometheus.CounterValue,
		float64(s.Succeeded), "succeeded")
	ch <- prometheus.MustNewConstMetric(c.statements, prometheus.CounterValue,
		float64(s.Failed), "failed")
	ch <- prometheus.MustNewConstMetric(c.slowQueries, prometheus.CounterValue,
		float64(s.SlowQueries))
	ch <- prometheus.MustNewConstMetric(c.latencySum, prometheus.CounterValue,
		s.TotalDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.latencyMin, prometheus.GaugeValue,
		s.MinDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.latencyMax, prometheus.GaugeValue,
		s.MaxDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue,
		float64(s.TxBegun), "begun")
	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue,
		float64(s.TxCommitted), "committed")
	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue,
		float64(s.TxRolledBack), "rolled_back")
	ch <- prometheus.MustNewConstMetric(c.poolOpen, prometheus.GaugeValue,
		float64(s.PoolOpen))
	ch <- prometheus.MustNewConstMetric(c.poolInUse, prometheus.GaugeValue,
		float64(s.PoolInUse))
	ch <- prometheus.MustNewConstMetric(c.poolIdle, prometheus.GaugeValue,
		float64(s.PoolIdle))
	ch <- prometheus.MustNewConstMetric(c.poolMax, prometheus.GaugeValue,
		float64(s.PoolMax))
	ch <- prometheus.MustNewConstMetric(c.uptimeSeconds, prometheus.GaugeValue,
		s.Uptime.Seconds())
}
