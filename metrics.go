package dbpool

import "github.com/prometheus/client_golang/prometheus"

// Collector exports the counters of every pool in a Registry.
type Collector struct {
	registry *Registry

	connections  *prometheus.Desc
	maxConns     *prometheus.Desc
	opened       *prometheus.Desc
	pruned       *prometheus.Desc
	evicted      *prometheus.Desc
	closed       *prometheus.Desc
	closedFailed *prometheus.Desc
}

// NewCollector creates a collector for the pools of registry. Metric names
// are prefixed with namespace.
func NewCollector(namespace string, registry *Registry) *Collector {
	labels := []string{"pool"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}
	return &Collector{
		registry:     registry,
		connections:  desc("connections", "Number of kept connections."),
		maxConns:     desc("max_connections", "Connection limit of the pool."),
		opened:       desc("connections_opened_total", "Total number of opened connections."),
		pruned:       desc("connections_pruned_total", "Total number of connections pruned after their TTL."),
		evicted:      desc("connections_evicted_total", "Total number of least recently used connections evicted."),
		closed:       desc("connections_closed_total", "Total number of connections closed without error."),
		closedFailed: desc("connections_closed_failed_total", "Total number of connections whose close failed."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connections
	ch <- c.maxConns
	ch <- c.opened
	ch <- c.pruned
	ch <- c.evicted
	ch <- c.closed
	ch <- c.closedFailed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.registry.Each(func(id string, pool *LimitedPool) {
		stats := pool.Stats()
		ch <- prometheus.MustNewConstMetric(c.connections, prometheus.GaugeValue, float64(pool.Len()), id)
		ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(pool.MaxConns()), id)
		ch <- prometheus.MustNewConstMetric(c.opened, prometheus.CounterValue, float64(stats.Opened), id)
		ch <- prometheus.MustNewConstMetric(c.pruned, prometheus.CounterValue, float64(stats.Pruned), id)
		ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(stats.Evicted), id)
		ch <- prometheus.MustNewConstMetric(c.closed, prometheus.CounterValue, float64(stats.Closed), id)
		ch <- prometheus.MustNewConstMetric(c.closedFailed, prometheus.CounterValue, float64(stats.ClosedFailed), id)
	})
}
