// Package metrics exports monitor samples to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frobware/go-pagecache"
)

const namespace = "pagecache_ttl"

// Collector holds the monitor's Prometheus instruments. It satisfies
// monitor.Reporter.
type Collector struct {
	minCachedTime prometheus.Gauge
	tracked       prometheus.Gauge
	lastSample    prometheus.Gauge
	deleted       prometheus.Counter
	ticks         *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		minCachedTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "min_cached_time_seconds",
			Help:      "Minimum time data has stayed in the page cache.",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sentinel_files",
			Help:      "Sentinel files present at the last tick, before deletion.",
		}),
		lastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sample_timestamp_seconds",
			Help:      "Unix time of the last sample.",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinel_files_deleted_total",
			Help:      "Sentinel files deleted after eviction or expiry.",
		}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Monitor ticks by outcome.",
		}, []string{"status"}),
	}

	for _, col := range []prometheus.Collector{c.minCachedTime, c.tracked, c.lastSample, c.deleted, c.ticks} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Report records s.
func (c *Collector) Report(_ context.Context, s pagecache.Sample) error {
	c.minCachedTime.Set(float64(s.MinCachedSeconds()))
	c.tracked.Set(float64(s.Tracked))
	c.lastSample.Set(float64(s.Time.Unix()))
	c.deleted.Add(float64(s.Deleted))
	return nil
}

// ObserveTick counts a finished tick.
func (c *Collector) ObserveTick(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.ticks.WithLabelValues(status).Inc()
}
