package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RunStats provides the metrics collector access to live pipeline state.
type RunStats interface {
	ActiveRuns() int
	ProjectCount() int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	stats RunStats

	activeRuns *prometheus.Desc
	projects   *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// stats may be nil (gauges report 0).
func NewCollector(stats RunStats) *Collector {
	return &Collector{
		stats: stats,
		activeRuns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_runs"),
			"Current number of in-progress pipeline runs.",
			nil, nil,
		),
		projects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "projects"),
			"Number of projects in the store.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeRuns
	ch <- c.projects
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		ch <- prometheus.MustNewConstMetric(c.activeRuns, prometheus.GaugeValue, 0)
		ch <- prometheus.MustNewConstMetric(c.projects, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.activeRuns, prometheus.GaugeValue, float64(c.stats.ActiveRuns()))
	ch <- prometheus.MustNewConstMetric(c.projects, prometheus.GaugeValue, float64(c.stats.ProjectCount()))
}
