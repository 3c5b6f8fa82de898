package timerz

import (
	"github.com/prometheus/client_golang/prometheus"
)

var promLabels = []string{"counter", "category"}

// PrometheusCollector exposes every counter in a Registry as Prometheus gauges.
type PrometheusCollector struct {
	registry *Registry
	count    *prometheus.Desc
	total    *prometheus.Desc
	average  *prometheus.Desc
	minTime  *prometheus.Desc
	maxTime  *prometheus.Desc
}

// NewPrometheusCollector returns a collector reading from r.
func NewPrometheusCollector(r *Registry) (*PrometheusCollector, error) {
	if r == nil {
		return nil, ErrNilRegistry
	}
	return &PrometheusCollector{
		registry: r,
		count:    prometheus.NewDesc("timerz_count_with_duration", "Number of recorded durations.", promLabels, nil),
		total:    prometheus.NewDesc("timerz_total_seconds", "Sum of recorded durations.", promLabels, nil),
		average:  prometheus.NewDesc("timerz_average_seconds", "Mean recorded duration.", promLabels, nil),
		minTime:  prometheus.NewDesc("timerz_min_seconds", "Shortest recorded duration.", promLabels, nil),
		maxTime:  prometheus.NewDesc("timerz_max_seconds", "Longest recorded duration.", promLabels, nil),
	}, nil
}

// Describe implements prometheus.Collector.
func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.count
	ch <- p.total
	ch <- p.average
	ch <- p.minTime
	ch <- p.maxTime
}

// Collect implements prometheus.Collector.
func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range p.registry.Snapshots() {
		ch <- prometheus.MustNewConstMetric(p.count, prometheus.GaugeValue, float64(s.CountWithDuration), s.Name, s.Category)
		ch <- prometheus.MustNewConstMetric(p.total, prometheus.GaugeValue, s.TotalTime.Seconds(), s.Name, s.Category)
		ch <- prometheus.MustNewConstMetric(p.average, prometheus.GaugeValue, s.AverageTime.Seconds(), s.Name, s.Category)
		ch <- prometheus.MustNewConstMetric(p.minTime, prometheus.GaugeValue, s.MinTime.Seconds(), s.Name, s.Category)
		ch <- prometheus.MustNewConstMetric(p.maxTime, prometheus.GaugeValue, s.MaxTime.Seconds(), s.Name, s.Category)
	}
}
