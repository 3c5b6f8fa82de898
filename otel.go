package timerz

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCount   = "timerz.count"
	metricTotal   = "timerz.total"
	metricAverage = "timerz.average"
	metricMin     = "timerz.min"
	metricMax     = "timerz.max"
)

// RegisterOTel publishes every counter in r as OpenTelemetry observable
// gauges. Values are read from Snapshot at collection time. Unregister the
// returned registration to stop.
func RegisterOTel(meter metric.Meter, r *Registry) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if r == nil {
		return nil, ErrNilRegistry
	}

	count, err := meter.Int64ObservableGauge(metricCount,
		metric.WithDescription("number of recorded durations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("timerz: create %s gauge: %w", metricCount, err)
	}

	durations := make(map[string]metric.Float64ObservableGauge, 4)
	for name, desc := range map[string]string{
		metricTotal:   "sum of recorded durations",
		metricAverage: "mean recorded duration",
		metricMin:     "shortest recorded duration",
		metricMax:     "longest recorded duration",
	} {
		g, err := meter.Float64ObservableGauge(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("timerz: create %s gauge: %w", name, err)
		}
		durations[name] = g
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, s := range r.Snapshots() {
			attrs := metric.WithAttributes(
				attribute.String("counter", s.Name),
				attribute.String("category", s.Category),
			)
			o.ObserveInt64(count, s.CountWithDuration, attrs)
			o.ObserveFloat64(durations[metricTotal], s.TotalTime.Seconds(), attrs)
			o.ObserveFloat64(durations[metricAverage], s.AverageTime.Seconds(), attrs)
			o.ObserveFloat64(durations[metricMin], s.MinTime.Seconds(), attrs)
			o.ObserveFloat64(durations[metricMax], s.MaxTime.Seconds(), attrs)
		}
		return nil
	}, count, durations[metricTotal], durations[metricAverage], durations[metricMin], durations[metricMax])
}
