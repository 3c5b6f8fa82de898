package benchmarks

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zoobzio/timerz"
)

// BenchmarkSpanRate measures raw begin/end throughput on one counter.
func BenchmarkSpanRate(b *testing.B) {
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		opts []timerz.Option
	}{
		{"disabled", nil},
		{"logging", []timerz.Option{timerz.WithLogMessages(true), timerz.WithZapLogger(zap.NewNop())}},
		{"enabled", []timerz.Option{timerz.WithEnabled(true)}},
	} {
		b.Run(tc.name, func(b *testing.B) {
			counter := timerz.Must(timerz.New("rate", "bench", tc.opts...))
			defer counter.Close()

			b.ReportAllocs()
			b.ResetTimer()
			start := time.Now()

			for i := 0; i < b.N; i++ {
				counter.BeginTiming(ctx, "").End()
			}

			b.ReportMetric(float64(b.N)/time.Since(start).Seconds(), "spans/sec")
		})
	}
}

// BenchmarkSpanRateParallel measures lock contention when many goroutines
// share one counter.
func BenchmarkSpanRateParallel(b *testing.B) {
	counter := timerz.Must(timerz.New("parallel", "bench", timerz.WithEnabled(true)))
	defer counter.Close()

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			t := counter.BeginTiming(ctx, "")
			t.Trace("step")
			t.End()
		}
	})
}

// BenchmarkReaders measures the lock-free statistic readers.
func BenchmarkReaders(b *testing.B) {
	counter := timerz.Must(timerz.New("readers", "bench", timerz.WithEnabled(true)))
	defer counter.Close()
	counter.BeginTiming(context.Background(), "").End()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = counter.Snapshot()
	}
}
