package timerz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func newTestCounter(t *testing.T, opts ...Option) *Counter {
	t.Helper()
	c, err := New("test.operation", "test", opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func memStore(t *testing.T, c *Counter) *MemoryStore {
	t.Helper()
	store, ok := c.Store().(*MemoryStore)
	require.True(t, ok, "expected default MemoryStore")
	return store
}

func TestNewTimerCounterValidation(t *testing.T) {
	_, err := New("", "ide")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewTimerCounter[*Metadata]("build", "ide", nil)
	assert.ErrorIs(t, err, ErrNilMetadataFactory)

	assert.Panics(t, func() { Must(New("", "ide")) })

	c := Must(New("build", "ide", WithMinSeconds(1.5)))
	defer c.Close()
	assert.Equal(t, "build", c.Name())
	assert.Equal(t, "ide", c.Category())
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, 1.5, c.MinSeconds())
	assert.False(t, c.Enabled())
	assert.False(t, c.LogMessages())
}

func TestCounterEmptyStatistics(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))

	assert.Zero(t, c.TotalTime())
	assert.Zero(t, c.AverageTime())
	assert.Zero(t, c.MinTime(), "min must not leak the sentinel")
	assert.Zero(t, c.MaxTime())
	assert.Zero(t, c.CountWithDuration())
}

func TestCounterSequentialSpans(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := newTestCounter(t, WithEnabled(true), WithClock(clock))
	ctx := context.Background()

	for _, d := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond} {
		tr := c.BeginTiming(ctx, "")
		clock.Advance(d)
		tr.End()
	}

	assert.Equal(t, 60*time.Millisecond, c.TotalTime())
	assert.Equal(t, 20*time.Millisecond, c.AverageTime())
	assert.Equal(t, 10*time.Millisecond, c.MinTime())
	assert.Equal(t, 30*time.Millisecond, c.MaxTime())
	assert.Equal(t, int64(3), c.CountWithDuration())
	assert.Equal(t, int64(3), c.Count())
	assert.Equal(t, int64(3), c.TotalCount())
}

func TestCounterAddTimeAggregates(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		total     time.Duration
		average   time.Duration
		minTime   time.Duration
		maxTime   time.Duration
	}{
		{"single", []time.Duration{5}, 5, 5, 5, 5},
		{"truncating average", []time.Duration{1, 2}, 3, 1, 1, 2},
		{"ties", []time.Duration{7, 7, 7}, 21, 7, 7, 7},
		{"zero duration", []time.Duration{0, 4}, 4, 2, 0, 4},
		{"descending", []time.Duration{9, 5, 1}, 15, 5, 1, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCounter(t, WithEnabled(true))
			for _, d := range tt.durations {
				c.addTime(d)
			}
			assert.Equal(t, tt.total, c.TotalTime())
			assert.Equal(t, tt.average, c.AverageTime())
			assert.Equal(t, tt.minTime, c.MinTime())
			assert.Equal(t, tt.maxTime, c.MaxTime())
			assert.Equal(t, int64(len(tt.durations)), c.CountWithDuration())
			assert.LessOrEqual(t, c.MinTime(), c.MaxTime())
		})
	}
}

func TestTrackerEndIsIdempotent(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := newTestCounter(t, WithEnabled(true), WithClock(clock))

	tr := c.BeginTiming(context.Background(), "once")
	clock.Advance(5 * time.Millisecond)
	tr.End()
	clock.Advance(5 * time.Millisecond)
	tr.End()

	assert.Equal(t, int64(1), c.CountWithDuration())
	assert.Equal(t, 5*time.Millisecond, c.TotalTime())
	assert.Equal(t, 5*time.Millisecond, tr.Elapsed())
}

func TestDisabledCounterReturnsNullTracker(t *testing.T) {
	c := newTestCounter(t)
	store := memStore(t, c)

	tr := c.BeginTiming(context.Background(), "ignored")
	assert.Equal(t, KindNull, tr.Kind())
	require.NotNil(t, tr.Metadata(), "null tracker still carries metadata")

	tr.Metadata().SetResult(ResultSuccess)
	assert.Equal(t, ResultSuccess, tr.Metadata().Result())

	tr.Trace("nothing")
	tr.End()
	c.Trace("nothing either")
	c.EndTiming()

	assert.Zero(t, c.CountWithDuration())
	assert.Zero(t, c.TotalTime())
	assert.Zero(t, c.Count())
	assert.Zero(t, store.Len())
	assert.Equal(t, -1, tr.Index())
	assert.Empty(t, tr.ID())
	assert.False(t, tr.Cancelled())
	assert.Zero(t, tr.Elapsed())
}

func TestLoggingOnlyCounter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := newTestCounter(t, WithLogMessages(true), WithZapLogger(zap.New(core)))

	tr := c.BeginTiming(context.Background(), "build start")
	assert.Equal(t, KindActive, tr.Kind())
	c.EndTiming()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "build start", logs.All()[0].Message)
	assert.Zero(t, c.CountWithDuration())
	assert.Zero(t, c.TotalTime())
	assert.Zero(t, memStore(t, c).Len())
}

func TestLoggingOnlyCounterDefaultsStartMessage(t *testing.T) {
	var lines []string
	c := newTestCounter(t, WithLogMessages(true), WithLogger(LoggerFunc(func(msg string) {
		lines = append(lines, msg)
	})))

	tr := c.BeginTiming(context.Background(), "")
	tr.Trace("step one")
	c.Trace("step two")
	tr.End()
	c.Trace("after end")
	c.Trace("")

	assert.Equal(t, []string{"START: test.operation", "step one", "step two", "after end"}, lines)
	assert.Zero(t, c.CountWithDuration())
}

func TestTrackerTraceAppendsToSample(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := newTestCounter(t, WithEnabled(true), WithClock(clock))
	store := memStore(t, c)

	tr := c.BeginTiming(context.Background(), "load")
	tr.Trace("parsed")
	clock.Advance(time.Millisecond)
	tr.Trace("resolved")
	tr.End()
	tr.Trace("late")

	sample, ok := store.Sample(tr.Index())
	require.True(t, ok)
	assert.Equal(t, "load", sample.Message)
	assert.Equal(t, tr.ID(), sample.ID)
	assert.True(t, sample.Timed)
	assert.True(t, sample.Completed)
	assert.Equal(t, time.Millisecond, sample.Duration)
	require.Len(t, sample.Traces, 3)
	assert.Equal(t, "parsed", sample.Traces[0].Message)
	assert.Equal(t, "resolved", sample.Traces[1].Message)
	assert.Equal(t, "late", sample.Traces[2].Message)
}

func TestCounterTraceRouting(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))
	store := memStore(t, c)

	c.Trace("standalone")
	require.Equal(t, 1, store.Len())
	assert.False(t, store.Samples()[0].Timed)

	tr := c.BeginTiming(context.Background(), "span")
	c.Trace("routed")
	c.EndTiming()
	c.EndTiming()

	sample, ok := store.Sample(tr.Index())
	require.True(t, ok)
	require.Len(t, sample.Traces, 1)
	assert.Equal(t, "routed", sample.Traces[0].Message)
	assert.Equal(t, int64(1), c.CountWithDuration())
}

func TestEndClearsLastTimerOnlyForItself(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))
	store := memStore(t, c)
	ctx := context.Background()

	first := c.BeginTiming(ctx, "first")
	second := c.BeginTiming(ctx, "second")

	first.End()
	c.Trace("goes to second")

	s2, _ := store.Sample(second.Index())
	assert.Len(t, s2.Traces, 1)

	c.EndTiming()
	assert.Equal(t, int64(2), c.CountWithDuration())

	c.Trace("standalone")
	assert.Equal(t, 3, store.Len())

	// The handle still works after the shim ended it.
	second.End()
	assert.Equal(t, int64(2), c.CountWithDuration())
}

func TestTrackerMetadataIsStoredAtCompletion(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))
	store := memStore(t, c)

	md := MetadataFrom(map[Property]string{"project": "app"})
	tr := c.BeginTimingWith(context.Background(), "", md)
	assert.Same(t, md, tr.Metadata())

	started, _ := store.Sample(tr.Index())
	assert.Equal(t, map[Property]string{"project": "app"}, started.Properties)

	tr.Metadata().SetResult(ResultSuccess)
	tr.End()

	done, _ := store.Sample(tr.Index())
	assert.Equal(t, "Success", done.Properties[ResultKey])
	assert.Equal(t, "app", done.Properties["project"])
}

func TestTrackerCancellation(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))
	ctx, cancel := context.WithCancel(context.Background())

	var got Timing
	c.OnComplete(func(timing Timing) { got = timing })

	tr := c.BeginTiming(ctx, "cancellable")
	assert.False(t, tr.Cancelled())
	assert.Equal(t, ctx, tr.Context())

	cancel()
	assert.True(t, tr.Cancelled())
	if tr.Cancelled() {
		tr.Metadata().SetResult(ResultUserCancel)
	}
	tr.End()

	assert.Equal(t, int64(1), c.CountWithDuration(), "cancellation does not drop the sample")
	assert.True(t, got.Cancelled)
	assert.Equal(t, "UserCancel", got.Properties[ResultKey])
}

func TestNilContextIsTolerated(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))

	//nolint:staticcheck // nil context is part of the contract
	tr := c.BeginTiming(nil, "")
	require.NotNil(t, tr.Context())
	assert.False(t, tr.Cancelled())
	tr.End()
}

func TestConcurrentSpans(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true))
	const workers = 50

	var mu sync.Mutex
	var sum time.Duration

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			tr := c.BeginTiming(context.Background(), "worker")
			tr.Trace("working")
			time.Sleep(time.Millisecond)
			tr.End()

			mu.Lock()
			sum += tr.Elapsed()
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(workers), c.CountWithDuration())
	assert.Equal(t, sum, c.TotalTime())
	assert.LessOrEqual(t, c.MinTime(), c.MaxTime())
	assert.Equal(t, workers, memStore(t, c).Len())
}

func TestRuntimeFlagToggle(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := newTestCounter(t, WithClock(clock))
	ctx := context.Background()

	assert.Equal(t, KindNull, c.BeginTiming(ctx, "").Kind())

	c.SetEnabled(true)
	tr := c.BeginTiming(ctx, "")
	require.Equal(t, KindActive, tr.Kind())

	// A span keeps the state it started with.
	c.SetEnabled(false)
	clock.Advance(time.Second)
	tr.End()
	assert.Equal(t, int64(1), c.CountWithDuration())
	assert.Equal(t, time.Second, c.TotalTime())

	c.SetMinSeconds(2)
	assert.Equal(t, float64(2), c.MinSeconds())
	c.SetLogMessages(true)
	assert.True(t, c.LogMessages())
}

func TestCompletionHandlers(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := newTestCounter(t, WithEnabled(true), WithClock(clock))

	var timings []Timing
	id := c.OnComplete(func(timing Timing) { timings = append(timings, timing) })
	assert.Zero(t, c.OnComplete(nil))

	var panicked uint64
	panicID := c.OnComplete(func(Timing) { panic("boom") })
	c.SetPanicHook(func(handlerID uint64, _ interface{}) { panicked = handlerID })

	tr := c.BeginTiming(context.Background(), "handled")
	clock.Advance(3 * time.Millisecond)
	tr.End()

	require.Len(t, timings, 1)
	assert.Equal(t, "test.operation", timings[0].Counter)
	assert.Equal(t, "test", timings[0].Category)
	assert.Equal(t, "handled", timings[0].Message)
	assert.Equal(t, 3*time.Millisecond, timings[0].Duration)
	assert.Equal(t, tr.ID(), timings[0].ID)
	assert.Equal(t, panicID, panicked)

	c.RemoveHandler(id)
	c.RemoveHandler(panicID)
	c.BeginTiming(context.Background(), "").End()
	assert.Len(t, timings, 1)
}

type buildMetadata struct {
	*Metadata
}

func newBuildMetadata() buildMetadata {
	return buildMetadata{NewMetadata()}
}

func (b buildMetadata) SetProject(name string) { b.Set("Project", name) }

func TestTypedMetadataCounter(t *testing.T) {
	c, err := NewTimerCounter("build", "ide", newBuildMetadata, WithEnabled(true))
	require.NoError(t, err)
	defer c.Close()

	tr := c.BeginTiming(context.Background(), "")
	require.NotNil(t, tr.Metadata().Metadata, "factory provides a default value")
	tr.Metadata().SetProject("app")
	tr.Metadata().SetUserFault()
	tr.End()

	store, ok := c.Store().(*MemoryStore)
	require.True(t, ok)
	sample, ok := store.Sample(tr.Index())
	require.True(t, ok)
	assert.Equal(t, "app", sample.Properties["Project"])
	assert.Equal(t, "UserFault", sample.Properties[ResultKey])

	disabled, err := NewTimerCounter("idle", "ide", newBuildMetadata)
	require.NoError(t, err)
	defer disabled.Close()
	null := disabled.BeginTiming(context.Background(), "")
	assert.Equal(t, KindNull, null.Kind())
	assert.NotNil(t, null.Metadata().Metadata)
}

func TestCounterSnapshotResetAndString(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := newTestCounter(t, WithEnabled(true), WithClock(clock), WithMinSeconds(0.25))

	tr := c.BeginTiming(context.Background(), "")
	clock.Advance(4 * time.Millisecond)
	tr.End()

	s := c.Snapshot()
	assert.Equal(t, "test.operation", s.Name)
	assert.Equal(t, c.ID(), s.ID)
	assert.Equal(t, int64(1), s.CountWithDuration)
	assert.Equal(t, 4*time.Millisecond, s.MinTime)
	assert.Equal(t, 0.25, s.MinSeconds)

	assert.Contains(t, c.String(), "[TimerCounter: Name=test.operation Id="+c.ID())
	assert.Contains(t, c.String(), "CountWithDuration=1]")

	c.Reset()
	assert.Zero(t, c.CountWithDuration())
	assert.Zero(t, c.Count())
	assert.Equal(t, int64(1), c.TotalCount())
	assert.Zero(t, c.MinTime())
	assert.Zero(t, c.MaxTime())

	tr = c.BeginTiming(context.Background(), "")
	clock.Advance(9 * time.Millisecond)
	tr.End()
	assert.Equal(t, 9*time.Millisecond, c.MinTime())
}

func TestCounterCloseKeepsRecording(t *testing.T) {
	c := newTestCounter(t, WithEnabled(true), WithIDPoolSize(2))
	c.BeginTiming(context.Background(), "").End()
	c.Close()
	c.Close()

	tr := c.BeginTiming(context.Background(), "")
	tr.End()
	assert.NotEmpty(t, tr.ID())
	assert.Equal(t, int64(2), c.CountWithDuration())
}

func TestCounterCustomStore(t *testing.T) {
	store := NewMemoryStore(1)
	c := newTestCounter(t, WithEnabled(true), WithStore(store))

	first := c.BeginTiming(context.Background(), "first")
	second := c.BeginTiming(context.Background(), "second")
	first.Trace("evicted")
	first.End()
	second.End()

	assert.Same(t, store, c.Store())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(1), store.Dropped())
	assert.Equal(t, int64(2), c.CountWithDuration())
}

func BenchmarkBeginTiming(b *testing.B) {
	ctx := context.Background()

	b.Run("disabled", func(b *testing.B) {
		c := Must(New("bench", "bench"))
		defer c.Close()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			c.BeginTiming(ctx, "").End()
		}
	})

	b.Run("enabled", func(b *testing.B) {
		c := Must(New("bench", "bench", WithEnabled(true)))
		defer c.Close()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			c.BeginTiming(ctx, "").End()
		}
	})
}
