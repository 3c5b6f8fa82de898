package timerz

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// TrackerKind tells whether a tracker records anything.
type TrackerKind int

const (
	// KindActive trackers measure time and record or log.
	KindActive TrackerKind = iota
	// KindNull trackers only carry metadata.
	KindNull
)

// String returns the readable kind name.
func (k TrackerKind) String() string {
	switch k {
	case KindActive:
		return "Active"
	case KindNull:
		return "Null"
	default:
		return "TrackerKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Tracker is the handle for one in-flight timed operation.
// A Tracker belongs to the goroutine that started it; only End is safe to
// race with itself.
type Tracker[M MetadataCarrier] interface {
	// Trace attaches a message to this span. Legal after End.
	Trace(message string)
	// End stops timing. Only the first call has any effect.
	End()
	// Metadata returns the metadata attached to this span.
	Metadata() M
	// Kind reports whether this tracker is active or null.
	Kind() TrackerKind
	// Context returns the cancellation signal supplied at creation.
	Context() context.Context
	// Cancelled reports whether the cancellation signal has fired.
	Cancelled() bool
	// Elapsed returns the running time, or the final duration once ended.
	Elapsed() time.Duration
	// Index is the sample slot for this span, or -1 when nothing is stored.
	Index() int
	// ID is the stored sample id, empty when nothing is stored.
	ID() string
}

// timeTracker is the active variant.
//
//nolint:govet // Field order optimized for functionality over memory
type timeTracker[M MetadataCarrier] struct {
	counter   *TimerCounter[M]
	ctx       context.Context
	metadata  M
	start     time.Time
	id        string
	message   string
	index     int
	recording bool // counter was enabled when the span began
	ended     atomic.Bool
	elapsed   atomic.Int64
}

func (t *timeTracker[M]) Trace(message string) {
	c := t.counter
	if t.recording {
		c.mu.Lock()
		c.store.AppendTrace(t.index, TraceEntry{Time: c.clock.Now(), Message: message})
		c.mu.Unlock()
		return
	}
	if message != "" {
		c.logger.LogMessage(message)
	}
}

func (t *timeTracker[M]) End() {
	if !t.ended.CompareAndSwap(false, true) {
		return
	}
	elapsed := t.counter.clock.Since(t.start)
	t.elapsed.Store(int64(elapsed))
	t.counter.finish(t, elapsed)
}

func (t *timeTracker[M]) Metadata() M { return t.metadata }

func (*timeTracker[M]) Kind() TrackerKind { return KindActive }

func (t *timeTracker[M]) Context() context.Context { return t.ctx }

func (t *timeTracker[M]) Cancelled() bool { return t.ctx.Err() != nil }

func (t *timeTracker[M]) Elapsed() time.Duration {
	if t.ended.Load() {
		return time.Duration(t.elapsed.Load())
	}
	return t.counter.clock.Since(t.start)
}

func (t *timeTracker[M]) Index() int { return t.index }

func (t *timeTracker[M]) ID() string { return t.id }

// nullTracker is handed out when the counter neither records nor logs.
type nullTracker[M MetadataCarrier] struct {
	metadata M
}

func (nullTracker[M]) Trace(string) {}

func (nullTracker[M]) End() {}

func (n nullTracker[M]) Metadata() M { return n.metadata }

func (nullTracker[M]) Kind() TrackerKind { return KindNull }

func (nullTracker[M]) Context() context.Context { return context.Background() }

func (nullTracker[M]) Cancelled() bool { return false }

func (nullTracker[M]) Elapsed() time.Duration { return 0 }

func (nullTracker[M]) Index() int { return -1 }

func (nullTracker[M]) ID() string { return "" }
