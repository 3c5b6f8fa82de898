package timerz

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// Timing describes a recorded span after it ends.
type Timing struct {
	Properties map[Property]string
	Counter    Name
	Category   string
	Message    string
	ID         string
	Duration   time.Duration
	Index      int
	Cancelled  bool
}

// CompletionHandler is called after a recorded span ends.
type CompletionHandler func(timing Timing)

type handlerEntry struct {
	handler CompletionHandler
	id      uint64
}

// Snapshot is a point-in-time copy of a counter's statistics.
type Snapshot struct {
	Name              Name          `json:"name"`
	Category          string        `json:"category"`
	ID                string        `json:"id"`
	Count             int64         `json:"count"`
	TotalCount        int64         `json:"total_count"`
	CountWithDuration int64         `json:"count_with_duration"`
	TotalTime         time.Duration `json:"total_time"`
	AverageTime       time.Duration `json:"average_time"`
	MinTime           time.Duration `json:"min_time"`
	MaxTime           time.Duration `json:"max_time"`
	MinSeconds        float64       `json:"min_seconds"`
}

// Counter is a TimerCounter using the plain Metadata bag.
type Counter = TimerCounter[*Metadata]

// TimerCounter aggregates duration statistics for one named operation.
// Safe for concurrent use by multiple goroutines.
//
// Writers hold mu. The statistic fields are atomics so readers can skip the
// lock; a reader may see one field updated before another.
//
//nolint:govet // Field order optimized for functionality over memory
type TimerCounter[M MetadataCarrier] struct {
	newMetadata func() M
	clock       clockz.Clock
	logger      Logger
	zlog        *zap.Logger
	store       SampleStore
	ids         *idPool
	panicHook   func(handlerID uint64, r interface{})
	lastTimer   *timeTracker[M]
	handlers    []handlerEntry
	name        Name
	category    string
	id          string
	idPoolSize  int

	mu           sync.Mutex
	handlersLock sync.RWMutex
	idsOnce      sync.Once
	closed       atomic.Bool

	enabled     atomic.Bool
	logMessages atomic.Bool
	minSeconds  atomic.Uint64 // math.Float64bits

	count         atomic.Int64
	totalCount    atomic.Int64
	countWithTime atomic.Int64
	totalTime     atomic.Int64
	minTime       atomic.Int64
	maxTime       atomic.Int64
	nextHandlerID atomic.Uint64
}

// NewTimerCounter creates a counter whose spans carry metadata built by
// newMetadata. The factory runs once per BeginTiming call that does not
// supply metadata, so typed callers never see a nil value.
func NewTimerCounter[M MetadataCarrier](name Name, category string, newMetadata func() M, opts ...Option) (*TimerCounter[M], error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if newMetadata == nil {
		return nil, ErrNilMetadataFactory
	}

	cfg := defaultCounterConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = ZapLogger(cfg.zlog)
	}
	if cfg.store == nil {
		cfg.store = NewMemoryStore(DefaultStoreCapacity)
	}

	c := &TimerCounter[M]{
		newMetadata: newMetadata,
		clock:       cfg.clock,
		logger:      cfg.logger,
		zlog:        cfg.zlog.With(zap.String("counter", name)),
		store:       cfg.store,
		name:        name,
		category:    category,
		id:          uuid.NewString(),
		idPoolSize:  cfg.idPoolSize,
	}
	c.enabled.Store(cfg.enabled)
	c.logMessages.Store(cfg.logMessages)
	c.minSeconds.Store(math.Float64bits(cfg.minSeconds))
	c.minTime.Store(math.MaxInt64)
	return c, nil
}

// New creates a counter whose spans carry a plain *Metadata bag.
func New(name Name, category string, opts ...Option) (*Counter, error) {
	return NewTimerCounter(name, category, NewMetadata, opts...)
}

// Must panics if err is non-nil. Intended for package-level counters.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the counter name.
func (c *TimerCounter[M]) Name() Name { return c.name }

// Category returns the counter category.
func (c *TimerCounter[M]) Category() string { return c.category }

// ID returns the unique id assigned at construction.
func (c *TimerCounter[M]) ID() string { return c.id }

// Store returns the sample store.
func (c *TimerCounter[M]) Store() SampleStore { return c.store }

// Enabled reports whether the counter records statistics.
func (c *TimerCounter[M]) Enabled() bool { return c.enabled.Load() }

// SetEnabled turns recording on or off. Spans already started keep the
// state they began with.
func (c *TimerCounter[M]) SetEnabled(enabled bool) { c.enabled.Store(enabled) }

// LogMessages reports whether the counter logs when it is not recording.
func (c *TimerCounter[M]) LogMessages() bool { return c.logMessages.Load() }

// SetLogMessages turns message logging on or off.
func (c *TimerCounter[M]) SetLogMessages(logMessages bool) { c.logMessages.Store(logMessages) }

// MinSeconds returns the reporting threshold.
func (c *TimerCounter[M]) MinSeconds() float64 {
	return math.Float64frombits(c.minSeconds.Load())
}

// SetMinSeconds stores the reporting threshold. Nothing here enforces it.
func (c *TimerCounter[M]) SetMinSeconds(seconds float64) {
	c.minSeconds.Store(math.Float64bits(seconds))
}

// BeginTiming starts a span with default metadata. An empty message means
// none. ctx is the span's cancellation signal; nil means none.
func (c *TimerCounter[M]) BeginTiming(ctx context.Context, message string) Tracker[M] {
	return c.begin(ctx, message, c.newMetadata())
}

// BeginTimingWith starts a span carrying the given metadata.
func (c *TimerCounter[M]) BeginTimingWith(ctx context.Context, message string, metadata M) Tracker[M] {
	return c.begin(ctx, message, metadata)
}

func (c *TimerCounter[M]) begin(ctx context.Context, message string, metadata M) Tracker[M] {
	enabled := c.enabled.Load()
	if !enabled && !c.logMessages.Load() {
		return nullTracker[M]{metadata: metadata}
	}

	if ctx == nil {
		ctx = context.Background()
	}

	t := &timeTracker[M]{
		counter:   c,
		ctx:       ctx,
		metadata:  metadata,
		start:     c.clock.Now(),
		message:   message,
		index:     -1,
		recording: enabled,
	}

	if enabled {
		t.id = c.nextSampleID()
		sample := Sample{
			Properties: cloneProperties(metadata),
			Time:       t.start,
			ID:         t.id,
			Message:    message,
			Timed:      true,
		}

		c.mu.Lock()
		c.count.Add(1)
		c.totalCount.Add(1)
		t.index = c.store.Store(sample)
		c.lastTimer = t
		c.mu.Unlock()
		return t
	}

	if message == "" {
		message = "START: " + c.name
	}
	c.logger.LogMessage(message)

	c.mu.Lock()
	c.lastTimer = t
	c.mu.Unlock()
	return t
}

// EndTiming ends the most recently started span that is still open.
// No-op when there is none.
//
// Deprecated: End the Tracker returned by BeginTiming instead. With
// overlapping spans on one counter the last one started wins.
func (c *TimerCounter[M]) EndTiming() {
	c.mu.Lock()
	last := c.lastTimer
	c.lastTimer = nil
	c.mu.Unlock()

	if last != nil {
		last.End()
	}
}

// Trace attaches a message to the most recently started open span, or
// stores it on its own when there is none.
//
// Deprecated: call Trace on the Tracker returned by BeginTiming instead.
// With overlapping spans on one counter the last one started wins.
func (c *TimerCounter[M]) Trace(message string) {
	enabled := c.enabled.Load()
	if !enabled && !c.logMessages.Load() {
		return
	}

	c.mu.Lock()
	last := c.lastTimer
	if last == nil && enabled {
		c.store.Store(Sample{
			Time:    c.clock.Now(),
			ID:      c.nextSampleID(),
			Message: message,
		})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if last != nil {
		last.Trace(message)
		return
	}
	if message != "" {
		c.logger.LogMessage(message)
	}
}

// finish runs once per active tracker, from End.
func (c *TimerCounter[M]) finish(t *timeTracker[M], elapsed time.Duration) {
	var props map[Property]string
	if t.recording {
		props = cloneProperties(t.metadata)
	}

	c.mu.Lock()
	if c.lastTimer == t {
		c.lastTimer = nil
	}
	if t.recording {
		c.addTimeLocked(elapsed)
		c.store.Complete(t.index, elapsed, props)
	}
	c.mu.Unlock()

	if t.recording {
		c.executeHandlers(Timing{
			Properties: props,
			Counter:    c.name,
			Category:   c.category,
			Message:    t.message,
			ID:         t.id,
			Duration:   elapsed,
			Index:      t.index,
			Cancelled:  t.Cancelled(),
		})
	}
}

// addTime folds one duration into the statistics.
func (c *TimerCounter[M]) addTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addTimeLocked(d)
}

// addTimeLocked requires c.mu. Ties keep the existing extreme.
func (c *TimerCounter[M]) addTimeLocked(d time.Duration) {
	c.countWithTime.Add(1)
	c.totalTime.Add(int64(d))
	if int64(d) < c.minTime.Load() {
		c.minTime.Store(int64(d))
	}
	if int64(d) > c.maxTime.Load() {
		c.maxTime.Store(int64(d))
	}
}

// TotalTime returns the sum of all recorded durations.
func (c *TimerCounter[M]) TotalTime() time.Duration {
	return time.Duration(c.totalTime.Load())
}

// AverageTime returns TotalTime divided by CountWithDuration, truncated to
// the nanosecond. Zero when nothing was recorded.
func (c *TimerCounter[M]) AverageTime() time.Duration {
	n := c.countWithTime.Load()
	if n <= 0 {
		return 0
	}
	return time.Duration(c.totalTime.Load() / n)
}

// MinTime returns the shortest recorded duration, or zero when nothing was recorded.
func (c *TimerCounter[M]) MinTime() time.Duration {
	if c.countWithTime.Load() <= 0 {
		return 0
	}
	return time.Duration(c.minTime.Load())
}

// MaxTime returns the longest recorded duration.
func (c *TimerCounter[M]) MaxTime() time.Duration {
	return time.Duration(c.maxTime.Load())
}

// CountWithDuration returns how many durations were recorded.
func (c *TimerCounter[M]) CountWithDuration() int64 {
	return c.countWithTime.Load()
}

// Count returns how many spans were started while enabled since the last Reset.
func (c *TimerCounter[M]) Count() int64 {
	return c.count.Load()
}

// TotalCount returns how many spans were started while enabled over the
// counter's lifetime. Reset leaves it alone.
func (c *TimerCounter[M]) TotalCount() int64 {
	return c.totalCount.Load()
}

// Snapshot copies the current statistics.
func (c *TimerCounter[M]) Snapshot() Snapshot {
	return Snapshot{
		Name:              c.name,
		Category:          c.category,
		ID:                c.id,
		Count:             c.Count(),
		TotalCount:        c.TotalCount(),
		CountWithDuration: c.CountWithDuration(),
		TotalTime:         c.TotalTime(),
		AverageTime:       c.AverageTime(),
		MinTime:           c.MinTime(),
		MaxTime:           c.MaxTime(),
		MinSeconds:        c.MinSeconds(),
	}
}

// Reset clears the duration statistics and the current count.
func (c *TimerCounter[M]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count.Store(0)
	c.countWithTime.Store(0)
	c.totalTime.Store(0)
	c.minTime.Store(math.MaxInt64)
	c.maxTime.Store(0)
}

// String implements fmt.Stringer.
func (c *TimerCounter[M]) String() string {
	return fmt.Sprintf("[TimerCounter: Name=%s Id=%s Category=%s MinSeconds=%v, TotalTime=%v, AverageTime=%v, MinTime=%v, MaxTime=%v, CountWithDuration=%d]",
		c.name, c.id, c.category, c.MinSeconds(), c.TotalTime(), c.AverageTime(), c.MinTime(), c.MaxTime(), c.CountWithDuration())
}

// OnComplete registers a handler called synchronously after each recorded
// span ends. Returns an id for RemoveHandler.
func (c *TimerCounter[M]) OnComplete(handler CompletionHandler) uint64 {
	if handler == nil {
		return 0
	}

	id := c.nextHandlerID.Add(1)

	c.handlersLock.Lock()
	defer c.handlersLock.Unlock()

	c.handlers = append(c.handlers, handlerEntry{id: id, handler: handler})
	return id
}

// RemoveHandler removes a handler by id.
func (c *TimerCounter[M]) RemoveHandler(id uint64) {
	c.handlersLock.Lock()
	defer c.handlersLock.Unlock()

	for i, h := range c.handlers {
		if h.id == id {
			copy(c.handlers[i:], c.handlers[i+1:])
			c.handlers = c.handlers[:len(c.handlers)-1]
			return
		}
	}
}

// SetPanicHook sets a function called when a completion handler panics.
func (c *TimerCounter[M]) SetPanicHook(hook func(handlerID uint64, r interface{})) {
	c.handlersLock.Lock()
	defer c.handlersLock.Unlock()
	c.panicHook = hook
}

func (c *TimerCounter[M]) executeHandlers(timing Timing) {
	c.handlersLock.RLock()
	if len(c.handlers) == 0 {
		c.handlersLock.RUnlock()
		return
	}
	handlers := make([]handlerEntry, len(c.handlers))
	copy(handlers, c.handlers)
	hook := c.panicHook
	c.handlersLock.RUnlock()

	for _, h := range handlers {
		c.safeCall(h, timing, hook)
	}
}

func (c *TimerCounter[M]) safeCall(entry handlerEntry, timing Timing, hook func(uint64, interface{})) {
	defer func() {
		if r := recover(); r != nil {
			c.zlog.Error("completion handler panicked",
				zap.Uint64("handler", entry.id),
				zap.Any("panic", r))
			if hook != nil {
				hook(entry.id, r)
			}
		}
	}()
	entry.handler(timing)
}

// nextSampleID hands out sample ids from a lazily started pool.
func (c *TimerCounter[M]) nextSampleID() string {
	c.idsOnce.Do(func() {
		if !c.closed.Load() {
			c.ids = newIDPool(c.idPoolSize, uuid.NewString)
		}
	})
	if c.ids == nil {
		return uuid.NewString()
	}
	return c.ids.get()
}

// Close stops background id generation. The counter stays usable.
func (c *TimerCounter[M]) Close() {
	c.closed.Store(true)
	c.idsOnce.Do(func() {})
	if c.ids != nil {
		c.ids.close()
	}
}
