package timerz

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
)

// DefaultStoreCapacity bounds a MemoryStore created without an explicit size.
const DefaultStoreCapacity = 1024

// TraceEntry is one trace message attached to a sample.
type TraceEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Sample is one stored entry: either a timed span or a standalone trace message.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type Sample struct {
	Properties map[Property]string `json:"properties,omitempty"`
	Traces     []TraceEntry        `json:"traces,omitempty"`
	Time       time.Time           `json:"time"`
	Duration   time.Duration       `json:"duration"`
	ID         string              `json:"id,omitempty"`
	Message    string              `json:"message,omitempty"`
	Index      int                 `json:"index"`
	Timed      bool                `json:"timed"`
	Completed  bool                `json:"completed"`
}

// SampleStore keeps per-sample history for an enabled counter.
// A TimerCounter calls every method while holding its own lock, so
// implementations only need their own synchronization for readers.
type SampleStore interface {
	// Store appends a sample and returns its slot index.
	Store(sample Sample) int
	// AppendTrace adds a trace message to the sample at index.
	AppendTrace(index int, entry TraceEntry)
	// Complete records the final duration and properties of the sample at index.
	Complete(index int, duration time.Duration, props map[Property]string)
}

// MemoryStore is a bounded in-memory SampleStore. When full, the oldest
// sample is dropped. Indices are absolute and never reused, so a slot index
// stays valid (or becomes a silent miss) after older samples are evicted.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type MemoryStore struct {
	samples  *queue.Queue
	capacity int
	base     int // absolute index of the oldest retained sample
	next     int
	dropped  atomic.Int64
	mu       sync.Mutex
}

// NewMemoryStore creates a store that retains at most capacity samples.
// A non-positive capacity uses DefaultStoreCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &MemoryStore{
		samples:  queue.New(),
		capacity: capacity,
	}
}

// Store appends a sample and returns its absolute index.
func (s *MemoryStore) Store(sample Sample) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.samples.Length() >= s.capacity {
		s.samples.Remove()
		s.base++
		s.dropped.Add(1)
	}

	sample.Index = s.next
	s.next++
	entry := sample
	s.samples.Add(&entry)
	return entry.Index
}

// AppendTrace adds a trace message to the sample at index.
// Evicted or unknown indices are ignored.
func (s *MemoryStore) AppendTrace(index int, entry TraceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sample := s.lookupUnsafe(index); sample != nil {
		sample.Traces = append(sample.Traces, entry)
	}
}

// Complete records the duration of the sample at index and replaces its
// properties with the final metadata. Evicted or unknown indices are ignored.
func (s *MemoryStore) Complete(index int, duration time.Duration, props map[Property]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sample := s.lookupUnsafe(index); sample != nil {
		sample.Duration = duration
		sample.Completed = true
		if props != nil {
			sample.Properties = props
		}
	}
}

// lookupUnsafe resolves an absolute index. Caller must hold s.mu.
func (s *MemoryStore) lookupUnsafe(index int) *Sample {
	pos := index - s.base
	if pos < 0 || pos >= s.samples.Length() {
		return nil
	}
	return s.samples.Get(pos).(*Sample)
}

// Sample returns a copy of the sample at index.
func (s *MemoryStore) Sample(index int) (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := s.lookupUnsafe(index)
	if sample == nil {
		return Sample{}, false
	}
	return copySample(sample), true
}

// Samples returns a copy of every retained sample, oldest first.
// The returned slice is safe to modify without affecting the store.
func (s *MemoryStore) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.samples.Length()
	if n == 0 {
		return nil
	}
	result := make([]Sample, n)
	for i := 0; i < n; i++ {
		result[i] = copySample(s.samples.Get(i).(*Sample))
	}
	return result
}

// Len returns the number of retained samples.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples.Length()
}

// Dropped returns how many samples were evicted to respect the capacity.
func (s *MemoryStore) Dropped() int64 {
	return s.dropped.Load()
}

// Reset clears all samples and the drop counter. Indices keep increasing so
// stale trackers cannot write into new samples.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = queue.New()
	s.base = s.next
	s.dropped.Store(0)
}

func copySample(src *Sample) Sample {
	dst := *src
	if src.Properties != nil {
		dst.Properties = maps.Clone(src.Properties)
	}
	if src.Traces != nil {
		dst.Traces = append([]TraceEntry(nil), src.Traces...)
	}
	return dst
}
