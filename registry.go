package timerz

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Instrument is the type-erased view of a TimerCounter that a Registry keeps.
// Every *TimerCounter[M] implements it.
type Instrument interface {
	Name() Name
	Category() string
	ID() string
	Snapshot() Snapshot
	SetEnabled(enabled bool)
	SetLogMessages(logMessages bool)
	SetMinSeconds(seconds float64)
	Close()
}

// Registry is a named collection of counters used for configuration and export.
// Safe for concurrent use by multiple goroutines.
type Registry struct {
	counters map[Name]Instrument
	zlog     *zap.Logger
	mu       sync.RWMutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for registry diagnostics.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.zlog = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		counters: make(map[Name]Instrument),
		zlog:     zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a counter. Names must be unique.
func (r *Registry) Register(c Instrument) error {
	if c == nil {
		return ErrNilCounter
	}
	if v := reflect.ValueOf(c); v.Kind() == reflect.Pointer && v.IsNil() {
		return ErrNilCounter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.counters[c.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCounter, c.Name())
	}
	r.counters[c.Name()] = c

	r.zlog.Debug("registered timer counter",
		zap.String("counter", c.Name()),
		zap.String("category", c.Category()))
	return nil
}

// Unregister removes a counter by name. It does not close it.
func (r *Registry) Unregister(name Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.counters, name)
}

// Lookup returns the counter registered under name.
func (r *Registry) Lookup(name Name) (Instrument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.counters[name]
	return c, ok
}

// Category returns every counter in the named category, sorted by name.
func (r *Registry) Category(category string) []Instrument {
	r.mu.RLock()
	result := make([]Instrument, 0)
	for _, c := range r.counters {
		if c.Category() == category {
			result = append(result, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Snapshots returns a statistics snapshot of every counter, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	result := make([]Snapshot, 0, len(r.counters))
	for _, c := range r.counters {
		result = append(result, c.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Apply sets runtime flags from cfg. Entries naming unknown counters are
// skipped and reported together in the returned error.
func (r *Registry) Apply(cfg Config) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, cc := range cfg.Counters {
		c, ok := r.counters[cc.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownCounter, cc.Name))
			continue
		}
		c.SetEnabled(cc.Enabled)
		c.SetLogMessages(cc.LogMessages)
		c.SetMinSeconds(cc.MinSeconds)

		r.zlog.Debug("applied timer counter config",
			zap.String("counter", cc.Name),
			zap.Bool("enabled", cc.Enabled),
			zap.Bool("log_messages", cc.LogMessages),
			zap.Float64("min_seconds", cc.MinSeconds))
	}
	return errors.Join(errs...)
}

// Close closes every registered counter.
func (r *Registry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.counters {
		c.Close()
	}
}
