package timerz

import (
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

const defaultIDPoolSize = 64

type counterConfig struct {
	clock       clockz.Clock
	logger      Logger
	zlog        *zap.Logger
	store       SampleStore
	minSeconds  float64
	idPoolSize  int
	enabled     bool
	logMessages bool
}

func defaultCounterConfig() *counterConfig {
	return &counterConfig{
		clock:      clockz.RealClock,
		zlog:       zap.NewNop(),
		idPoolSize: defaultIDPoolSize,
	}
}

// Option configures a TimerCounter at construction.
type Option func(*counterConfig)

// WithEnabled sets whether the counter records statistics and samples.
func WithEnabled(enabled bool) Option {
	return func(cfg *counterConfig) { cfg.enabled = enabled }
}

// WithLogMessages sets whether the counter writes start and trace messages
// to its Logger when it is not recording.
func WithLogMessages(logMessages bool) Option {
	return func(cfg *counterConfig) { cfg.logMessages = logMessages }
}

// WithMinSeconds sets the reporting threshold. The counter only stores it.
func WithMinSeconds(seconds float64) Option {
	return func(cfg *counterConfig) { cfg.minSeconds = seconds }
}

// WithLogger sets the sink for logged messages.
func WithLogger(l Logger) Option {
	return func(cfg *counterConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithZapLogger sets the logger used for the counter's own diagnostics.
// When no Logger is configured, logged messages go here too.
func WithZapLogger(l *zap.Logger) Option {
	return func(cfg *counterConfig) {
		if l != nil {
			cfg.zlog = l
		}
	}
}

// WithStore replaces the default MemoryStore.
func WithStore(store SampleStore) Option {
	return func(cfg *counterConfig) {
		if store != nil {
			cfg.store = store
		}
	}
}

// WithClock sets the timing source. Enables deterministic tests.
func WithClock(clock clockz.Clock) Option {
	return func(cfg *counterConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithIDPoolSize sets how many sample ids are generated ahead of time.
func WithIDPoolSize(size int) Option {
	return func(cfg *counterConfig) {
		if size > 0 {
			cfg.idPoolSize = size
		}
	}
}
