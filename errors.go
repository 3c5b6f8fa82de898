package timerz

import "errors"

var (
	// ErrEmptyName is returned when a counter is created without a name.
	ErrEmptyName = errors.New("timerz: counter name is empty")
	// ErrNilMetadataFactory is returned when a typed counter has no way to build default metadata.
	ErrNilMetadataFactory = errors.New("timerz: nil metadata factory")
	// ErrNilCounter is returned when registering a nil counter.
	ErrNilCounter = errors.New("timerz: nil counter")
	// ErrDuplicateCounter is returned when a name is registered twice.
	ErrDuplicateCounter = errors.New("timerz: counter already registered")
	// ErrUnknownCounter is returned when config names a counter that is not registered.
	ErrUnknownCounter = errors.New("timerz: unknown counter")
	// ErrUnsupportedFormat is returned for config formats other than yaml and json.
	ErrUnsupportedFormat = errors.New("timerz: unsupported config format")
	// ErrLoadConfig is returned when config bytes cannot be parsed.
	ErrLoadConfig = errors.New("timerz: failed to load config")
	// ErrNilMeter is returned when exporting to a nil OpenTelemetry meter.
	ErrNilMeter = errors.New("timerz: nil meter")
	// ErrNilRegistry is returned when an exporter is built without a registry.
	ErrNilRegistry = errors.New("timerz: nil registry")
)
