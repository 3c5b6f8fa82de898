package timerz

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config holds runtime flags for a set of counters.
//
// YAML example:
//
//	counters:
//	  - name: project.load
//	    enabled: true
//	    min_seconds: 0.5
//	  - name: build
//	    log_messages: true
type Config struct {
	Counters []CounterConfig `koanf:"counters"`
}

// CounterConfig holds the runtime flags of one counter.
type CounterConfig struct {
	Name        Name    `koanf:"name"`
	Enabled     bool    `koanf:"enabled"`
	LogMessages bool    `koanf:"log_messages"`
	MinSeconds  float64 `koanf:"min_seconds"`
}

// LoadConfig parses yaml or json bytes. Empty data yields an empty Config.
func LoadConfig(data []byte, format string) (Config, error) {
	var parser koanf.Parser
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		parser = yaml.Parser()
	case "json":
		parser = json.Parser()
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var cfg Config
	if len(data) == 0 {
		return cfg, nil
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return cfg, nil
}
