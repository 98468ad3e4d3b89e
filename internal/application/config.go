// Package application contains the core components of the ratings engine:
// the rating service, the average aggregator, the reputation resolver, and
// the reputation update listener, plus the engine configuration and the
// composition root that wires them together.
package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-merit/internal/domain"
	"github.com/ahrav/go-merit/internal/ports"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// Verify interface compliance at compile time.
var _ ports.Config = (*EngineConfig)(nil)

// EngineConfig is the engine's preference surface, loaded from YAML.
// It implements ports.Config; every component re-reads values through
// that interface on each operation, so swapping the Config implementation
// for a live preference store requires no engine changes.
type EngineConfig struct {
	// StoreAverages selects stored mode for average aggregates: persisted
	// records refreshed in place on every vote change. When false every
	// read recomputes from raw ratings (virtual mode).
	StoreAverages bool `yaml:"average_stored"`

	// Reputation groups the reputation-tracking preferences.
	Reputation ReputationConfig `yaml:"reputation"`
}

// ReputationConfig holds the reputation-tracking preferences.
type ReputationConfig struct {
	// Enabled turns reputation tracking on.
	Enabled bool `yaml:"enabled"`

	// Stored selects whether computed reputation is persisted. Reputation
	// propagation only runs when both Enabled and Stored are set.
	Stored bool `yaml:"stored"`

	// Methods is the comma-separated, ordered list of aggregation methods
	// refreshed on every vote change.
	Methods string `yaml:"methods" validate:"required"`

	// AlgorithmHint is the registry selection key for the active
	// reputation algorithm.
	AlgorithmHint string `yaml:"algorithm_hint" validate:"required"`

	// ScriptSource references an externally scripted algorithm
	// definition. Empty disables script loading.
	ScriptSource string `yaml:"script_source"`
}

// DefaultEngineConfig returns the configuration the engine runs with when
// no preference file is supplied: stored averages, reputation off, the
// single "average" method, and the registry default algorithm.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		StoreAverages: true,
		Reputation: ReputationConfig{
			Enabled:       false,
			Stored:        false,
			Methods:       domain.MethodAverage,
			AlgorithmHint: "default",
		},
	}
}

// LoadConfigFromFile reads, strictly decodes, and validates an engine
// configuration from a YAML file.
func LoadConfigFromFile(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadConfig(bytes.NewReader(data))
}

// LoadConfig strictly decodes and validates an engine configuration from
// a reader. Unknown fields fail the decode so configuration typos are not
// silently ignored.
func LoadConfig(r io.Reader) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// AverageStored implements ports.Config.
func (c *EngineConfig) AverageStored() bool { return c.StoreAverages }

// ReputationEnabled implements ports.Config.
func (c *EngineConfig) ReputationEnabled() bool { return c.Reputation.Enabled }

// ReputationStored implements ports.Config.
func (c *EngineConfig) ReputationStored() bool { return c.Reputation.Stored }

// DefaultMethods implements ports.Config. It splits the comma-separated
// method preference into an ordered list, trimming whitespace and
// dropping empty entries. An empty preference yields the single
// "average" method.
func (c *EngineConfig) DefaultMethods() []string {
	parts := strings.Split(c.Reputation.Methods, ",")
	methods := make([]string, 0, len(parts))
	for _, p := range parts {
		if m := strings.TrimSpace(p); m != "" {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		methods = append(methods, domain.MethodAverage)
	}
	return methods
}

// AlgorithmHint implements ports.Config. It falls back to "default" when
// the preference is blank.
func (c *EngineConfig) AlgorithmHint() string {
	if c.Reputation.AlgorithmHint == "" {
		return "default"
	}
	return c.Reputation.AlgorithmHint
}

// ScriptSourceRef implements ports.Config.
func (c *EngineConfig) ScriptSourceRef() string { return c.Reputation.ScriptSource }
