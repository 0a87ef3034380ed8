package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Recognized backend selectors. Anything else is rejected at construction;
// there is no fallback to a default device.
const (
	BackendScalar = "scalar"
	BackendCPU    = "cpu"
)

const (
	defaultMaxBatchSize       = 700000
	defaultMaxColumnBatchSize = 400000
)

// Config selects the hashing backend and sizes its batches. The zero value
// plus WithDefaults yields the scalar path with production batch bounds.
type Config struct {
	// The hashing backend to use for tree construction.
	// Options: "scalar", "cpu".
	Backend string `yaml:"backend"`
	// The largest number of tree-stage preimage tuples submitted to the
	// backend per call.
	MaxBatchSize int `yaml:"maxBatchSize"`
	// The largest number of columns submitted to the backend per call.
	MaxColumnBatchSize int `yaml:"maxColumnBatchSize"`
	// Number of rows adjacent to the leaf row omitted from the
	// returned pruned tree.
	RowsToDiscard int `yaml:"rowsToDiscard"`
	// Number of hashing workers for the cpu backend; 0 derives the count
	// from GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Size of the digest memoization cache; 0 disables caching.
	HashCacheSize int `yaml:"hashCacheSize"`
	// Whether to create development loggers.
	Debug bool `yaml:"debug"`
}

// WithDefaults returns a copy of the Config with any missing fields set to
// their default values.
func (c Config) WithDefaults() Config {
	cpy := c
	if cpy.Backend == "" {
		cpy.Backend = BackendScalar
	}
	if cpy.MaxBatchSize == 0 {
		cpy.MaxBatchSize = defaultMaxBatchSize
	}
	if cpy.MaxColumnBatchSize == 0 {
		cpy.MaxColumnBatchSize = defaultMaxColumnBatchSize
	}
	return cpy
}

// Parse unmarshals a yaml document into a Config and applies defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	out := cfg.WithDefaults()
	return &out, nil
}
