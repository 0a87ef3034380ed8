package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguohua/neptune/config"
)

func TestWithDefaults(t *testing.T) {
	cfg := config.Config{}.WithDefaults()

	assert.Equal(t, config.BackendScalar, cfg.Backend)
	assert.Equal(t, 700000, cfg.MaxBatchSize)
	assert.Equal(t, 400000, cfg.MaxColumnBatchSize)
	assert.Equal(t, 0, cfg.RowsToDiscard)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 0, cfg.HashCacheSize)
	assert.False(t, cfg.Debug)
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := config.Config{
		Backend:            config.BackendCPU,
		MaxBatchSize:       512,
		MaxColumnBatchSize: 256,
		RowsToDiscard:      2,
		Workers:            4,
		HashCacheSize:      16,
		Debug:              true,
	}.WithDefaults()

	assert.Equal(t, config.BackendCPU, cfg.Backend)
	assert.Equal(t, 512, cfg.MaxBatchSize)
	assert.Equal(t, 256, cfg.MaxColumnBatchSize)
	assert.Equal(t, 2, cfg.RowsToDiscard)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 16, cfg.HashCacheSize)
	assert.True(t, cfg.Debug)
}

func TestParse(t *testing.T) {
	doc := `
backend: cpu
maxBatchSize: 512
rowsToDiscard: 1
workers: 4
debug: true
`

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, config.BackendCPU, cfg.Backend)
	assert.Equal(t, 512, cfg.MaxBatchSize)
	assert.Equal(t, 1, cfg.RowsToDiscard)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Debug)

	// Missing fields come back defaulted.
	assert.Equal(t, 400000, cfg.MaxColumnBatchSize)
	assert.Equal(t, 0, cfg.HashCacheSize)
}

func TestParseInvalid(t *testing.T) {
	_, err := config.Parse([]byte("backend: [this is not a string"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestCreateLogger(t *testing.T) {
	logger, err := config.Config{}.CreateLogger()
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = config.Config{Debug: true}.CreateLogger()
	assert.NoError(t, err)
	assert.NotNil(t, logger)
}
