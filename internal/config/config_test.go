package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, 20, cfg.MaxIterations)
	assert.Equal(t, 0.85, cfg.ConfidenceThreshold)
	assert.Equal(t, 32000, cfg.SummarizationThreshold)
	assert.Equal(t, 1.0, cfg.DDM.Threshold)
	assert.Equal(t, 0.1, cfg.DDM.NoiseSigma)
	assert.Equal(t, 0.001, cfg.DDM.TimeStep)
	assert.Equal(t, 2.0, cfg.DDM.MaxTime)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADDM_ADDR", ":9090")
	t.Setenv("ADDM_MAX_ITERATIONS", "10")
	t.Setenv("ADDM_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("ADDM_DDM_NOISE_SIGMA", "0.15")
	t.Setenv("ADDM_HISTORY_DB", "/tmp/addm.db")
	t.Setenv("ADDM_RATE_LIMIT", "50")

	cfg := Default()
	cfg.LoadFromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 0.9, cfg.ConfidenceThreshold)
	assert.Equal(t, 0.15, cfg.DDM.NoiseSigma)
	assert.Equal(t, "/tmp/addm.db", cfg.HistoryDB)
	assert.Equal(t, 50.0, cfg.RateLimit)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("ADDM_MAX_ITERATIONS", "not-a-number")

	cfg := Default()
	cfg.LoadFromEnv()

	assert.Equal(t, 20, cfg.MaxIterations)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addm.yaml")
	data := []byte("addr: \":7070\"\nmax_iterations: 15\nddm:\n  noise_sigma: 0.2\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 15, cfg.MaxIterations)
	assert.Equal(t, 0.2, cfg.DDM.NoiseSigma)
	// Untouched keys keep defaults.
	assert.Equal(t, 0.85, cfg.ConfidenceThreshold)
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"bad environment", func(c *Config) { c.Environment = "staging" }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"zero max iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"threshold out of range", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"zero summarization threshold", func(c *Config) { c.SummarizationThreshold = 0 }},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }},
		{"rate limit without burst", func(c *Config) { c.RateLimit = 10; c.RateBurst = 0 }},
		{"negative max concurrent", func(c *Config) { c.MaxConcurrent = -1 }},
		{"bad ddm", func(c *Config) { c.DDM.Threshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	// Env beats file.
	path := filepath.Join(t.TempDir(), "addm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: 5\n"), 0644))
	t.Setenv("ADDM_MAX_ITERATIONS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxIterations)
}
