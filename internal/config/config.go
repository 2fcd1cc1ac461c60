// Package config resolves service configuration from defaults, an optional
// YAML file, and ADDM_* environment variables, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/loopkit/addm/internal/ddm"
)

// Config holds all configuration for the regulator service.
type Config struct {
	// Addr is the HTTP listen address.
	// Default: ":8000". Env: ADDM_ADDR.
	Addr string `yaml:"addr"`

	// Environment is "development" or "production".
	// Default: "development". Env: ADDM_ENVIRONMENT.
	Environment string `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	// Default: "info". Env: ADDM_LOG_LEVEL.
	LogLevel string `yaml:"log_level"`

	// MaxIterations is the ceiling on any caller's iteration budget.
	// Requests asking for more are rejected.
	// Default: 20. Env: ADDM_MAX_ITERATIONS.
	MaxIterations int `yaml:"max_iterations"`

	// ConfidenceThreshold is the default completion confidence threshold
	// applied when a request omits one.
	// Default: 0.85. Env: ADDM_CONFIDENCE_THRESHOLD.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// SummarizationThreshold is the combined content+context character
	// count above which the response flags the caller to summarize.
	// Default: 32000. Env: ADDM_SUMMARIZATION_THRESHOLD.
	SummarizationThreshold int `yaml:"summarization_threshold"`

	// DDM holds the simulator constants.
	// Env: ADDM_DDM_THRESHOLD, ADDM_DDM_NOISE_SIGMA, ADDM_DDM_TIME_STEP,
	// ADDM_DDM_MAX_TIME.
	DDM ddm.Config `yaml:"ddm"`

	// HistoryDB is the SQLite path for the decision audit log. Empty
	// disables history.
	// Env: ADDM_HISTORY_DB.
	HistoryDB string `yaml:"history_db"`

	// RateLimit is the sustained request rate per second allowed by the
	// server. 0 disables limiting.
	// Default: 0. Env: ADDM_RATE_LIMIT.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the burst size when rate limiting is enabled.
	// Default: 20. Env: ADDM_RATE_BURST.
	RateBurst int `yaml:"rate_burst"`

	// MaxConcurrent bounds concurrently running decide/simulate calls.
	// 0 disables the bound.
	// Default: 0. Env: ADDM_MAX_CONCURRENT.
	MaxConcurrent int64 `yaml:"max_concurrent"`
}

// Default returns the standard configuration, matching the service's
// documented defaults.
func Default() Config {
	return Config{
		Addr:                   ":8000",
		Environment:            "development",
		LogLevel:               "info",
		MaxIterations:          20,
		ConfidenceThreshold:    0.85,
		SummarizationThreshold: 32000,
		DDM:                    ddm.DefaultConfig(),
		RateBurst:              20,
	}
}

// LoadFile overlays values from a YAML file onto c. Missing file is an
// error; missing keys keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays ADDM_* environment variables onto c. Unset or
// unparseable variables keep their current values.
func (c *Config) LoadFromEnv() {
	c.Addr = getEnv("ADDM_ADDR", c.Addr)
	c.Environment = getEnv("ADDM_ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("ADDM_LOG_LEVEL", c.LogLevel)
	c.MaxIterations = getEnvInt("ADDM_MAX_ITERATIONS", c.MaxIterations)
	c.ConfidenceThreshold = getEnvFloat("ADDM_CONFIDENCE_THRESHOLD", c.ConfidenceThreshold)
	c.SummarizationThreshold = getEnvInt("ADDM_SUMMARIZATION_THRESHOLD", c.SummarizationThreshold)
	c.DDM.Threshold = getEnvFloat("ADDM_DDM_THRESHOLD", c.DDM.Threshold)
	c.DDM.NoiseSigma = getEnvFloat("ADDM_DDM_NOISE_SIGMA", c.DDM.NoiseSigma)
	c.DDM.TimeStep = getEnvFloat("ADDM_DDM_TIME_STEP", c.DDM.TimeStep)
	c.DDM.MaxTime = getEnvFloat("ADDM_DDM_MAX_TIME", c.DDM.MaxTime)
	c.HistoryDB = getEnv("ADDM_HISTORY_DB", c.HistoryDB)
	c.RateLimit = getEnvFloat("ADDM_RATE_LIMIT", c.RateLimit)
	c.RateBurst = getEnvInt("ADDM_RATE_BURST", c.RateBurst)
	c.MaxConcurrent = int64(getEnvInt("ADDM_MAX_CONCURRENT", int(c.MaxConcurrent)))
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	switch c.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("environment must be development or production (got %q)", c.Environment)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1 (got %d)", c.MaxIterations)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1] (got %g)", c.ConfidenceThreshold)
	}
	if c.SummarizationThreshold < 1 {
		return fmt.Errorf("summarization_threshold must be positive (got %d)", c.SummarizationThreshold)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative (got %g)", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate limiting is enabled (got %d)", c.RateBurst)
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative (got %d)", c.MaxConcurrent)
	}
	if err := c.DDM.Validate(); err != nil {
		return fmt.Errorf("ddm: %w", err)
	}
	return nil
}

// Load resolves the effective configuration: defaults, then the optional
// YAML file, then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, current string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return current
}

func getEnvInt(key string, current int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return current
}

func getEnvFloat(key string, current float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return current
}
