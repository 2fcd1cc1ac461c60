// Command addm runs the ADDM loop regulator: a drift-diffusion decision
// service for content-refinement loops.
package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/loopkit/addm/internal/config"
	"github.com/loopkit/addm/internal/ddm"
	"github.com/loopkit/addm/internal/regulator"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "addm",
	Short: "ADDM loop regulator",
	Long: `ADDM decides whether a content-refinement loop should keep refining
(enhance), gather more information (research), or finish (complete).

The decision is made by a multi-alternative drift-diffusion simulation:
evidence for each alternative accumulates under noise until one crosses a
threshold, yielding a choice, a simulated reaction time, and a confidence.

Configuration is resolved from defaults, then an optional YAML file
(--config), then ADDM_* environment variables. A .env file in the working
directory is loaded first if present.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
}

func main() {
	// Optional .env, same lookup the original deployment used.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for a subcommand.
func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the process logger at the configured level.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newRegulator builds a regulator from the configuration. A non-zero seed
// pins the noise stream for reproducible runs.
func newRegulator(cfg config.Config, logger *slog.Logger, seed uint64) (*regulator.Regulator, error) {
	sim, err := ddm.New(cfg.DDM)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	opts := []regulator.Option{regulator.WithLogger(logger)}
	if seed != 0 {
		opts = append(opts, regulator.WithRNGFactory(func() *rand.Rand { return ddm.NewRNG(seed) }))
	}
	return regulator.New(sim, opts...), nil
}
