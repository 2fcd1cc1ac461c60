package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopkit/addm/internal/ddm"
)

var (
	simDrift  []float64
	simLabels []string
	simSeed   uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a raw drift-diffusion race",
	Long: `Run the accumulation race for arbitrary alternatives.

Example:
  addm simulate --drift 0.9 --drift 0.6 --drift 0.0 \
      --label enhance --label research --label complete --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg, err := newRegulator(cfg, newLogger(cfg), 0)
		if err != nil {
			return err
		}

		var out any
		if simSeed != 0 {
			out, err = reg.SimulateSeeded(ddm.NewRNG(simSeed), simDrift, simLabels)
		} else {
			out, err = reg.Simulate(simDrift, simLabels)
		}
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	},
}

func init() {
	simulateCmd.Flags().Float64SliceVar(&simDrift, "drift", nil, "drift rate per alternative (repeat)")
	simulateCmd.Flags().StringArrayVar(&simLabels, "label", nil, "label per alternative (repeat)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "noise stream seed (0 = random)")
	rootCmd.AddCommand(simulateCmd)
}
