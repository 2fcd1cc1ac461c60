package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loopkit/addm/internal/loop"
	"github.com/loopkit/addm/internal/regulator"
)

var replMode string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Drive a refinement loop interactively",
	Long: `Step through a refinement loop by hand.

Paste an initial draft, then revise it each time the regulator asks for
enhancement or research. The loop ends when the regulator decides complete
or the iteration budget runs out. End multi-line input with a '.' on its
own line; an empty revision keeps the previous content.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg, err := newRegulator(cfg, newLogger(cfg), 0)
		if err != nil {
			return err
		}

		rl, err := readline.New("addm> ")
		if err != nil {
			return fmt.Errorf("failed to start readline: %w", err)
		}
		defer rl.Close()

		fmt.Println("Enter the initial draft (end with '.' on its own line):")
		initial, err := readBlock(rl)
		if err != nil {
			return err
		}

		stepper := &replStepper{rl: rl}
		result, err := loop.Run(cmd.Context(), initial, stepper, reg, loop.Config{
			WorkflowMode:        regulator.WorkflowMode(replMode),
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			MaxIterations:       cfg.MaxIterations,
		})
		if err != nil {
			return err
		}

		fmt.Println()
		if result.Completed {
			color.Green("Completed after %d iterations (%.1fs)", result.Iterations, result.Elapsed.Seconds())
		} else {
			color.Yellow("Iteration budget exhausted after %d iterations", result.Iterations)
		}
		fmt.Println(result.FinalContent)
		return nil
	},
}

// replStepper prompts the user to revise the content per each strategy.
type replStepper struct {
	rl *readline.Instance
}

func (s *replStepper) Enhance(ctx context.Context, content string, strategy *regulator.RefinementStrategy) (string, error) {
	color.Yellow("Regulator asks: enhance")
	for _, imp := range strategy.TargetImprovements {
		fmt.Printf("  - %s\n", imp)
	}
	return s.revise(content)
}

func (s *replStepper) Research(ctx context.Context, content string, strategy *regulator.RefinementStrategy) (string, error) {
	color.Cyan("Regulator asks: research")
	for _, dir := range strategy.ResearchDirections {
		fmt.Printf("  - %s\n", dir)
	}
	return s.revise(content)
}

func (s *replStepper) revise(content string) (string, error) {
	fmt.Println("Enter the revised draft (end with '.'; empty keeps current):")
	revised, err := readBlock(s.rl)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(revised) == "" {
		return content, nil
	}
	return revised, nil
}

// readBlock reads lines until a lone '.' terminator.
func readBlock(rl *readline.Instance) (string, error) {
	var lines []string
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return strings.Join(lines, "\n"), nil
		}
		if err != nil {
			return "", fmt.Errorf("read failed: %w", err)
		}
		if line == "." {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

func init() {
	replCmd.Flags().StringVar(&replMode, "mode", "research_assembly", "workflow mode (research_assembly|news_analysis)")
	rootCmd.AddCommand(replCmd)
}
