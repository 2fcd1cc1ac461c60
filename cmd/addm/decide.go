package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/loopkit/addm/internal/regulator"
)

var (
	decideContent   string
	decideContext   string
	decideMode      string
	decideIteration int
	decideThreshold float64
	decideMaxIter   int
	decideSeed      uint64
	decideJSON      bool
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Make one regulator decision",
	Long: `Make a single enhance/research/complete decision for the given content.

Content comes from --content, or from stdin when --content is omitted.
Pass --seed for a reproducible run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		content := decideContent
		if content == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read content from stdin: %w", err)
			}
			content = string(data)
		}

		threshold := cfg.ConfidenceThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = decideThreshold
		}
		maxIter := cfg.MaxIterations
		if cmd.Flags().Changed("max-iterations") {
			maxIter = decideMaxIter
		}

		reg, err := newRegulator(cfg, newLogger(cfg), decideSeed)
		if err != nil {
			return err
		}

		outcome, err := reg.Decide(regulator.DecisionRequest{
			Content:             content,
			Context:             decideContext,
			WorkflowMode:        regulator.WorkflowMode(decideMode),
			Iteration:           decideIteration,
			ConfidenceThreshold: threshold,
			MaxIterations:       maxIter,
		})
		if err != nil {
			return err
		}

		if decideJSON {
			return json.NewEncoder(os.Stdout).Encode(outcome)
		}

		printOutcome(outcome)
		return nil
	},
}

func printOutcome(outcome *regulator.DecisionOutcome) {
	switch outcome.Decision {
	case regulator.DecisionComplete:
		color.Green("Decision: %s", outcome.Decision)
	case regulator.DecisionResearch:
		color.Cyan("Decision: %s", outcome.Decision)
	default:
		color.Yellow("Decision: %s", outcome.Decision)
	}
	fmt.Printf("Confidence:    %.2f\n", outcome.Confidence)
	fmt.Printf("Reaction time: %.1fms\n", outcome.ReactionTimeMS)
	fmt.Printf("Reasoning:     %s\n", outcome.Reasoning)

	if s := outcome.RefinementStrategy; s != nil {
		fmt.Println("Refinement strategy:")
		for _, area := range s.FocusAreas {
			fmt.Printf("  focus:      %s\n", area)
		}
		for _, imp := range s.TargetImprovements {
			fmt.Printf("  improve:    %s\n", imp)
		}
		for _, dir := range s.ResearchDirections {
			fmt.Printf("  research:   %s\n", dir)
		}
		for _, c := range s.Constraints {
			fmt.Printf("  constraint: %s\n", c)
		}
	}
}

func init() {
	decideCmd.Flags().StringVar(&decideContent, "content", "", "content to evaluate (default: stdin)")
	decideCmd.Flags().StringVar(&decideContext, "context", "", "previous iteration context")
	decideCmd.Flags().StringVar(&decideMode, "mode", "research_assembly", "workflow mode (research_assembly|news_analysis)")
	decideCmd.Flags().IntVar(&decideIteration, "iteration", 0, "current iteration number")
	decideCmd.Flags().Float64Var(&decideThreshold, "threshold", 0, "confidence threshold (default from config)")
	decideCmd.Flags().IntVar(&decideMaxIter, "max-iterations", 0, "iteration budget (default from config)")
	decideCmd.Flags().Uint64Var(&decideSeed, "seed", 0, "noise stream seed (0 = random)")
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "emit the raw outcome as JSON")
	rootCmd.AddCommand(decideCmd)
}
