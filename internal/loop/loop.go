// Package loop drives an external content-refinement cycle against the
// regulator. The loop itself holds the only memory: the regulator is
// stateless, so the driver carries the content, the iteration counter, and
// the previous iteration's context between decisions. Termination comes from
// either a complete decision or the iteration budget; the regulator's
// forced-completion rule makes the former overwhelmingly likely before the
// latter.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/loopkit/addm/internal/regulator"
)

// Stepper applies a refinement directive to produce the next version of the
// content. Implementations do the actual rewriting: an LLM caller in
// production, a human at the REPL, a canned transform in tests.
type Stepper interface {
	// Enhance refines the content per the strategy.
	Enhance(ctx context.Context, content string, strategy *regulator.RefinementStrategy) (string, error)

	// Research extends the content with gathered information per the
	// strategy.
	Research(ctx context.Context, content string, strategy *regulator.RefinementStrategy) (string, error)
}

// Decider is the regulator surface the loop needs. *regulator.Regulator
// satisfies it.
type Decider interface {
	Decide(req regulator.DecisionRequest) (*regulator.DecisionOutcome, error)
}

// Config controls a refinement run.
type Config struct {
	// WorkflowMode selects the scoring profile for every decision.
	WorkflowMode regulator.WorkflowMode

	// ConfidenceThreshold is passed through to each decision. Zero means
	// the caller accepts any confidence.
	ConfidenceThreshold float64

	// MaxIterations is the iteration budget. Must be >= 1.
	MaxIterations int
}

// Result captures a finished refinement run.
type Result struct {
	// FinalContent is the content after the last applied step.
	FinalContent string

	// Iterations is the number of decisions made.
	Iterations int

	// FinalDecision is the last decision; complete unless the budget ran
	// out first.
	FinalDecision regulator.Decision

	// Completed reports whether the run ended with a complete decision
	// rather than by exhausting the budget.
	Completed bool

	// Outcomes holds every decision in order.
	Outcomes []*regulator.DecisionOutcome

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Run refines content until the regulator decides complete or the iteration
// budget is exhausted. Each cycle sends the current content (with the prior
// version as context) to the decider, then applies the returned strategy via
// the stepper.
func Run(ctx context.Context, initial string, stepper Stepper, decider Decider, cfg Config) (*Result, error) {
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be at least 1 (got %d)", cfg.MaxIterations)
	}
	if stepper == nil {
		return nil, fmt.Errorf("stepper is required")
	}

	start := time.Now()
	content := initial
	previous := ""
	result := &Result{}

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("refinement canceled after %d iterations: %w", iteration, err)
		}

		outcome, err := decider.Decide(regulator.DecisionRequest{
			Content:             content,
			Context:             previous,
			WorkflowMode:        cfg.WorkflowMode,
			Iteration:           iteration,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			MaxIterations:       cfg.MaxIterations,
		})
		if err != nil {
			return nil, fmt.Errorf("decision failed at iteration %d: %w", iteration, err)
		}

		result.Outcomes = append(result.Outcomes, outcome)
		result.Iterations = iteration + 1
		result.FinalDecision = outcome.Decision

		if outcome.Decision == regulator.DecisionComplete {
			result.Completed = true
			break
		}

		previous = content
		switch outcome.Decision {
		case regulator.DecisionEnhance:
			content, err = stepper.Enhance(ctx, content, outcome.RefinementStrategy)
		case regulator.DecisionResearch:
			content, err = stepper.Research(ctx, content, outcome.RefinementStrategy)
		}
		if err != nil {
			return nil, fmt.Errorf("refinement step failed at iteration %d: %w", iteration, err)
		}
	}

	result.FinalContent = content
	result.Elapsed = time.Since(start)
	return result, nil
}
