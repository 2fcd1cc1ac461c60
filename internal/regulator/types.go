// Package regulator decides, for each cycle of an external content-refinement
// loop, whether to keep refining ("enhance"), gather more information
// ("research"), or finish ("complete"). Evidence for the three alternatives
// is scored from simple textual heuristics, adjusted for the loop's position
// in its iteration budget, and fed as drift rates into a drift-diffusion
// simulation that picks the winner.
package regulator

import "strings"

// Decision is the ternary outcome of a regulator cycle.
type Decision string

const (
	// DecisionEnhance means the current content should be refined further.
	DecisionEnhance Decision = "enhance"
	// DecisionResearch means more information should be gathered first.
	DecisionResearch Decision = "research"
	// DecisionComplete means the content is good enough to deliver.
	DecisionComplete Decision = "complete"
)

// WorkflowMode selects which heuristic weighting profile governs evidence
// scoring.
type WorkflowMode string

const (
	// ModeResearchAssembly favors depth: early iterations lean toward
	// research, later ones toward completion.
	ModeResearchAssembly WorkflowMode = "research_assembly"
	// ModeNewsAnalysis favors quick perspective checks and completes
	// sooner than research assembly.
	ModeNewsAnalysis WorkflowMode = "news_analysis"
)

// Valid reports whether the mode is one of the known profiles.
func (m WorkflowMode) Valid() bool {
	return m == ModeResearchAssembly || m == ModeNewsAnalysis
}

// DecisionRequest carries one cycle's inputs. It is caller-owned and
// discarded after the decision; the regulator keeps no state between calls.
type DecisionRequest struct {
	// Content is the current response content to evaluate. Must be
	// non-blank.
	Content string

	// Context is the previous iteration's context; empty on the first
	// iteration.
	Context string

	// WorkflowMode selects the scoring profile.
	WorkflowMode WorkflowMode

	// Iteration is the current 0-indexed iteration number.
	Iteration int

	// ConfidenceThreshold is the minimum confidence the caller requires
	// before completing, in [0,1].
	ConfidenceThreshold float64

	// MaxIterations is the caller's iteration budget; completion is forced
	// as the loop approaches it. Must be >= 1.
	MaxIterations int
}

// Validate checks the request preconditions.
func (r DecisionRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return &ValidationError{Field: "content", Message: "content cannot be empty"}
	}
	if !r.WorkflowMode.Valid() {
		return &ValidationError{Field: "workflow_mode", Message: "workflow_mode must be research_assembly or news_analysis"}
	}
	if r.Iteration < 0 {
		return &ValidationError{Field: "iteration", Message: "iteration cannot be negative"}
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		return &ValidationError{Field: "confidence_threshold", Message: "confidence_threshold must be in [0,1]"}
	}
	if r.MaxIterations < 1 {
		return &ValidationError{Field: "max_iterations", Message: "max_iterations must be at least 1"}
	}
	return nil
}

// EvidenceTriple holds the (enhance, research, complete) drift magnitudes.
// The three values are independently clamped to [0,1] and do not sum to 1;
// they are not a probability distribution.
type EvidenceTriple struct {
	Enhance  float64
	Research float64
	Complete float64
}

// clamped returns the triple with each value clipped to [0,1].
func (t EvidenceTriple) clamped() EvidenceTriple {
	return EvidenceTriple{
		Enhance:  clamp01(t.Enhance),
		Research: clamp01(t.Research),
		Complete: clamp01(t.Complete),
	}
}

// Rates returns the triple as drift rates ordered to match decisionLabels.
func (t EvidenceTriple) Rates() []float64 {
	return []float64{t.Enhance, t.Research, t.Complete}
}

// decisionLabels orders the alternatives fed to the simulator. The order
// matches EvidenceTriple.Rates.
var decisionLabels = []string{
	string(DecisionEnhance),
	string(DecisionResearch),
	string(DecisionComplete),
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RefinementStrategy is the structured directive for the next loop iteration.
// It is present exactly when the decision is not complete.
type RefinementStrategy struct {
	// Type is the decision that produced this strategy: enhance or
	// research.
	Type Decision `json:"type"`

	// FocusAreas are the fixed focus points for this strategy type.
	FocusAreas []string `json:"focus_areas"`

	// Constraints are the fixed constraints to maintain during refinement.
	Constraints []string `json:"constraints"`

	// TargetImprovements lists concrete gaps found in the content
	// (enhance only).
	TargetImprovements []string `json:"target_improvements,omitempty"`

	// ResearchDirections lists concrete research gaps found in the content
	// (research only).
	ResearchDirections []string `json:"research_directions,omitempty"`

	// Iteration echoes the request's iteration number.
	Iteration int `json:"iteration"`
}

// DecisionOutcome is the full result of one regulator cycle.
type DecisionOutcome struct {
	// Decision is the chosen alternative.
	Decision Decision `json:"decision"`

	// Confidence is the winner's share of positive evidence, in [0,1].
	Confidence float64 `json:"confidence"`

	// ReactionTimeMS is the simulated decision latency in milliseconds.
	ReactionTimeMS float64 `json:"reaction_time"`

	// Reasoning is a human-readable explanation of the decision.
	Reasoning string `json:"reasoning"`

	// RefinementStrategy directs the next iteration. Nil exactly when
	// Decision is complete.
	RefinementStrategy *RefinementStrategy `json:"refinement_strategy,omitempty"`

	// NextPrompt is a fixed continuation prompt for the next iteration.
	// Empty for complete decisions.
	//
	// Deprecated: callers should drive the next iteration from
	// RefinementStrategy. Kept for wire compatibility.
	NextPrompt string `json:"next_prompt,omitempty"`

	// TimedOut reports whether the simulation hit its time bound instead
	// of crossing the threshold.
	TimedOut bool `json:"timed_out,omitempty"`
}
