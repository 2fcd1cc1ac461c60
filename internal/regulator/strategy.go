package regulator

import (
	"fmt"
	"strings"
	"unicode"
)

// buildReasoning renders the human-readable explanation for a decision.
func buildReasoning(decision Decision, confidence float64, iteration int) string {
	var phrase string
	switch decision {
	case DecisionEnhance:
		phrase = "Content needs enhancement and refinement."
	case DecisionResearch:
		phrase = "Additional research is required."
	default:
		phrase = "Content quality is sufficient."
	}
	return fmt.Sprintf("Iteration %d: %s Decision confidence: %.2f", iteration+1, phrase, confidence)
}

// buildStrategy produces the structured refinement directive for non-terminal
// decisions. Returns nil for complete.
func buildStrategy(decision Decision, content string, mode WorkflowMode, iteration int) *RefinementStrategy {
	switch decision {
	case DecisionEnhance:
		return &RefinementStrategy{
			Type: DecisionEnhance,
			FocusAreas: []string{
				"clarity and coherence",
				"structural organization",
				"depth and detail",
			},
			Constraints: []string{
				"maintain factual accuracy",
				"preserve key insights from previous iteration",
				"expand on underdeveloped sections",
			},
			TargetImprovements: analyzeGaps(content),
			Iteration:          iteration,
		}
	case DecisionResearch:
		return &RefinementStrategy{
			Type: DecisionResearch,
			FocusAreas: []string{
				"additional evidence and examples",
				"alternative perspectives",
				"supporting data and citations",
			},
			Constraints: []string{
				"build upon existing content",
				"avoid redundancy",
				"prioritize credible sources",
			},
			ResearchDirections: researchDirections(content, mode),
			Iteration:          iteration,
		}
	default:
		return nil
	}
}

// analyzeGaps inspects the content for enhancement targets. These are cheap
// textual proxies, not real quality analysis.
func analyzeGaps(content string) []string {
	var gaps []string

	// Fewer than three paragraph-like blocks suggests thin coverage.
	if len(strings.Split(content, "\n\n")) < 3 {
		gaps = append(gaps, "expand sectional coverage")
	}

	lower := strings.ToLower(content)
	if !strings.Contains(lower, "for example") && !strings.Contains(lower, "such as") {
		gaps = append(gaps, "add concrete examples")
	}

	// Heading, emphasis, numbered-list, or bullet markers.
	structured := false
	for _, marker := range []string{"##", "**", "1.", "•"} {
		if strings.Contains(content, marker) {
			structured = true
			break
		}
	}
	if !structured {
		gaps = append(gaps, "improve structural organization")
	}

	if len(gaps) == 0 {
		return []string{"general refinement"}
	}
	return gaps
}

// researchDirections inspects the content for research gaps using
// workflow-mode-specific checks.
func researchDirections(content string, mode WorkflowMode) []string {
	var directions []string
	lower := strings.ToLower(content)

	switch mode {
	case ModeResearchAssembly:
		if !strings.Contains(lower, "according to") && !strings.Contains(lower, "research shows") {
			directions = append(directions, "add authoritative sources and citations")
		}
		if !strings.ContainsFunc(content, unicode.IsDigit) {
			directions = append(directions, "include relevant statistics and data")
		}
	case ModeNewsAnalysis:
		if !strings.Contains(lower, "however") && !strings.Contains(lower, "alternatively") {
			directions = append(directions, "explore alternative viewpoints")
		}
		if !strings.Contains(lower, "background") && !strings.Contains(lower, "context") {
			directions = append(directions, "provide historical context")
		}
	}

	if len(directions) == 0 {
		return []string{"expand topical coverage"}
	}
	return directions
}

// nextPrompt renders the fixed continuation prompt for non-terminal
// decisions.
//
// Deprecated: retained for wire compatibility; RefinementStrategy is the
// supported directive.
func nextPrompt(decision Decision, mode WorkflowMode) string {
	switch decision {
	case DecisionEnhance:
		return "Enhance and refine the previous response. Focus on improving clarity, structure, and depth."
	case DecisionResearch:
		if mode == ModeResearchAssembly {
			return "Conduct additional research to support and expand on the previous findings. Add more evidence and examples."
		}
		return "Add additional perspectives and background to provide more comprehensive coverage."
	default:
		return ""
	}
}
