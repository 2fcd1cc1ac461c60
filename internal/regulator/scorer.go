package regulator

// Evidence scoring. Deterministic textual heuristics map the request to drift
// magnitudes for the three alternatives; no randomness enters until the
// simulation itself.

// Base weights before any adjustment.
const (
	baseEnhance  = 0.4
	baseResearch = 0.3
	baseComplete = 0.3
)

// Content-length cutoffs for the scoring heuristic, in characters.
const (
	shortContentLen       = 200
	substantialContentLen = 1000
)

// assessEvidence scores the three alternatives from the request features.
// Adjustments are additive and applied in a fixed order; the final triple is
// clamped per value to [0,1] without renormalization.
func assessEvidence(content, context string, mode WorkflowMode, iteration int, confidenceThreshold float64) EvidenceTriple {
	_ = context // reserved; the current heuristics only inspect content

	t := EvidenceTriple{
		Enhance:  baseEnhance,
		Research: baseResearch,
		Complete: baseComplete,
	}

	// Content length affects completion tendency.
	switch n := len(content); {
	case n < shortContentLen: // too short, needs enhancement
		t.Enhance += 0.3
		t.Complete -= 0.2
	case n > substantialContentLen: // substantial content
		t.Complete += 0.2
		t.Enhance -= 0.1
	}

	// A demanding confidence threshold pushes toward completing early.
	if confidenceThreshold > 0.9 {
		t.Complete += 0.2
		t.Enhance -= 0.1
	}

	switch mode {
	case ModeResearchAssembly:
		if iteration < 3 { // early iterations favor depth
			t.Research += 0.3
			t.Enhance += 0.2
			t.Complete -= 0.3
		} else {
			t.Research -= 0.1
			t.Enhance -= 0.1
			t.Complete += 0.4
		}
	case ModeNewsAnalysis:
		if iteration < 2 { // news needs quick perspective checks
			t.Research += 0.2
			t.Enhance += 0.2
			t.Complete -= 0.2
		} else {
			t.Research -= 0.2
			t.Enhance -= 0.1
			t.Complete += 0.5
		}
	}

	return t.clamped()
}

// adjustForIteration rewrites the triple based on the loop's position in its
// iteration budget. Rules apply strictly in order: the forced-completion
// floor first, then the first-iteration damping. When max iterations <= 2,
// iteration 0 triggers both, so complete is floored to 0.8 and then
// multiplied by 0.2, netting 0.16. The floor-then-multiply order must not
// change.
func adjustForIteration(t EvidenceTriple, iteration, maxIterations int) EvidenceTriple {
	// Force completion near the iteration budget to bound the loop.
	if iteration >= maxIterations-2 {
		if t.Complete < 0.8 {
			t.Complete = 0.8
		}
		t.Enhance *= 0.3
		t.Research *= 0.3
	}

	// The first iteration rarely completes.
	if iteration == 0 {
		t.Complete *= 0.2
	}

	return t
}
