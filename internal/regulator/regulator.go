package regulator

import (
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/loopkit/addm/internal/ddm"
)

// Regulator exposes the two core operations: Decide and Simulate. It holds
// only an immutable simulator and a generator factory, so a single value is
// safe for unbounded concurrent use; every call draws noise from its own
// stream.
type Regulator struct {
	sim    *ddm.Simulator
	logger *slog.Logger
	newRNG func() *rand.Rand
}

// Option configures the Regulator during construction.
type Option func(*Regulator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Regulator) { r.logger = logger }
}

// WithRNGFactory sets the per-call noise stream factory. Tests use this to
// make outcomes reproducible.
func WithRNGFactory(factory func() *rand.Rand) Option {
	return func(r *Regulator) { r.newRNG = factory }
}

// New creates a Regulator around the given simulator.
func New(sim *ddm.Simulator, opts ...Option) *Regulator {
	r := &Regulator{
		sim:    sim,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SimulatorConfig returns the simulation parameters in effect.
func (r *Regulator) SimulatorConfig() ddm.Config {
	return r.sim.Config()
}

// Decide runs one full regulator cycle: score evidence, adjust for iteration
// position, race the accumulators, and render the reasoning and refinement
// strategy. Malformed requests fail with *ValidationError.
func (r *Regulator) Decide(req DecisionRequest) (*DecisionOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	evidence := assessEvidence(req.Content, req.Context, req.WorkflowMode, req.Iteration, req.ConfidenceThreshold)
	evidence = adjustForIteration(evidence, req.Iteration, req.MaxIterations)

	r.logger.Debug("evidence scored",
		"iteration", req.Iteration,
		"mode", req.WorkflowMode,
		"enhance", evidence.Enhance,
		"research", evidence.Research,
		"complete", evidence.Complete)

	out, err := r.sim.Simulate(r.rng(), evidence.Rates(), decisionLabels)
	if err != nil {
		// Unreachable for a validated request: rates and labels are
		// built together.
		return nil, err
	}

	decision := Decision(out.Winner)
	outcome := &DecisionOutcome{
		Decision:           decision,
		Confidence:         out.Confidence,
		ReactionTimeMS:     out.ReactionTimeMS,
		Reasoning:          buildReasoning(decision, out.Confidence, req.Iteration),
		RefinementStrategy: buildStrategy(decision, req.Content, req.WorkflowMode, req.Iteration),
		NextPrompt:         nextPrompt(decision, req.WorkflowMode),
		TimedOut:           out.TimedOut,
	}

	r.logger.Info("decision made",
		"decision", outcome.Decision,
		"confidence", outcome.Confidence,
		"reaction_time_ms", outcome.ReactionTimeMS,
		"iteration", req.Iteration,
		"timed_out", outcome.TimedOut)

	return outcome, nil
}

// Simulate exposes the raw accumulation race for arbitrary alternatives.
// Mismatched or empty inputs fail with *ValidationError.
func (r *Regulator) Simulate(driftRates []float64, labels []string) (ddm.Outcome, error) {
	return r.SimulateSeeded(nil, driftRates, labels)
}

// SimulateSeeded is Simulate with an explicit noise stream; a nil rng uses a
// fresh per-call stream.
func (r *Regulator) SimulateSeeded(rng *rand.Rand, driftRates []float64, labels []string) (ddm.Outcome, error) {
	if len(driftRates) != len(labels) {
		return ddm.Outcome{}, &ValidationError{
			Field:   "drift_rates",
			Message: "drift_rates and labels must have the same length",
		}
	}
	if len(driftRates) == 0 {
		return ddm.Outcome{}, &ValidationError{
			Field:   "drift_rates",
			Message: "at least one alternative is required",
		}
	}
	if rng == nil {
		rng = r.rng()
	}
	return r.sim.Simulate(rng, driftRates, labels)
}

func (r *Regulator) rng() *rand.Rand {
	if r.newRNG != nil {
		return r.newRNG()
	}
	// nil tells the simulator to seed its own per-call stream.
	return nil
}
