// Package ddm implements a multi-alternative drift-diffusion model: each
// alternative accumulates evidence under noise until one crosses a threshold,
// yielding a choice, a simulated reaction time, and a confidence score.
package ddm

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Config holds the simulation parameters. It is fixed at construction and
// never mutated, so a single Simulator is safe for concurrent use.
type Config struct {
	// Threshold is the evidence level an alternative must reach to win.
	// Must be > 0.
	Threshold float64 `yaml:"threshold"`

	// NoiseSigma is the standard deviation of the accumulation noise.
	// Must be > 0.
	NoiseSigma float64 `yaml:"noise_sigma"`

	// TimeStep is the simulated time step (dt) in seconds. Must be > 0.
	TimeStep float64 `yaml:"time_step"`

	// MaxTime is the maximum simulated time in seconds. A simulation that
	// has not crossed the threshold by then times out and picks the
	// leading alternative. Must be > 0.
	MaxTime float64 `yaml:"max_time"`
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:  1.0,
		NoiseSigma: 0.1,
		TimeStep:   0.001,
		MaxTime:    2.0,
	}
}

// Validate checks that all parameters are in range.
func (c Config) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be > 0 (got %g)", c.Threshold)
	}
	if c.NoiseSigma <= 0 {
		return fmt.Errorf("noise_sigma must be > 0 (got %g)", c.NoiseSigma)
	}
	if c.TimeStep <= 0 {
		return fmt.Errorf("time_step must be > 0 (got %g)", c.TimeStep)
	}
	if c.MaxTime <= 0 {
		return fmt.Errorf("max_time must be > 0 (got %g)", c.MaxTime)
	}
	if c.MaxTime < c.TimeStep {
		return fmt.Errorf("max_time (%g) must be >= time_step (%g)", c.MaxTime, c.TimeStep)
	}
	return nil
}

// MaxSteps is the number of simulation steps implied by MaxTime and TimeStep.
func (c Config) MaxSteps() int {
	return int(c.MaxTime / c.TimeStep)
}

// Simulator runs the accumulation race. It holds no per-call state.
type Simulator struct {
	cfg Config
}

// New creates a Simulator with the given parameters.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ddm config: %w", err)
	}
	return &Simulator{cfg: cfg}, nil
}

// Config returns the simulation parameters.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Outcome is the result of a single simulation run.
type Outcome struct {
	// Winner is the label of the chosen alternative.
	Winner string `json:"winner"`

	// WinnerIndex is the index of the chosen alternative. Ties go to the
	// lowest index.
	WinnerIndex int `json:"winner_index"`

	// ReactionTimeMS is the simulated decision latency in milliseconds.
	ReactionTimeMS float64 `json:"reaction_time"`

	// Confidence is the winner's share of the total positive evidence at
	// decision time, clipped to [0,1].
	Confidence float64 `json:"confidence"`

	// TimedOut reports whether no alternative crossed the threshold within
	// MaxTime; the leading alternative is chosen in that case.
	TimedOut bool `json:"timed_out"`
}

// NewRNG returns a generator for reproducible simulations. Two streams with
// the same seed produce identical noise sequences.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// newRandomRNG returns a generator seeded from the shared top-level source,
// which is safe for concurrent draws.
func newRandomRNG() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Simulate runs the evidence accumulation race. Each step adds
// driftRates[i]*dt plus an independent Gaussian perturbation with standard
// deviation sigma*sqrt(dt) to every accumulator. The first alternative whose
// accumulator reaches the threshold wins; if none does within MaxTime, the
// leading accumulator wins and the outcome is marked timed out.
//
// A nil rng gets a fresh randomly seeded stream, so callers that do not need
// reproducibility can pass nil without sharing generator state.
func (s *Simulator) Simulate(rng *rand.Rand, driftRates []float64, labels []string) (Outcome, error) {
	if len(driftRates) != len(labels) {
		return Outcome{}, fmt.Errorf("drift rates (%d) and labels (%d) must have the same length",
			len(driftRates), len(labels))
	}
	if len(driftRates) == 0 {
		return Outcome{}, fmt.Errorf("at least one alternative is required")
	}
	if rng == nil {
		rng = newRandomRNG()
	}

	evidence := make([]float64, len(driftRates))
	noiseScale := s.cfg.NoiseSigma * math.Sqrt(s.cfg.TimeStep)
	maxSteps := s.cfg.MaxSteps()

	for step := 0; step < maxSteps; step++ {
		for i := range evidence {
			evidence[i] += driftRates[i]*s.cfg.TimeStep + rng.NormFloat64()*noiseScale
		}

		winner := argmax(evidence)
		if evidence[winner] >= s.cfg.Threshold {
			return Outcome{
				Winner:         labels[winner],
				WinnerIndex:    winner,
				ReactionTimeMS: float64(step) * s.cfg.TimeStep * 1000,
				Confidence:     confidence(evidence, winner, 0.5),
			}, nil
		}
	}

	// Timeout: the leading accumulator wins at reduced default confidence.
	winner := argmax(evidence)
	return Outcome{
		Winner:         labels[winner],
		WinnerIndex:    winner,
		ReactionTimeMS: s.cfg.MaxTime * 1000,
		Confidence:     confidence(evidence, winner, 0.33),
		TimedOut:       true,
	}, nil
}

// argmax returns the index of the maximum value; ties go to the lowest index.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// confidence is the winner's share of the summed positive evidence. The
// denominator sums positive evidence across all alternatives, so the raw
// ratio can exceed 1 when the winner is above zero while the sum is smaller;
// the result is always clipped to [0,1]. fallback is used when no accumulator
// is positive.
func confidence(evidence []float64, winner int, fallback float64) float64 {
	var sum float64
	for _, v := range evidence {
		if v > 0 {
			sum += v
		}
	}
	if sum == 0 {
		return fallback
	}
	c := evidence[winner] / sum
	return math.Min(1.0, math.Max(0.0, c))
}
