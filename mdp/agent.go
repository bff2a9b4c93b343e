package mdp

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidActions is returned when an agent is configured with fewer than
// one action.
var ErrInvalidActions = errors.New("number of actions must be positive")

// Params are the hyperparameters of a Q-learning agent.
type Params struct {
	Alpha        float64
	Gamma        float64
	Epsilon      float64
	MinEpsilon   float64
	EpsilonDecay float64
	NumActions   int
}

func DefaultParams() Params {
	return Params{
		Alpha:        0.1,
		Gamma:        0.95,
		Epsilon:      1.0,
		MinEpsilon:   0.1,
		EpsilonDecay: 0.999,
		NumActions:   4,
	}
}

// Agent is a tabular Q-learning agent. It is owned by a single training loop
// and is not safe for concurrent use; independent agents share nothing.
type Agent struct {
	alpha        float64
	gamma        float64
	epsilon      float64
	minEpsilon   float64
	epsilonDecay float64
	numActions   int
	learning     bool

	q   QTable
	rng Rand
}

// NewAgent builds an agent with an empty table and learning enabled.
func NewAgent(p Params, rng Rand) (*Agent, error) {
	if p.NumActions <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidActions, p.NumActions)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	return &Agent{
		alpha:        p.Alpha,
		gamma:        p.Gamma,
		epsilon:      p.Epsilon,
		minEpsilon:   p.MinEpsilon,
		epsilonDecay: p.EpsilonDecay,
		numActions:   p.NumActions,
		learning:     true,
		q:            QTable{},
		rng:          rng,
	}, nil
}

// EnsureState adds a zeroed entry for s if the table has none.
func (a *Agent) EnsureState(s State) {
	if _, ok := a.q[s]; !ok {
		a.q[s] = make([]float64, a.numActions)
	}
}

// Values returns a copy of the values stored for s, or nil if s was never seen.
func (a *Agent) Values(s State) []float64 {
	v, ok := a.q[s]
	if !ok {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// SetValues overwrites the values of s. The slice must hold NumActions values.
func (a *Agent) SetValues(s State, values []float64) error {
	if len(values) != a.numActions {
		return fmt.Errorf("state %d: want %d values, got %d", s, a.numActions, len(values))
	}
	v := make([]float64, len(values))
	copy(v, values)
	a.q[s] = v
	return nil
}

func (a *Agent) Has(s State) bool {
	_, ok := a.q[s]
	return ok
}

// Len is the number of states in the table.
func (a *Agent) Len() int { return len(a.q) }

func (a *Agent) NumActions() int { return a.numActions }

func (a *Agent) Epsilon() float64 { return a.epsilon }

// SetEpsilon sets the exploration rate directly. Use it to restore a rate
// captured before SetLearning(false).
func (a *Agent) SetEpsilon(e float64) { a.epsilon = e }

func (a *Agent) Learning() bool { return a.learning }

func (a *Agent) Params() Params {
	return Params{
		Alpha:        a.alpha,
		Gamma:        a.gamma,
		Epsilon:      a.epsilon,
		MinEpsilon:   a.minEpsilon,
		EpsilonDecay: a.epsilonDecay,
		NumActions:   a.numActions,
	}
}

// Summary mirrors what the trainer prints at the end of a run.
type Summary struct {
	States  int     `json:"states"`
	Epsilon float64 `json:"epsilon"`
	Alpha   float64 `json:"alpha"`
	Gamma   float64 `json:"gamma"`
}

func (a *Agent) Summary() Summary {
	return Summary{
		States:  len(a.q),
		Epsilon: math.Round(a.epsilon*1e4) / 1e4,
		Alpha:   a.alpha,
		Gamma:   a.gamma,
	}
}
