package mdp

import "math"

// DecayEpsilon shrinks the exploration rate by the decay factor, never below
// the configured floor. Call it once per finished episode.
func (a *Agent) DecayEpsilon() {
	if !a.learning {
		return
	}
	a.epsilon = math.Max(a.minEpsilon, a.epsilon*a.epsilonDecay)
}

// SetLearning toggles learning. Disabling forces epsilon to 0. Enabling again
// does not bring the old rate back; callers that pause training must keep it
// themselves and restore it with SetEpsilon.
func (a *Agent) SetLearning(enabled bool) {
	a.learning = enabled
	if !enabled {
		a.epsilon = 0
	}
}
