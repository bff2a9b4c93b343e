package mdp

import (
	"math"
	"sort"
)

// QTable maps a state to one value per action.
type QTable map[State][]float64

// Max is the largest value stored for s, or 0 if s is unknown.
func (q QTable) Max(s State) float64 {
	values, ok := q[s]
	if !ok || len(values) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}

// Argmax returns every action whose value equals the maximum for s, in
// ascending order. NaN values never match.
func (q QTable) Argmax(s State) []Action {
	values := q[s]
	best := math.Inf(-1)
	var tied []Action
	for i, v := range values {
		switch {
		case v > best:
			best = v
			tied = append(tied[:0], Action(i))
		case v == best:
			tied = append(tied, Action(i))
		}
	}
	return tied
}

// States returns the keys of the table in ascending order.
func (q QTable) States() []State {
	keys := make([]State, 0, len(q))
	for s := range q {
		keys = append(keys, s)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// BestAction is the greedy action for s. Ties are broken uniformly at random.
func (a *Agent) BestAction(s State) Action {
	a.EnsureState(s)
	tied := a.q.Argmax(s)
	switch len(tied) {
	case 0:
		// every value is NaN
		return Action(a.rng.Intn(a.numActions))
	case 1:
		return tied[0]
	}
	return tied[a.rng.Intn(len(tied))]
}
