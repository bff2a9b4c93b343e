package mdp

// SelectAction picks an action for s. With explore set and learning enabled,
// a uniformly random action is taken with probability epsilon; otherwise the
// greedy action is returned.
func (a *Agent) SelectAction(s State, explore bool) Action {
	a.EnsureState(s)
	if explore && a.learning && a.rng.Float64() < a.epsilon {
		return Action(a.rng.Intn(a.numActions))
	}
	return a.BestAction(s)
}
