package mdp

// Update applies one Q-learning step for the transition (s, act, r, next).
// Terminal transitions do not bootstrap from next. act must be in
// [0, NumActions); it is not checked.
func (a *Agent) Update(s State, act Action, r Reward, next State, done bool) {
	if !a.learning {
		return
	}
	a.EnsureState(s)

	target := float64(r)
	if !done {
		a.EnsureState(next)
		target += a.gamma * a.q.Max(next)
	}

	qsa := a.q[s][act]
	a.q[s][act] = qsa + a.alpha*(target-qsa)
}

// Learn is Update for a recorded transition.
func (a *Agent) Learn(t Transition) {
	a.Update(t.State0, t.Action, t.Reward, t.State1, t.Done)
}
