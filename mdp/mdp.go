// Package mdp holds the tabular Q-learning agent and the loop that drives it
// against an environment.
package mdp

// State is the key an environment hands out for an observation. The agent
// treats it as opaque and never assumes a maximum value.
type State uint64

// Action indexes the agent's value vector for a state.
type Action int

type Reward float64

// Environment is the contract the training loop drives. Actions 0..3 map to
// four fixed directions.
type Environment interface {
	Reset() State
	Step(Action) (State, Reward, bool)
}

// Progress is implemented by environments that track a length, like the snake
// board. The loop uses it for episode stats when present.
type Progress interface {
	Length() int
	MaxLength() int
}

type Transition struct {
	State0 State
	Action Action
	State1 State
	Reward Reward
	Done   bool
}

// Rand is the random source used for exploration and tie-breaking.
// *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}
