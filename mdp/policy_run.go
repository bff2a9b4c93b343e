package mdp

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EpisodeResult is what observers see after every episode.
type EpisodeResult struct {
	Episode int
	Stats   EpisodeStats
	Epsilon float64
	States  int
	Agent   *Agent
}

// Observer is notified after each episode. A non-nil error stops training.
type Observer interface {
	ObserveEpisode(EpisodeResult) error
}

type ObserverFunc func(EpisodeResult) error

func (f ObserverFunc) ObserveEpisode(r EpisodeResult) error { return f(r) }

// Trainer runs episodes of one agent against one environment.
type Trainer struct {
	Env       Environment
	Agent     *Agent
	MaxSteps  int
	Learn     bool
	Observers []Observer
}

// Run plays sessions episodes, decaying epsilon after each one while
// learning. Cancelling ctx stops the run between episodes; the history so far
// is returned together with ctx's error.
func (t *Trainer) Run(ctx context.Context, sessions int) (History, error) {
	if t.Env == nil || t.Agent == nil {
		return nil, fmt.Errorf("trainer needs an environment and an agent")
	}
	if t.MaxSteps <= 0 {
		return nil, fmt.Errorf("max steps must be positive, got %d", t.MaxSteps)
	}
	if sessions < 0 {
		return nil, fmt.Errorf("sessions must be non-negative, got %d", sessions)
	}

	history := make(History, 0, sessions)
	for ep := 1; ep <= sessions; ep++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		stats := RunEpisode(t.Env, t.Agent, t.MaxSteps, t.Learn)
		history = append(history, stats)
		if t.Learn {
			t.Agent.DecayEpsilon()
		}

		res := EpisodeResult{
			Episode: ep,
			Stats:   stats,
			Epsilon: t.Agent.Epsilon(),
			States:  t.Agent.Len(),
			Agent:   t.Agent,
		}
		for _, o := range t.Observers {
			if err := o.ObserveEpisode(res); err != nil {
				return history, fmt.Errorf("episode %d: %w", ep, err)
			}
		}
	}
	return history, nil
}

// History holds the stats of every episode of a run, in order.
type History []EpisodeStats

type RunSummary struct {
	Episodes   int     `json:"episodes"`
	AvgReward  float64 `json:"avg_reward"`
	AvgSteps   float64 `json:"avg_steps"`
	BestReward float64 `json:"best_reward"`
	BestLength int     `json:"max_length"`
}

func (h History) Summary() RunSummary {
	s := RunSummary{Episodes: len(h)}
	if len(h) == 0 {
		return s
	}
	var reward, steps float64
	s.BestReward = h[0].Reward
	for _, e := range h {
		reward += e.Reward
		steps += float64(e.Steps)
		if e.Reward > s.BestReward {
			s.BestReward = e.Reward
		}
		if e.MaxLength > s.BestLength {
			s.BestLength = e.MaxLength
		}
	}
	s.AvgReward = reward / float64(len(h))
	s.AvgSteps = steps / float64(len(h))
	return s
}

// Metadata is the summary in the form Save stores it.
func (h History) Metadata() Metadata {
	s := h.Summary()
	return Metadata{
		"episodes":   s.Episodes,
		"max_length": s.BestLength,
		"avg_reward": s.AvgReward,
	}
}

func (h History) Rewards() []float64 {
	out := make([]float64, len(h))
	for i, e := range h {
		out[i] = e.Reward
	}
	return out
}

// AverageRewards is the per-episode mean reward across runs. Runs shorter
// than the longest one only count for the episodes they have.
type AverageRewards struct {
	Name    string
	Rewards []float64
}

// RunRepeatedly trains runs independent trainers in parallel. newTrainer is
// called once per run and must return a trainer with its own agent, random
// source and environment.
func RunRepeatedly(ctx context.Context, name string, runs, sessions int,
	newTrainer func(run int) (*Trainer, error)) (AverageRewards, []History, error) {

	if runs < 0 {
		return AverageRewards{}, nil, fmt.Errorf("runs must be non-negative, got %d", runs)
	}
	histories := make([]History, runs)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < runs; i++ {
		g.Go(func() error {
			t, err := newTrainer(i)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			h, err := t.Run(ctx, sessions)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			histories[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AverageRewards{}, nil, err
	}

	avg := AverageRewards{Name: name, Rewards: averageRewards(histories)}
	return avg, histories, nil
}

func averageRewards(histories []History) []float64 {
	longest := 0
	for _, h := range histories {
		if len(h) > longest {
			longest = len(h)
		}
	}
	sums := make([]float64, longest)
	counts := make([]int, longest)
	for _, h := range histories {
		for t, e := range h {
			sums[t] += e.Reward
			counts[t]++
		}
	}
	for t := range sums {
		sums[t] /= float64(counts[t])
	}
	return sums
}
