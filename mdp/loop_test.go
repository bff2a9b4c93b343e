package mdp

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corridor is a 1-D walk from cell 0 to the last cell. Right (3) advances,
// Left (1) steps back, Up and Down stay put.
type corridor struct {
	size int
	pos  int
	best int
}

func (c *corridor) Reset() State {
	c.pos = 0
	c.best = 0
	return State(c.pos)
}

func (c *corridor) Step(a Action) (State, Reward, bool) {
	switch a {
	case 3:
		c.pos++
	case 1:
		if c.pos > 0 {
			c.pos--
		}
	}
	if c.pos > c.best {
		c.best = c.pos
	}
	if c.pos == c.size-1 {
		return State(c.pos), 10, true
	}
	return State(c.pos), -0.1, false
}

func (c *corridor) Length() int    { return c.pos }
func (c *corridor) MaxLength() int { return c.best }

// endless never terminates.
type endless struct{}

func (endless) Reset() State                      { return 0 }
func (endless) Step(Action) (State, Reward, bool) { return 1, 1, false }

func corridorTrainer(t *testing.T, seed int64) *Trainer {
	t.Helper()
	p := Params{
		Alpha:        0.5,
		Gamma:        0.95,
		Epsilon:      1.0,
		MinEpsilon:   0.05,
		EpsilonDecay: 0.97,
		NumActions:   4,
	}
	return &Trainer{
		Env:      &corridor{size: 5},
		Agent:    newTestAgent(t, p, seed),
		MaxSteps: 100,
		Learn:    true,
	}
}

func TestRunEpisodeStopsAtMaxSteps(t *testing.T) {
	a := newTestAgent(t, DefaultParams(), 1)

	stats := RunEpisode(endless{}, a, 25, true)

	assert.Equal(t, 25, stats.Steps)
	assert.InDelta(t, 25.0, stats.Reward, 1e-9)
	assert.False(t, stats.Done)
	assert.Zero(t, stats.Length)
}

func TestRunEpisodeWithoutLearningLeavesValues(t *testing.T) {
	a := newTestAgent(t, DefaultParams(), 1)

	stats := RunEpisode(&corridor{size: 3}, a, 50, false)

	assert.Greater(t, stats.Steps, 0)
	for _, s := range a.q.States() {
		assert.Equal(t, []float64{0, 0, 0, 0}, a.Values(s))
	}
}

func TestRunEpisodeReportsProgress(t *testing.T) {
	a := newTestAgent(t, DefaultParams(), 1)
	require.NoError(t, a.SetValues(0, []float64{0, 0, 0, 1}))
	require.NoError(t, a.SetValues(1, []float64{0, 0, 0, 1}))
	require.NoError(t, a.SetValues(2, []float64{0, 0, 0, 1}))

	stats := RunEpisode(&corridor{size: 4}, a, 10, false)

	assert.True(t, stats.Done)
	assert.Equal(t, 3, stats.Steps)
	assert.Equal(t, 3, stats.Length)
	assert.Equal(t, 3, stats.MaxLength)
	assert.InDelta(t, 9.8, stats.Reward, 1e-9)
}

func TestTrainerLearnsCorridor(t *testing.T) {
	tr := corridorTrainer(t, 11)

	h, err := tr.Run(context.Background(), 300)
	require.NoError(t, err)
	require.Len(t, h, 300)
	assert.InDelta(t, 0.05, tr.Agent.Epsilon(), 1e-12)

	greedy := RunEpisode(tr.Env, tr.Agent, 100, false)
	assert.True(t, greedy.Done)
	assert.Equal(t, 4, greedy.Steps)
}

func TestTrainerWithoutLearningKeepsEpsilon(t *testing.T) {
	tr := corridorTrainer(t, 2)
	tr.Learn = false

	_, err := tr.Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Agent.Epsilon())
}

func TestTrainerNotifiesObservers(t *testing.T) {
	tr := corridorTrainer(t, 3)
	var seen []EpisodeResult
	tr.Observers = append(tr.Observers, ObserverFunc(func(r EpisodeResult) error {
		seen = append(seen, r)
		return nil
	}))

	_, err := tr.Run(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, seen, 4)
	for i, r := range seen {
		assert.Equal(t, i+1, r.Episode)
		assert.Equal(t, tr.Agent.Len(), r.Agent.Len())
	}
	assert.Less(t, seen[3].Epsilon, seen[0].Epsilon)
}

func TestTrainerStopsOnObserverError(t *testing.T) {
	tr := corridorTrainer(t, 4)
	boom := errors.New("disk full")
	tr.Observers = []Observer{ObserverFunc(func(r EpisodeResult) error {
		if r.Episode == 2 {
			return boom
		}
		return nil
	})}

	h, err := tr.Run(context.Background(), 10)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "episode 2")
	assert.Len(t, h, 2)
}

func TestTrainerStopsOnCancel(t *testing.T) {
	tr := corridorTrainer(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Observers = []Observer{ObserverFunc(func(r EpisodeResult) error {
		if r.Episode == 3 {
			cancel()
		}
		return nil
	})}

	h, err := tr.Run(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, h, 3)
}

func TestTrainerValidatesSetup(t *testing.T) {
	_, err := (&Trainer{}).Run(context.Background(), 1)
	assert.Error(t, err)

	tr := corridorTrainer(t, 1)
	tr.MaxSteps = 0
	_, err = tr.Run(context.Background(), 1)
	assert.Error(t, err)

	tr = corridorTrainer(t, 1)
	_, err = tr.Run(context.Background(), -1)
	assert.ErrorContains(t, err, "sessions must be non-negative, got -1")

	h, err := tr.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestRunRepeatedlyRejectsNegativeRuns(t *testing.T) {
	_, _, err := RunRepeatedly(context.Background(), "x", -2, 5,
		func(run int) (*Trainer, error) { return corridorTrainer(t, int64(run)), nil })
	assert.ErrorContains(t, err, "runs must be non-negative, got -2")
}

func TestHistorySummary(t *testing.T) {
	h := History{
		{Steps: 10, Reward: -5, MaxLength: 3},
		{Steps: 20, Reward: 15, MaxLength: 7},
		{Steps: 30, Reward: 2, MaxLength: 4},
	}

	s := h.Summary()
	assert.Equal(t, 3, s.Episodes)
	assert.InDelta(t, 4.0, s.AvgReward, 1e-12)
	assert.InDelta(t, 20.0, s.AvgSteps, 1e-12)
	assert.Equal(t, 15.0, s.BestReward)
	assert.Equal(t, 7, s.BestLength)
	assert.Equal(t, []float64{-5, 15, 2}, h.Rewards())

	md := h.Metadata()
	assert.Equal(t, 3, md["episodes"])
	assert.Equal(t, 7, md["max_length"])

	assert.Equal(t, RunSummary{}, History(nil).Summary())
}

func TestAverageRewardsHandlesUnevenRuns(t *testing.T) {
	got := averageRewards([]History{
		{{Reward: 1}, {Reward: 3}},
		{{Reward: 3}},
	})
	assert.Equal(t, []float64{2, 3}, got)
}

func TestRunRepeatedly(t *testing.T) {
	avg, histories, err := RunRepeatedly(context.Background(), "corridor", 3, 20,
		func(run int) (*Trainer, error) {
			return corridorTrainer(t, int64(run)+100), nil
		})
	require.NoError(t, err)

	assert.Equal(t, "corridor", avg.Name)
	assert.Len(t, avg.Rewards, 20)
	require.Len(t, histories, 3)
	for _, h := range histories {
		assert.Len(t, h, 20)
	}
}

func TestRunRepeatedlyReportsFactoryError(t *testing.T) {
	boom := errors.New("no env")
	_, _, err := RunRepeatedly(context.Background(), "x", 2, 5,
		func(run int) (*Trainer, error) {
			if run == 1 {
				return nil, boom
			}
			return &Trainer{
				Env:      &corridor{size: 3},
				Agent:    newTestAgent(t, DefaultParams(), int64(run)),
				MaxSteps: 10,
				Learn:    true,
			}, nil
		})
	assert.ErrorIs(t, err, boom)
}

func TestRandSatisfiedByMathRand(t *testing.T) {
	var _ Rand = rand.New(rand.NewSource(1))
}
