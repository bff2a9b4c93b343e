package checkpoint

import (
	"time"

	"github.com/CodeStranger-Fred/slither/mdp"
)

// Recorder is an mdp.Observer that stores a checkpoint every Every episodes.
// Every <= 0 stores nothing during the run; Final still works.
type Recorder struct {
	Store *Store
	RunID string
	Every int

	now func() time.Time
}

func NewRecorder(store *Store, runID string, every int) *Recorder {
	return &Recorder{Store: store, RunID: runID, Every: every, now: time.Now}
}

func (r *Recorder) ObserveEpisode(res mdp.EpisodeResult) error {
	if r.Every <= 0 || res.Episode%r.Every != 0 {
		return nil
	}
	return r.put(res)
}

// Final stores res whatever the interval, typically the last episode of a run.
func (r *Recorder) Final(res mdp.EpisodeResult) error {
	return r.put(res)
}

func (r *Recorder) put(res mdp.EpisodeResult) error {
	if res.Agent == nil {
		return nil
	}
	model, err := res.Agent.Encode(mdp.Metadata{
		"run_id":  r.RunID,
		"episode": res.Episode,
	})
	if err != nil {
		return err
	}
	now := r.now
	if now == nil {
		now = time.Now
	}
	return r.Store.Put(Checkpoint{
		RunID:     r.RunID,
		Episode:   res.Episode,
		Time:      now().UTC(),
		Epsilon:   res.Epsilon,
		States:    res.States,
		Reward:    res.Stats.Reward,
		MaxLength: res.Stats.MaxLength,
		Model:     model,
	})
}
