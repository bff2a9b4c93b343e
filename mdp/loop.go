package mdp

// EpisodeStats describes one finished episode.
type EpisodeStats struct {
	Steps     int     `json:"steps"`
	Reward    float64 `json:"reward"`
	Length    int     `json:"length"`
	MaxLength int     `json:"max_length"`
	Done      bool    `json:"done"`
}

// RunEpisode resets env and plays until it reports done or maxSteps actions
// were taken. With learn set the agent explores and updates after every step;
// otherwise it acts greedily and its table is left alone.
func RunEpisode(env Environment, agent *Agent, maxSteps int, learn bool) EpisodeStats {
	var stats EpisodeStats
	state := env.Reset()

	for stats.Steps < maxSteps {
		action := agent.SelectAction(state, learn)
		next, reward, done := env.Step(action)
		if learn {
			agent.Update(state, action, reward, next, done)
		}
		stats.Reward += float64(reward)
		stats.Steps++
		state = next
		if done {
			stats.Done = true
			break
		}
	}

	if p, ok := env.(Progress); ok {
		stats.Length = p.Length()
		stats.MaxLength = p.MaxLength()
	}
	return stats
}
