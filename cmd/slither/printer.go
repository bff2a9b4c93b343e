package main

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"

	"github.com/CodeStranger-Fred/slither/board"
	"github.com/CodeStranger-Fred/slither/mdp"
)

// episodePrinter writes one line per finished episode.
type episodePrinter struct {
	w  io.Writer
	au aurora.Aurora
}

func (p episodePrinter) ObserveEpisode(r mdp.EpisodeResult) error {
	reward := fmt.Sprintf("%.2f", r.Stats.Reward)
	var colored aurora.Value
	if r.Stats.Reward >= 0 {
		colored = p.au.Green(reward)
	} else {
		colored = p.au.Red(reward)
	}
	_, err := fmt.Fprintf(p.w, "Episode %04d - steps=%d reward=%s length=%d max_length=%d epsilon=%.3f\n",
		r.Episode, r.Stats.Steps, colored, r.Stats.Length, r.Stats.MaxLength, r.Epsilon)
	return err
}

func printSummary(w io.Writer, au aurora.Aurora, h mdp.History, agent *mdp.Agent) {
	s := h.Summary()
	as := agent.Summary()
	fmt.Fprintln(w)
	fmt.Fprintln(w, au.Bold("Training complete"))
	fmt.Fprintf(w, "Episodes: %d\n", s.Episodes)
	fmt.Fprintf(w, "Average reward: %.2f\n", s.AvgReward)
	fmt.Fprintf(w, "Best length: %d\n", s.BestLength)
	fmt.Fprintf(w, "States: %d  epsilon: %.4f  alpha: %g  gamma: %g\n",
		as.States, as.Epsilon, as.Alpha, as.Gamma)
}

// visionPrinter wraps the board and prints the snake's view after each step.
type visionPrinter struct {
	*board.Board
	w  io.Writer
	au aurora.Aurora
}

func (v *visionPrinter) Step(act mdp.Action) (mdp.State, mdp.Reward, bool) {
	next, r, done := v.Board.Step(act)
	fmt.Fprintf(v.w, "%s reward=%.1f\n%s", v.au.Cyan(board.Direction(act)), float64(r), v.Board.Vision())
	return next, r, done
}
