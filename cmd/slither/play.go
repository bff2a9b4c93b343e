package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/CodeStranger-Fred/slither/board"
	"github.com/CodeStranger-Fred/slither/mdp"
)

type playOptions struct {
	model    string
	size     int
	seed     int64
	fps      float64
	maxSteps int
	games    int
	vision   bool
}

func newPlayCmd(a *app) *cobra.Command {
	o := playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Watch a trained model play without learning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), o)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&o.model, "model", "", "model file written by train --save")
	fl.IntVar(&o.size, "size", board.DefaultSize, "board size")
	fl.Int64Var(&o.seed, "seed", 0, "random seed, 0 picks one")
	fl.Float64Var(&o.fps, "fps", 4, "moves per second, 0 for no pacing")
	fl.IntVar(&o.maxSteps, "max-steps", 500, "step limit per game")
	fl.IntVar(&o.games, "games", 1, "games to play")
	fl.BoolVar(&o.vision, "vision", false, "print only what the snake sees")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) play(ctx context.Context, o playOptions) error {
	if o.games < 1 || o.maxSteps < 1 {
		return errors.New("games and max-steps must be positive")
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	b, err := board.New(o.size, rand.New(rand.NewSource(o.seed)))
	if err != nil {
		return err
	}
	agent, err := mdp.NewAgent(mdp.DefaultParams(), rand.New(rand.NewSource(o.seed+1)))
	if err != nil {
		return err
	}
	if _, err := agent.Load(o.model); err != nil {
		return err
	}
	agent.SetLearning(false)

	limit := rate.Inf
	if o.fps > 0 {
		limit = rate.Limit(o.fps)
	}
	limiter := rate.NewLimiter(limit, 1)

	for game := 1; game <= o.games; game++ {
		b.Reset()
		if err := a.show(b, o.vision); err != nil {
			return err
		}
		for steps := 0; steps < o.maxSteps && !b.GameOver(); steps++ {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			dir := board.Direction(agent.SelectAction(b.State(), false))
			out := b.Move(dir)
			fmt.Fprintf(a.out, "%s: %s\n", a.au.Cyan(dir), out)
			if err := a.show(b, o.vision); err != nil {
				return err
			}
		}
		a.logger.Info("game finished",
			slog.Int("game", game),
			slog.Int("score", b.Score()),
			slog.Int("max_length", b.MaxLength()),
			slog.Int("moves", b.Moves()),
			slog.Bool("game_over", b.GameOver()))
	}
	return nil
}

func (a *app) show(b *board.Board, vision bool) error {
	if vision {
		_, err := fmt.Fprint(a.out, b.Vision())
		return err
	}
	return b.Render(a.out, !a.noColor)
}
