package main

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/CodeStranger-Fred/slither/board"
	"github.com/CodeStranger-Fred/slither/mdp"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		flags  configFlags
		runs   int
		alphas []float64
		plot   string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Train independent agents in parallel and compare learning rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runs < 1 {
				return fmt.Errorf("runs must be positive, got %d", runs)
			}
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if err := a.useLogConfig(cmd, cfg.Log); err != nil {
				return err
			}
			if len(alphas) == 0 {
				alphas = []float64{cfg.Agent.Alpha}
			}

			var series []mdp.AverageRewards
			for _, alpha := range alphas {
				c := cfg
				c.Agent.Alpha = alpha
				if err := c.Validate(); err != nil {
					return err
				}
				name := fmt.Sprintf("alpha=%g", alpha)
				avg, histories, err := mdp.RunRepeatedly(cmd.Context(), name, runs, c.Train.Sessions,
					func(run int) (*mdp.Trainer, error) {
						seed := c.Train.Seed + int64(run)*1000
						b, err := board.New(c.Board.Size, rand.New(rand.NewSource(seed)))
						if err != nil {
							return nil, err
						}
						agent, err := mdp.NewAgent(c.AgentParams(), rand.New(rand.NewSource(seed+1)))
						if err != nil {
							return nil, err
						}
						if !c.Train.Learn {
							agent.SetLearning(false)
						}
						return &mdp.Trainer{Env: b, Agent: agent, MaxSteps: c.Train.MaxSteps, Learn: c.Train.Learn}, nil
					})
				if err != nil {
					return err
				}
				series = append(series, avg)

				best := 0
				for _, h := range histories {
					if s := h.Summary(); s.BestLength > best {
						best = s.BestLength
					}
				}
				fmt.Fprintf(a.out, "%-12s runs=%d final_avg_reward=%.2f best_length=%d\n",
					name, runs, tailMean(avg.Rewards, 10), best)
				a.logger.Debug("sweep point done", slog.String("series", name))
			}

			if plot != "" {
				if err := mdp.PlotFile(plot, "Average reward per episode", series...); err != nil {
					return err
				}
				a.logger.Info("chart written", slog.String("path", plot))
			}
			return nil
		},
	}
	flags.register(cmd)
	fl := cmd.Flags()
	fl.IntVar(&runs, "runs", 4, "independent runs per learning rate")
	fl.Float64SliceVar(&alphas, "alphas", nil, "learning rates to compare, the configured alpha when empty")
	fl.StringVar(&plot, "plot", "", "write an HTML chart of the averaged rewards here")
	return cmd
}

// tailMean averages the last n values, or all of them when there are fewer.
func tailMean(xs []float64, n int) float64 {
	if len(xs) == 0 {
		return 0
	}
	if len(xs) < n {
		n = len(xs)
	}
	var sum float64
	for _, x := range xs[len(xs)-n:] {
		sum += x
	}
	return sum / float64(n)
}
