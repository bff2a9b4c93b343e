package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/CodeStranger-Fred/slither/internal/config"
)

// configFlags binds the run settings shared by train and sweep. Only flags
// given on the command line override the config file.
type configFlags struct {
	path      string
	values    config.Config
	dontLearn bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	d := config.Default()
	f.values = d
	fl := cmd.Flags()
	fl.StringVar(&f.path, "config", "", "YAML config file")
	fl.IntVar(&f.values.Train.Sessions, "sessions", d.Train.Sessions, "episodes to play")
	fl.IntVar(&f.values.Train.MaxSteps, "max-steps", d.Train.MaxSteps, "step limit per episode")
	fl.IntVar(&f.values.Board.Size, "size", d.Board.Size, "board size")
	fl.Float64Var(&f.values.Agent.Alpha, "alpha", d.Agent.Alpha, "learning rate")
	fl.Float64Var(&f.values.Agent.Gamma, "gamma", d.Agent.Gamma, "discount factor")
	fl.Float64Var(&f.values.Agent.Epsilon, "epsilon", d.Agent.Epsilon, "initial exploration rate")
	fl.Float64Var(&f.values.Agent.MinEpsilon, "min-epsilon", d.Agent.MinEpsilon, "exploration floor")
	fl.Float64Var(&f.values.Agent.EpsilonDecay, "epsilon-decay", d.Agent.EpsilonDecay, "exploration decay per episode")
	fl.Int64Var(&f.values.Train.Seed, "seed", d.Train.Seed, "random seed, 0 picks one")
	fl.BoolVar(&f.dontLearn, "dontlearn", false, "play greedily without updating the table")
}

// load reads the config file and applies the flags that were set.
func (f *configFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.path)
	if err != nil {
		return cfg, err
	}
	v := f.values
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("sessions", func() { cfg.Train.Sessions = v.Train.Sessions })
	set("max-steps", func() { cfg.Train.MaxSteps = v.Train.MaxSteps })
	set("size", func() { cfg.Board.Size = v.Board.Size })
	set("alpha", func() { cfg.Agent.Alpha = v.Agent.Alpha })
	set("gamma", func() { cfg.Agent.Gamma = v.Agent.Gamma })
	set("epsilon", func() { cfg.Agent.Epsilon = v.Agent.Epsilon })
	set("min-epsilon", func() { cfg.Agent.MinEpsilon = v.Agent.MinEpsilon })
	set("epsilon-decay", func() { cfg.Agent.EpsilonDecay = v.Agent.EpsilonDecay })
	set("seed", func() { cfg.Train.Seed = v.Train.Seed })
	if f.dontLearn {
		cfg.Train.Learn = false
	}
	set("save", func() { cfg.Train.Save = v.Train.Save })
	set("load", func() { cfg.Train.Load = v.Train.Load })
	set("plot", func() { cfg.Train.Plot = v.Train.Plot })
	set("report", func() { cfg.Train.Report = v.Train.Report })
	set("checkpoint-db", func() { cfg.Train.CheckpointDB = v.Train.CheckpointDB })
	set("checkpoint-every", func() { cfg.Train.CheckpointEvery = v.Train.CheckpointEvery })
	set("metrics-addr", func() { cfg.Train.MetricsAddr = v.Train.MetricsAddr })

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.Train.Seed == 0 {
		cfg.Train.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}
