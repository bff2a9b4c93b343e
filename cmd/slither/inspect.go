package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CodeStranger-Fred/slither/internal/checkpoint"
	"github.com/CodeStranger-Fred/slither/mdp"
)

type inspectOptions struct {
	model       string
	states      []string
	checkpoints string
	run         string
	episode     int
	export      string
}

func newInspectCmd(a *app) *cobra.Command {
	o := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show a saved model or the checkpoints of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case o.checkpoints != "":
				return a.inspectCheckpoints(o)
			case o.model != "":
				return a.inspectModel(o)
			}
			return errors.New("either --model or --checkpoints is required")
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&o.model, "model", "", "model file to inspect")
	fl.StringSliceVar(&o.states, "state", nil, "print the values of these states")
	fl.StringVar(&o.checkpoints, "checkpoints", "", "badger checkpoint directory")
	fl.StringVar(&o.run, "run", "", "run id to list, all runs when empty")
	fl.IntVar(&o.episode, "episode", 0, "checkpoint episode to export, latest when 0")
	fl.StringVar(&o.export, "export", "", "write the chosen checkpoint as a model file")
	return cmd
}

func (a *app) inspectModel(o inspectOptions) error {
	agent, err := mdp.NewAgent(mdp.DefaultParams(), rand.New(rand.NewSource(1)))
	if err != nil {
		return err
	}
	md, err := agent.Load(o.model)
	if err != nil {
		return err
	}
	a.printModel(agent, md)

	for _, raw := range o.states {
		s, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("state %q: %w", raw, err)
		}
		values := agent.Values(mdp.State(s))
		if values == nil {
			fmt.Fprintf(a.out, "state %d: unseen\n", s)
			continue
		}
		fmt.Fprintf(a.out, "state %d: %v\n", s, values)
	}
	return nil
}

func (a *app) printModel(agent *mdp.Agent, md mdp.Metadata) {
	s := agent.Summary()
	fmt.Fprintf(a.out, "States: %d\n", s.States)
	fmt.Fprintf(a.out, "Epsilon: %.4f\n", s.Epsilon)
	fmt.Fprintf(a.out, "Alpha: %g\n", s.Alpha)
	fmt.Fprintf(a.out, "Gamma: %g\n", s.Gamma)
	fmt.Fprintf(a.out, "Learning: %v\n", agent.Learning())

	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "%s: %v\n", k, md[k])
	}
}

func (a *app) inspectCheckpoints(o inspectOptions) error {
	info, err := os.Stat(o.checkpoints)
	if err != nil {
		return fmt.Errorf("checkpoint directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("checkpoint directory %s is not a directory", o.checkpoints)
	}
	store, err := checkpoint.Open(checkpoint.Config{Path: o.checkpoints})
	if err != nil {
		return err
	}
	defer store.Close()

	if o.run == "" {
		runs, err := store.Runs()
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintln(a.out, r)
		}
		return nil
	}

	if o.export != "" {
		var c checkpoint.Checkpoint
		if o.episode > 0 {
			c, err = store.Get(o.run, o.episode)
		} else {
			c, err = store.Latest(o.run)
		}
		if err != nil {
			return err
		}
		agent, err := mdp.NewAgent(mdp.DefaultParams(), rand.New(rand.NewSource(1)))
		if err != nil {
			return err
		}
		md, err := c.Restore(agent)
		if err != nil {
			return err
		}
		if err := agent.Save(o.export, md); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Checkpoint %s/%d exported to %s\n", c.RunID, c.Episode, o.export)
		return nil
	}

	list, err := store.List(o.run)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("run %s: %w", o.run, checkpoint.ErrNotFound)
	}
	for _, c := range list {
		fmt.Fprintf(a.out, "episode %6d  %s  states=%d epsilon=%.4f reward=%.2f max_length=%d\n",
			c.Episode, c.Time.Format("2006-01-02 15:04:05"), c.States, c.Epsilon, c.Reward, c.MaxLength)
	}
	return nil
}
