package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/CodeStranger-Fred/slither/board"
	"github.com/CodeStranger-Fred/slither/internal/checkpoint"
	"github.com/CodeStranger-Fred/slither/internal/config"
	"github.com/CodeStranger-Fred/slither/internal/report"
	"github.com/CodeStranger-Fred/slither/internal/telemetry"
	"github.com/CodeStranger-Fred/slither/mdp"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		flags  configFlags
		output trainOutput
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the agent on the snake board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if err := a.useLogConfig(cmd, cfg.Log); err != nil {
				return err
			}
			return a.train(cmd.Context(), cfg, output)
		},
	}
	flags.register(cmd)
	fl := cmd.Flags()
	fl.StringVar(&flags.values.Train.Save, "save", "", "write the model here when done")
	fl.StringVar(&flags.values.Train.Load, "load", "", "start from this model if it exists")
	fl.StringVar(&flags.values.Train.Plot, "plot", "", "write an HTML reward chart here")
	fl.StringVar(&flags.values.Train.Report, "report", "", "write an xlsx episode report here")
	fl.StringVar(&flags.values.Train.CheckpointDB, "checkpoint-db", "", "badger directory for checkpoints")
	fl.IntVar(&flags.values.Train.CheckpointEvery, "checkpoint-every", 0, "checkpoint interval in episodes")
	fl.StringVar(&flags.values.Train.MetricsAddr, "metrics-addr", "", "serve /metrics on this address while training")
	fl.BoolVar(&output.quiet, "quiet", false, "do not print a line per episode")
	fl.BoolVar(&output.vision, "vision", false, "print what the snake sees after every step")
	return cmd
}

// trainOutput selects what train prints while it runs.
type trainOutput struct {
	quiet  bool
	vision bool
}

func (a *app) train(ctx context.Context, cfg config.Config, output trainOutput) error {
	runID := uuid.NewString()
	logger := a.logger.With(slog.String("run_id", runID))

	b, err := board.New(cfg.Board.Size, rand.New(rand.NewSource(cfg.Train.Seed)))
	if err != nil {
		return err
	}
	agent, err := mdp.NewAgent(cfg.AgentParams(), rand.New(rand.NewSource(cfg.Train.Seed+1)))
	if err != nil {
		return err
	}
	loaded, err := agent.LoadOrInitialize(cfg.Train.Load)
	if err != nil {
		return err
	}
	if loaded != nil {
		logger.Info("model loaded",
			slog.String("path", cfg.Train.Load),
			slog.Int("states", agent.Len()),
			slog.Float64("epsilon", agent.Epsilon()))
	}
	if !cfg.Train.Learn {
		agent.SetLearning(false)
	}

	var env mdp.Environment = b
	if output.vision {
		env = &visionPrinter{Board: b, w: a.out, au: a.au}
	}
	tr := &mdp.Trainer{
		Env:      env,
		Agent:    agent,
		MaxSteps: cfg.Train.MaxSteps,
		Learn:    cfg.Train.Learn,
	}
	if !output.quiet {
		tr.Observers = append(tr.Observers, episodePrinter{w: a.out, au: a.au})
	}

	var workbook *report.Workbook
	if cfg.Train.Report != "" {
		workbook, err = report.New()
		if err != nil {
			return err
		}
		defer workbook.Close()
		tr.Observers = append(tr.Observers, workbook)
	}

	var recorder *checkpoint.Recorder
	if cfg.Train.CheckpointDB != "" {
		store, err := checkpoint.Open(checkpoint.Config{
			Path:       cfg.Train.CheckpointDB,
			SyncWrites: true,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = checkpoint.NewRecorder(store, runID, cfg.Train.CheckpointEvery)
		tr.Observers = append(tr.Observers, recorder)
	}

	if cfg.Train.MetricsAddr != "" {
		metrics := telemetry.NewMetrics()
		tr.Observers = append(tr.Observers, metrics)

		srvCtx, stopServer := context.WithCancel(ctx)
		served := make(chan error, 1)
		go func() {
			served <- telemetry.Serve(srvCtx, cfg.Train.MetricsAddr, telemetry.NewRouter(metrics), logger)
		}()
		defer func() {
			stopServer()
			if err := <-served; err != nil {
				logger.Warn("metrics server", slog.Any("error", err))
			}
		}()
	}

	logger.Info("training started",
		slog.Int("sessions", cfg.Train.Sessions),
		slog.Int("max_steps", cfg.Train.MaxSteps),
		slog.Int("size", cfg.Board.Size),
		slog.Int64("seed", cfg.Train.Seed),
		slog.Bool("learn", cfg.Train.Learn))

	history, err := tr.Run(ctx, cfg.Train.Sessions)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Warn("training interrupted", slog.Int("episodes", len(history)))
	}

	printSummary(a.out, a.au, history, agent)

	md := history.Metadata()
	md["run_id"] = runID
	md["seed"] = cfg.Train.Seed

	if cfg.Train.Save != "" {
		if err := agent.Save(cfg.Train.Save, md); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Model saved to %s\n", cfg.Train.Save)
	}
	if workbook != nil {
		if err := workbook.Save(cfg.Train.Report, history.Summary(), agent.Summary(), md); err != nil {
			return err
		}
		logger.Info("report written", slog.String("path", cfg.Train.Report))
	}
	if cfg.Train.Plot != "" && len(history) > 0 {
		series := mdp.AverageRewards{Name: runID[:8], Rewards: history.Rewards()}
		if err := mdp.PlotFile(cfg.Train.Plot, "Reward per episode", series); err != nil {
			return err
		}
		logger.Info("chart written", slog.String("path", cfg.Train.Plot))
	}
	if recorder != nil && len(history) > 0 {
		last := mdp.EpisodeResult{
			Episode: len(history),
			Stats:   history[len(history)-1],
			Epsilon: agent.Epsilon(),
			States:  agent.Len(),
			Agent:   agent,
		}
		if err := recorder.Final(last); err != nil {
			return err
		}
	}
	return nil
}
