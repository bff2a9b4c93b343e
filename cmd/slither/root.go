package main

import (
	"io"
	"log/slog"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"github.com/CodeStranger-Fred/slither/internal/config"
	"github.com/CodeStranger-Fred/slither/internal/telemetry"
)

// app is shared by every subcommand.
type app struct {
	out    io.Writer
	errOut io.Writer

	logLevel  string
	logFormat string
	noColor   bool

	logger *slog.Logger
	au     aurora.Aurora
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "slither",
		Short:         "Train and watch a Q-learning snake",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.au = aurora.NewAurora(!a.noColor)
			return a.setLogger(a.logLevel, a.logFormat)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newTrainCmd(a),
		newPlayCmd(a),
		newInspectCmd(a),
		newSweepCmd(a),
	)
	return root
}

func (a *app) setLogger(level, format string) error {
	logger, err := telemetry.NewLogger(level, format, a.errOut)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

// useLogConfig rebuilds the logger from the log section of a config file.
// --log-level and --log-format still win when given.
func (a *app) useLogConfig(cmd *cobra.Command, lc config.LogConfig) error {
	level, format := lc.Level, lc.Format
	if cmd.Flags().Changed("log-level") {
		level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		format = a.logFormat
	}
	return a.setLogger(level, format)
}
