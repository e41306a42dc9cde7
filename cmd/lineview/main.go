package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vito/lineview/pkg/ioctx"
)

// Config holds the application configuration
type Config struct {
	Debug        bool
	LogFile      string
	StatsFile    string
	RepeatPrefix bool
	MaxRows      int
	MaxMenuRows  int
	Prompt       string
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "lineview [flags]",
		Short: "Interactive demo of the lineview renderer",
		Long: `lineview runs a small shell-like line editor on top of the lineview
renderer. Commands are not executed; they are echoed back after Enter.`,
		Example: `  # Start the editor
  lineview

  # Record per-frame render stats and debug logs
  lineview --stats-file /tmp/frames.jsonl --log-file /tmp/lineview.log -d

  # Replay a scripted session without a terminal
  lineview stress --frames 5000`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			cmd.SetContext(ioctx.LoggerToContext(cmd.Context(), logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Write logs to this file (discarded if not specified)")
	flags.StringVar(&cfg.StatsFile, "stats-file", "", "Append one JSON line of render stats per frame to this file")
	flags.BoolVar(&cfg.RepeatPrefix, "repeat-prefix", false, "Repeat continuation markers on wrapped rows")
	flags.IntVar(&cfg.MaxRows, "max-rows", 0, "Maximum rows kept per screen (0 for the default)")
	flags.IntVar(&cfg.MaxMenuRows, "max-menu-rows", 0, "Maximum completion menu rows (0 for half the terminal)")
	rootCmd.Flags().StringVarP(&cfg.Prompt, "prompt", "p", "", "Prompt to draw (defaults to the working directory)")

	rootCmd.AddCommand(stressCmd(&cfg))
	rootCmd.AddCommand(statsCmd())

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

// setupLogging builds the logger. The terminal is in raw mode while the
// editor runs, so logs only ever go to a file.
func setupLogging(cfg Config) (*slog.Logger, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}

	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.StampMilli,
		NoColor:    true,
	}))
	slog.SetDefault(logger)
	return logger, nil
}
