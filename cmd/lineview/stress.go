package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/vito/lineview/pkg/editor"
	"github.com/vito/lineview/pkg/ioctx"
	"github.com/vito/lineview/pkg/lineview"
)

var (
	labelStyle = lipgloss.NewStyle().Faint(true).Width(14)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// headlessTerminal is a Terminal with a fixed size that discards output.
type headlessTerminal struct {
	io.Writer
	cols, rows int
}

func (t *headlessTerminal) Size() (int, int, error) { return t.cols, t.rows, nil }

type stressConfig struct {
	Frames int
	Width  int
	Height int
	Seed   uint64
}

func stressCmd(cfg *Config) *cobra.Command {
	var sc stressConfig
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Replay a scripted editing session without a terminal and report render stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := runStress(cmd.Context(), *cfg, sc)
			if err != nil {
				return err
			}
			printSummary(ioctx.StdoutFromContext(cmd.Context()), sum)
			return nil
		},
	}
	cmd.Flags().IntVar(&sc.Frames, "frames", 2000, "number of input events to replay")
	cmd.Flags().IntVar(&sc.Width, "width", 80, "terminal width")
	cmd.Flags().IntVar(&sc.Height, "height", 24, "terminal height")
	cmd.Flags().Uint64Var(&sc.Seed, "seed", 1, "random seed for the script")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE",
		Short: "Summarize a render stats file written with --stats-file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close() //nolint:errcheck // read-only
			sum, err := lineview.ReadStats(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			printSummary(ioctx.StdoutFromContext(cmd.Context()), sum)
			return nil
		},
	}
}

var stressWords = []string{"echo", "ls", "for", "i", "in", "1", "2", "do", "done", "日本", "\"quoted", "|", "grep", "x\ty"}

func runStress(ctx context.Context, cfg Config, sc stressConfig) (lineview.StatsSummary, error) {
	var sum lineview.StatsSummary
	logger := ioctx.LoggerFromContext(ctx)

	stats, err := openStats(cfg)
	if err != nil {
		return sum, err
	}
	var statsWriter io.Writer
	if stats != nil {
		defer stats.Close() //nolint:errcheck // best-effort close of stats log
		statsWriter = stats
	}

	term := &headlessTerminal{Writer: io.Discard, cols: sc.Width, rows: sc.Height}
	comp := lineview.NewCompositor(term, compositorOptions(ctx, cfg, statsWriter))
	ed := editor.New("stress $ ")
	ed.Layout = comp.Current
	ed.Complete = func(word string) []string {
		var out []string
		for _, w := range stressWords {
			if strings.HasPrefix(w, word) {
				out = append(out, w)
			}
		}
		return out
	}

	rng := rand.New(rand.NewPCG(sc.Seed, sc.Seed^0x9e3779b97f4a7c15))
	for i := range sc.Frames {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		var reason lineview.Reason
		var outcome editor.Outcome
		switch n := rng.IntN(100); {
		case n < 55:
			word := stressWords[rng.IntN(len(stressWords))]
			reason, outcome = ed.HandleEvent(uv.PasteEvent{Content: word + " "})
		case n < 65:
			reason, outcome = ed.HandleEvent(uv.KeyPressEvent{Code: uv.KeyBackspace})
		case n < 72:
			reason, outcome = ed.HandleEvent(uv.KeyPressEvent{Code: uv.KeyLeft})
		case n < 76:
			reason, outcome = ed.HandleEvent(uv.KeyPressEvent{Code: uv.KeyUp})
		case n < 80:
			reason, outcome = ed.HandleEvent(uv.KeyPressEvent{Code: uv.KeyTab})
		case n < 86:
			reason, outcome = ed.HandleEvent(uv.KeyPressEvent{Code: uv.KeyEnter, Mod: uv.ModAlt})
		case n < 92:
			reason, outcome = ed.HandleEvent(uv.KeyPressEvent{Code: uv.KeyEnter})
		case n < 96:
			ed.Notify(fmt.Sprintf("event %d", i))
			reason = lineview.ReasonOverlay
		default:
			term.cols = max(20, sc.Width+rng.IntN(41)-20)
			reason = lineview.ReasonResize
		}

		if outcome == editor.Submitted {
			if err := comp.Finish(); err != nil {
				return sum, err
			}
			ed.Submit()
			reason |= lineview.ReasonText
		}
		if reason == 0 {
			continue
		}

		comp.Request(reason)
		res, err := comp.Redraw(ed)
		if err != nil {
			return sum, err
		}
		sum.Add(res.Stats)
	}
	logger.Debug("stress done", "frames", sum.Frames, "full", sum.FullRedraws)
	return sum, comp.Close()
}

func printSummary(w io.Writer, sum lineview.StatsSummary) {
	row := func(label string, value any) {
		_, _ = fmt.Fprintln(w, labelStyle.Render(label)+valueStyle.Render(fmt.Sprint(value)))
	}
	row("frames", sum.Frames)
	row("full redraws", sum.FullRedraws)
	row("ops", sum.Ops)
	row("rows repainted", sum.RowsRepainted)
	row("bytes", sum.BytesWritten)
	if sum.Frames > 0 {
		row("bytes/frame", sum.BytesWritten/sum.Frames)
	}
	row("avg frame", sum.AvgTime())
	row("max frame", sum.MaxTime)
}
