package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/muesli/cancelreader"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vito/lineview/pkg/editor"
	"github.com/vito/lineview/pkg/ioctx"
	"github.com/vito/lineview/pkg/lineview"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	echoStyle   = lipgloss.NewStyle().Faint(true)
)

func compositorOptions(ctx context.Context, cfg Config, stats io.Writer) lineview.Options {
	return lineview.Options{
		RepeatPrefixOnWrap: cfg.RepeatPrefix,
		MaxRows:            cfg.MaxRows,
		MaxMenuRows:        cfg.MaxMenuRows,
		Logger:             ioctx.LoggerFromContext(ctx),
		DebugWriter:        stats,
	}
}

func openStats(cfg Config) (io.WriteCloser, error) {
	if cfg.StatsFile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.StatsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open stats file: %w", err)
	}
	return f, nil
}

func defaultPrompt() string {
	dir, err := os.Getwd()
	if err != nil {
		return "$ "
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(dir, home) {
		dir = "~" + strings.TrimPrefix(dir, home)
	}
	return promptStyle.Render(filepath.Base(dir)) + " $ "
}

func runREPL(ctx context.Context, cfg Config) error {
	logger := ioctx.LoggerFromContext(ctx)

	stats, err := openStats(cfg)
	if err != nil {
		return err
	}
	var statsWriter io.Writer
	if stats != nil {
		defer stats.Close() //nolint:errcheck // best-effort close of stats log
		statsWriter = stats
	}

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultPrompt()
	}

	term := lineview.NewProcessTerminal()
	if err := term.Start(); err != nil {
		return fmt.Errorf("terminal start: %w", err)
	}
	defer term.Stop()

	comp := lineview.NewCompositor(term, compositorOptions(ctx, cfg, statsWriter))
	defer comp.Close() //nolint:errcheck // the terminal may already be gone

	ed := editor.New(prompt)
	ed.Complete = completeFiles
	ed.Layout = comp.Current

	in, err := cancelreader.NewReader(os.Stdin)
	if err != nil {
		return fmt.Errorf("input reader: %w", err)
	}
	defer in.Close() //nolint:errcheck // best-effort close of stdin reader

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	input := make(chan []byte)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return readInput(ctx, in, input)
	})

	redraw := func(r lineview.Reason) error {
		comp.Request(r)
		res, err := comp.Redraw(ed)
		if err != nil {
			return err
		}
		logger.Debug("frame",
			"reasons", res.Stats.Reasons,
			"ops", res.Stats.Ops,
			"bytes", res.Stats.BytesWritten,
			"cursor", res.Cursor)
		return nil
	}

	loop := func() error {
		if err := redraw(lineview.ReasonText); err != nil {
			return err
		}

		var decoder uv.EventDecoder
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-term.Resized():
				if err := redraw(lineview.ReasonResize); err != nil {
					return err
				}
			case data, ok := <-input:
				if !ok {
					return nil
				}
				var reasons lineview.Reason
				for buf := data; len(buf) > 0; {
					n, ev := decoder.Decode(buf)
					if n == 0 {
						break
					}
					buf = buf[n:]
					if ev == nil {
						continue
					}
					r, outcome := ed.HandleEvent(ev)
					reasons |= r
					switch outcome {
					case editor.Submitted:
						if err := submit(comp, ed, term); err != nil {
							return err
						}
						reasons |= lineview.ReasonText
					case editor.Interrupted, editor.EOF:
						return nil
					}
				}
				if reasons != 0 {
					if err := redraw(reasons); err != nil {
						return err
					}
				}
			}
		}
	}

	eg.Go(func() error {
		defer in.Cancel()
		defer cancel()
		return loop()
	})
	err = eg.Wait()
	if errors.Is(err, lineview.ErrTerminalClosed) {
		logger.Warn("terminal closed", "err", err)
	}
	return err
}

// submit ends the current session: the command is drawn one last time
// without overlays, the cursor moves below it and the command is echoed.
func submit(comp *lineview.Compositor, ed *editor.Editor, out io.Writer) error {
	lines := strings.Count(ed.Text(), "\n") + 1
	ed.SetCursor(len(ed.Text()))
	comp.Request(lineview.ReasonOverlay)
	if _, err := comp.Redraw(lineview.SourceFunc(func() lineview.Frame {
		f := ed.Frame()
		f.Menu, f.Notification = nil, ""
		return f
	})); err != nil {
		return err
	}
	if err := comp.Finish(); err != nil {
		return err
	}

	cmd := ed.Submit()
	if strings.TrimSpace(cmd) != "" {
		echo := strings.ReplaceAll(cmd, "\n", "\r\n")
		if _, err := fmt.Fprint(out, echoStyle.Render(echo)+"\r\n"); err != nil {
			return err
		}
	}
	ed.Notify(fmt.Sprintf("submitted %d line(s)", lines))
	return nil
}

func readInput(ctx context.Context, r io.Reader, out chan<- []byte) error {
	defer close(out)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case out <- data:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, cancelreader.ErrCanceled) {
				return nil
			}
			return errors.Wrap(err, "read input")
		}
	}
}

// completeFiles completes word against the entries of its directory.
func completeFiles(word string) []string {
	dir, base := filepath.Split(word)
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		out = append(out, dir+name)
	}
	return out
}
