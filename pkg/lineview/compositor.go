// Package lineview draws a line editor's display on a terminal. The
// Compositor collects a Frame from the editor, lays it out on a
// vscreen.Screen, diffs it against what the terminal shows and hands the
// ops to a Writer, which emits the escape sequences.
//
// Nothing in this package starts goroutines; redraws happen on the
// caller's goroutine when it calls Redraw.
package lineview

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/pkg/errors"
	"github.com/vito/lineview/pkg/vscreen"
)

var (
	// ErrNoSource is returned when Redraw is called without a Source.
	ErrNoSource = errors.New("no frame source")
	// ErrClosed is returned when Redraw is called after Close.
	ErrClosed = errors.New("compositor closed")
)

// maxRecomputes bounds how often a frame is rebuilt because requests keep
// arriving while it is being built.
const maxRecomputes = 3

// Continuation is the parser state a command line continues in.
type Continuation int

const (
	ContinuationNone Continuation = iota
	ContinuationLoop
	ContinuationQuote
	ContinuationGeneric
)

func (c Continuation) String() string {
	switch c {
	case ContinuationNone:
		return "none"
	case ContinuationLoop:
		return "loop"
	case ContinuationQuote:
		return "quote"
	case ContinuationGeneric:
		return "generic"
	}
	return fmt.Sprintf("Continuation(%d)", int(c))
}

var (
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	moreStyle     = lipgloss.NewStyle().Faint(true)
)

// DefaultMarkers are the continuation prefixes used unless Options.Markers
// overrides them.
func DefaultMarkers() map[Continuation]string {
	return map[Continuation]string{
		ContinuationLoop:    markerStyle.Render("loop> "),
		ContinuationQuote:   markerStyle.Render("quote> "),
		ContinuationGeneric: markerStyle.Render("> "),
	}
}

// MenuItem is one completion candidate.
type MenuItem struct {
	Text     string
	Selected bool
}

// Frame is the editor state a redraw draws.
type Frame struct {
	// Prompt is read at the start of a session only; later frames cannot
	// change it.
	Prompt string

	Text   string
	Cursor int

	// Continuations[i] is the state logical line i continues in. Line 0
	// never has a marker.
	Continuations []Continuation

	// Prefixes[i], when not empty, is drawn before line i instead of its
	// continuation marker.
	Prefixes []string

	Menu         []MenuItem
	Notification string
}

// Source supplies frames. It is the editor's side of the contract.
type Source interface {
	Frame() Frame
}

// SourceFunc adapts a function to a Source.
type SourceFunc func() Frame

func (f SourceFunc) Frame() Frame { return f() }

// Options configures a Compositor.
type Options struct {
	// RepeatPrefixOnWrap draws a line's prefix on every row it wraps onto.
	RepeatPrefixOnWrap bool

	// MaxRows limits how many rows a screen stores. Zero means
	// vscreen.DefaultMaxRows.
	MaxRows int

	// MaxMenuRows limits how many menu rows are shown. Zero means half the
	// terminal height.
	MaxMenuRows int

	// Markers overrides the continuation prefixes.
	Markers map[Continuation]string

	// Logger receives debug output. Nil means slog.Default().
	Logger *slog.Logger

	// DebugWriter, if set, receives one JSON line of RenderStats per
	// redraw.
	DebugWriter io.Writer
}

// Result is what a redraw reports back to the editor.
type Result struct {
	Cursor    vscreen.Cursor
	RowsBelow int
	Stats     RenderStats
}

// Compositor owns the screen the terminal shows and redraws it on request.
type Compositor struct {
	term   Terminal
	writer *Writer
	opts   Options
	log    *slog.Logger

	markers map[Continuation]string

	// current is what the terminal shows; nil means nothing is known.
	current *vscreen.Screen

	state      State
	pending    Reason
	requests   int
	generation uint64

	prompt    string
	promptSet bool

	// prefixes caches one prefix per logical line so unchanged prefixes
	// keep their identity from frame to frame.
	prefixes []*vscreen.Prefix

	width, height int
	closed        bool
}

// NewCompositor returns a Compositor drawing on term.
func NewCompositor(term Terminal, opts Options) *Compositor {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	markers := DefaultMarkers()
	for k, v := range opts.Markers {
		markers[k] = v
	}
	return &Compositor{
		term:    term,
		writer:  NewWriter(term),
		opts:    opts,
		log:     log,
		markers: markers,
	}
}

// Request schedules a redraw. Requests accumulate until the next Redraw.
func (c *Compositor) Request(r Reason) {
	c.pending |= r
	c.requests++
	c.generation++
}

// Pending returns the reasons accumulated since the last redraw.
func (c *Compositor) Pending() Reason { return c.pending }

// State returns where the Compositor is in a redraw.
func (c *Compositor) State() State { return c.state }

// Current returns the screen the terminal shows. It must not be modified.
func (c *Compositor) Current() *vscreen.Screen { return c.current }

// Reset starts a new session: the next redraw reads the prompt from its
// frame and writes it.
func (c *Compositor) Reset() {
	c.current = nil
	c.promptSet = false
	c.prefixes = nil
	c.writer.Reset()
}

// Redraw brings the terminal up to date with src.
func (c *Compositor) Redraw(src Source) (Result, error) {
	if src == nil {
		return Result{}, ErrNoSource
	}
	if c.closed {
		return Result{}, ErrClosed
	}

	start := time.Now()
	stats := RenderStats{Requests: c.requests}
	defer func() { c.state = StateIdle }()

	var desired *vscreen.Screen
	for {
		reasons := c.pending
		c.pending = 0
		c.requests = 0
		stats.Reasons |= reasons
		if err := c.prepare(reasons); err != nil {
			return Result{}, err
		}

		gen := c.generation
		c.state = StateCollecting
		frame := src.Frame()

		c.state = StateComputing
		screen, err := c.compose(frame)
		if err != nil {
			return Result{}, err
		}
		desired = screen

		if c.generation == gen || stats.Recomputes >= maxRecomputes {
			break
		}
		stats.Recomputes++
		stats.Requests += c.requests
		c.log.Debug("recomputing frame", "reasons", c.pending, "attempt", stats.Recomputes)
	}
	stats.ComposeTime = time.Since(start)

	c.state = StateDiffing
	diffStart := time.Now()
	full := c.writer.NeedsFull()
	old := c.current
	if full {
		old = nil
	}
	ops := vscreen.Diff(old, desired)
	stats.DiffTime = time.Since(diffStart)

	c.state = StateWriting
	writeStart := time.Now()
	n, err := c.writer.Apply(Update{Screen: desired, Ops: ops, Full: full})
	stats.WriteTime = time.Since(writeStart)
	stats.BytesWritten = n
	if err != nil {
		c.log.Warn("frame write failed", "err", err, "bytes", n)
		return Result{}, err
	}
	c.current = desired

	stats.FullRedraw = full
	stats.Ops = len(ops)
	stats.RowsRepainted = ops.Rows()
	stats.TotalRows = desired.VirtualLen()
	stats.TotalTime = time.Since(start)
	if full {
		c.log.Debug("full redraw", "reasons", stats.Reasons, "rows", stats.TotalRows, "bytes", n)
	}
	if c.opts.DebugWriter != nil {
		if err := stats.writeJSON(c.opts.DebugWriter); err != nil {
			c.log.Warn("write render stats", "err", err)
		}
	}

	return Result{
		Cursor:    desired.Cursor(),
		RowsBelow: desired.RowsBelowCursor(),
		Stats:     stats,
	}, nil
}

// Finish ends the session: the cursor moves below the drawn region and the
// next redraw starts a new session with a fresh prompt.
func (c *Compositor) Finish() error {
	rows := 0
	if c.current != nil {
		rows = c.current.VirtualLen()
	}
	err := c.writer.Finish(rows)
	c.Reset()
	return err
}

// Close finishes the session for good. Redraw fails afterwards.
func (c *Compositor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.Finish()
}

func (c *Compositor) prepare(reasons Reason) error {
	if c.width == 0 || reasons.Has(ReasonResize) {
		cols, rows, err := c.term.Size()
		if err != nil {
			return errors.Wrap(err, "read terminal size")
		}
		if reasons.Has(ReasonResize) {
			c.log.Debug("resize", "cols", cols, "rows", rows)
		}
		c.width, c.height = cols, rows
	}
	if reasons.Has(ReasonResize) || reasons.Has(ReasonForce) {
		c.current = nil
		c.writer.Invalidate()
	}
	return nil
}

func (c *Compositor) compose(frame Frame) (*vscreen.Screen, error) {
	opts := []vscreen.Option{vscreen.WithRepeatPrefixOnWrap(c.opts.RepeatPrefixOnWrap)}
	if c.opts.MaxRows > 0 {
		opts = append(opts, vscreen.WithMaxRows(c.opts.MaxRows))
	}
	s, err := vscreen.New(c.width, c.height, opts...)
	if err != nil {
		return nil, err
	}

	if !c.promptSet {
		c.prompt = frame.Prompt
		c.promptSet = true
	}

	doc := vscreen.Document{
		Prompt:   c.prompt,
		Text:     frame.Text,
		Cursor:   frame.Cursor,
		Prefixes: c.linePrefixes(frame),
		Overlays: c.menuOverlays(frame.Menu),
	}
	if frame.Notification != "" {
		doc.Overlays = append(doc.Overlays, vscreen.Overlay{
			Kind: vscreen.OverlayNotification,
			Text: frame.Notification,
		})
	}
	if err := s.RenderDocument(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// linePrefixes resolves the prefix of each logical line, reusing cached
// prefixes whose text did not change.
func (c *Compositor) linePrefixes(frame Frame) []*vscreen.Prefix {
	lines := strings.Count(frame.Text, "\n") + 1
	prefixes := make([]*vscreen.Prefix, lines)
	for i := 1; i < lines; i++ {
		var text string
		if i < len(frame.Prefixes) && frame.Prefixes[i] != "" {
			text = frame.Prefixes[i]
		} else if i < len(frame.Continuations) {
			text = c.markers[frame.Continuations[i]]
		}
		if text == "" {
			continue
		}
		if i < len(c.prefixes) && c.prefixes[i].Text() == text {
			prefixes[i] = c.prefixes[i]
		} else {
			prefixes[i] = vscreen.NewPrefix(text)
		}
	}
	c.prefixes = prefixes
	return prefixes
}

// menuOverlays lays the menu out as overlay rows, scrolled so the selected
// item is visible.
func (c *Compositor) menuOverlays(items []MenuItem) []vscreen.Overlay {
	if len(items) == 0 {
		return nil
	}
	limit := c.opts.MaxMenuRows
	if limit <= 0 {
		limit = max(1, c.height/2)
	}

	start, end := 0, len(items)
	if len(items) > limit {
		// One row goes to the "more" line.
		shown := max(1, limit-1)
		selected := 0
		for i, item := range items {
			if item.Selected {
				selected = i
				break
			}
		}
		start = max(0, min(selected-shown/2, len(items)-shown))
		end = start + shown
	}

	overlays := make([]vscreen.Overlay, 0, end-start+1)
	for _, item := range items[start:end] {
		o := vscreen.Overlay{Kind: vscreen.OverlayMenu, Prefix: menuPlain, Text: item.Text}
		if item.Selected {
			o.Prefix = menuSelected
			o.Text = selectedStyle.Render(item.Text)
		}
		overlays = append(overlays, o)
	}
	if hidden := len(items) - (end - start); hidden > 0 {
		overlays = append(overlays, vscreen.Overlay{
			Kind:   vscreen.OverlayMenu,
			Prefix: menuPlain,
			Text:   moreStyle.Render(fmt.Sprintf("rows %d to %d of %d", start+1, end, len(items))),
		})
	}
	return overlays
}

var (
	menuPlain    = vscreen.NewPrefix("  ")
	menuSelected = vscreen.NewPrefix("> ")
)
