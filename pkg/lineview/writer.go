package lineview

import (
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
	"github.com/vito/lineview/pkg/vscreen"
)

// ErrTerminalClosed is returned when the terminal stops accepting output.
// The underlying cause is wrapped alongside it.
var ErrTerminalClosed = errors.New("terminal closed")

// maxWriteRetries bounds how often a short or interrupted write is retried
// before the terminal is considered gone.
const maxWriteRetries = 8

// Update is one frame for the Writer: the screen it should end up showing
// and the ops that get it there from what is shown now.
type Update struct {
	Screen *vscreen.Screen
	Ops    vscreen.Ops

	// Full clears the command region before the ops are applied.
	Full bool
}

// Writer turns ops into escape sequences. It tracks where the hardware
// cursor is relative to the first row of the prompt and only ever moves it
// relatively, so output stays in the normal scrollback buffer.
type Writer struct {
	out io.Writer
	buf strings.Builder

	promptWritten bool
	full          bool

	// row and col are the hardware cursor position. col is -1 when unknown.
	row, col int

	// materialized is how many rows the terminal has scrolled into being
	// below the origin, counting the origin row.
	materialized int
	height       int
}

// NewWriter returns a Writer that writes to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out, full: true, col: -1}
}

// Reset starts a new session: the next frame writes the prompt again.
func (w *Writer) Reset() {
	w.promptWritten = false
	w.full = true
	w.row = 0
	w.col = -1
	w.materialized = 0
}

// Invalidate makes the next frame a full redraw.
func (w *Writer) Invalidate() {
	w.full = true
}

// NeedsFull reports whether the next frame will be a full redraw.
func (w *Writer) NeedsFull() bool {
	return w.full || !w.promptWritten
}

// Position returns the hardware cursor position as the Writer believes it
// to be.
func (w *Writer) Position() (row, col int) {
	return w.row, w.col
}

// Apply writes one frame and returns the number of bytes sent. On error the
// next frame is a full redraw.
func (w *Writer) Apply(u Update) (int, error) {
	s := u.Screen
	w.height = s.Height()
	w.buf.Reset()
	w.buf.WriteString(ansi.SetModeSynchronizedOutput)

	full := u.Full || w.full
	if !w.promptWritten {
		w.buf.WriteString("\r")
		w.buf.WriteString(s.Prompt())
		w.row, w.col = s.CommandStart()
		w.materialized = w.row + 1
		w.promptWritten = true
		full = true
	}

	if full {
		w.moveTo(s.CommandStart())
		w.buf.WriteString(ansi.EraseScreenBelow)
	}

	for _, op := range u.Ops {
		w.apply(op, s.Width())
	}

	cur := s.Cursor()
	w.moveTo(cur.Row, cur.Col)
	w.buf.WriteString(ansi.ResetModeSynchronizedOutput)

	n, err := w.flush(w.buf.String())
	if err != nil {
		w.full = true
		w.col = -1
		return n, err
	}
	w.full = false
	return n, nil
}

// Finish moves the cursor to a fresh line below rows rows of output, so
// whatever runs next starts below the drawn region.
func (w *Writer) Finish(rows int) error {
	w.buf.Reset()
	if w.promptWritten {
		w.moveTo(max(0, rows-1), 0)
		w.buf.WriteString("\r\n")
	}
	_, err := w.flush(w.buf.String())
	w.Reset()
	return err
}

func (w *Writer) apply(op vscreen.Op, width int) {
	switch op := op.(type) {
	case vscreen.OpWrite:
		if !w.visible(op.Row) {
			return
		}
		w.moveTo(op.Row, op.Col)
		w.buf.WriteString(op.Text)
		w.col += op.Width
		if w.col >= width {
			// Pending wrap; the next move resolves it with CHA.
			w.col = -1
		}
	case vscreen.OpClearLine:
		if !w.visible(op.Row) {
			return
		}
		w.moveTo(op.Row, op.Col)
		w.buf.WriteString(ansi.EraseLineRight)
	case vscreen.OpClearBelow:
		if op.Row >= w.materialized {
			return
		}
		row := max(op.Row, w.top())
		w.moveTo(row, 0)
		w.buf.WriteString(ansi.EraseScreenBelow)
	}
}

// top returns the first row still on screen. Rows above it have scrolled
// into history and cannot be reached with relative moves.
func (w *Writer) top() int {
	if w.height <= 0 {
		return 0
	}
	return max(0, w.materialized-w.height)
}

func (w *Writer) visible(row int) bool {
	return row >= w.top()
}

// moveTo moves the hardware cursor to (row, col). Rows past the last one
// the terminal has shown are reached with line feeds so the terminal
// scrolls.
func (w *Writer) moveTo(row, col int) {
	row = max(row, w.top())
	switch {
	case row < w.row:
		w.buf.WriteString(ansi.CursorUp(w.row - row))
	case row > w.row:
		last := max(w.materialized-1, w.row)
		if down := min(row, last) - w.row; down > 0 {
			w.buf.WriteString(ansi.CursorDown(down))
		}
		if feeds := row - last; feeds > 0 {
			w.buf.WriteString(strings.Repeat("\n", feeds))
			w.materialized = row + 1
			w.col = -1
		}
	}
	w.row = row
	if col != w.col {
		w.buf.WriteString(ansi.CursorHorizontalAbsolute(col + 1))
		w.col = col
	}
}

// flush writes p, retrying short and interrupted writes.
func (w *Writer) flush(p string) (int, error) {
	written := 0
	retries := 0
	for written < len(p) {
		n, err := io.WriteString(w.out, p[written:])
		written += n
		switch {
		case err == nil && n > 0:
			continue
		case err == nil, errors.Is(err, syscall.EINTR), errors.Is(err, syscall.EAGAIN), errors.Is(err, io.ErrShortWrite):
			retries++
			if retries > maxWriteRetries {
				return written, closed(errors.Errorf("gave up after %d retries: %v", maxWriteRetries, err))
			}
		default:
			return written, closed(err)
		}
	}
	return written, nil
}

func closed(cause error) error {
	return errors.WithStack(fmt.Errorf("%w: %w", ErrTerminalClosed, cause))
}
