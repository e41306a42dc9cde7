// Package vscreen models what the terminal should show for a line editor:
// a prompt, the command text wrapped to the terminal width with optional
// per-line prefixes, and overlay rows such as a completion menu. A Screen
// also maps between command byte offsets and (row, column) positions, and
// Diff turns two Screens into the terminal operations that repaint only
// what changed.
package vscreen

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/vito/lineview/pkg/textmetrics"
)

// MaxColumns caps the row capacity. Wider terminals are treated as this
// wide.
const MaxColumns = 1024

// DefaultMaxRows is the number of rows a Screen stores unless WithMaxRows
// says otherwise.
const DefaultMaxRows = 1000

// Cursor is a position both on the display and in the command text.
type Cursor struct {
	// Row and Col are the display position, relative to the first row of
	// the prompt.
	Row, Col int

	// Line is the logical command line and LineOffset the byte offset
	// within it.
	Line, LineOffset int

	// Offset is the absolute byte offset in the command text.
	Offset int
}

func (c Cursor) String() string {
	return fmt.Sprintf("row=%d col=%d line=%d offset=%d", c.Row, c.Col, c.Line, c.Offset)
}

// Option configures a Screen.
type Option func(*Screen)

// WithMaxRows limits how many rows are stored. Rows past the limit are
// still counted so cursor positions stay right.
func WithMaxRows(n int) Option {
	return func(s *Screen) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

// WithRepeatPrefixOnWrap draws a line's prefix again on each row the line
// wraps onto. By default wrapped rows start at column 0.
func WithRepeatPrefixOnWrap(repeat bool) Option {
	return func(s *Screen) {
		s.repeatPrefix = repeat
	}
}

// Screen is a desired (or committed) terminal display.
type Screen struct {
	width, height int
	maxRows       int
	repeatPrefix  bool

	rows        []*Row
	virtualRows int
	scratch     *Row

	text string

	// promptRow and promptCol are where the command text starts.
	promptRow, promptCol int

	cursor Cursor
}

// New returns an empty screen for a terminal of the given size.
func New(width, height int, opts ...Option) (*Screen, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "%dx%d", width, height)
	}
	s := &Screen{
		width:   min(width, MaxColumns),
		height:  height,
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Screen) Width() int  { return s.width }
func (s *Screen) Height() int { return s.height }

// Text returns the command text last rendered.
func (s *Screen) Text() string { return s.text }

// Cursor returns the cursor position of the last render.
func (s *Screen) Cursor() Cursor { return s.cursor }

// Len returns the number of stored rows.
func (s *Screen) Len() int { return len(s.rows) }

// VirtualLen returns the number of rows the last render produced, including
// rows that were not stored.
func (s *Screen) VirtualLen() int { return s.virtualRows }

// RowsBelowCursor returns how many rows are drawn below the cursor row.
func (s *Screen) RowsBelowCursor() int {
	return max(0, s.virtualRows-1-s.cursor.Row)
}

// Row returns row i.
func (s *Screen) Row(i int) (*Row, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, errors.Wrapf(ErrRowOutOfRange, "row %d of %d", i, len(s.rows))
	}
	return s.rows[i], nil
}

// CommandStart returns the position right after the prompt.
func (s *Screen) CommandStart() (row, col int) {
	return s.promptRow, s.promptCol
}

// Prompt returns the escape-laden text that draws the prompt from the start
// of its first row, rows separated by CRLF.
func (s *Screen) Prompt() string {
	var b strings.Builder
	for i := 0; i <= s.promptRow && i < len(s.rows); i++ {
		if i > 0 {
			b.WriteString("\r\n")
		}
		r := s.rows[i]
		end := r.length
		if i == s.promptRow {
			end = s.promptCol
		}
		b.WriteString(r.render(0, end))
	}
	return b.String()
}

// Dump returns a plain-text picture of the screen: one line per stored row
// with its kind, then the cursor.
func (s *Screen) Dump() string {
	var b strings.Builder
	for _, r := range s.rows {
		fmt.Fprintf(&b, "%-12s |%s|\n", r.kind, r.Text())
	}
	fmt.Fprintf(&b, "cursor %s\n", s.cursor)
	return b.String()
}

// DisplayPosition returns where the cursor is drawn when it sits at byte
// offset off of the command text. An offset inside a grapheme cluster or an
// escape sequence resolves to the next cursor stop.
func (s *Screen) DisplayPosition(off int) (row, col int, err error) {
	if off < 0 || off > len(s.text) {
		return 0, 0, errors.Wrapf(ErrCursorOutOfRange, "offset %d, text length %d", off, len(s.text))
	}
	line := strings.Count(s.text[:off], "\n")
	lineEnd := len(s.text)
	if i := strings.IndexByte(s.text[off:], '\n'); i >= 0 {
		lineEnd = off + i
	}

	last := -1
	for i, r := range s.rows {
		if r.kind != RowCommand || r.line != line {
			continue
		}
		last = i
		for c := r.contentCol; c < r.length; c++ {
			cell := r.cells[c]
			if cell.Continuation || cell.Offset < 0 {
				continue
			}
			if cell.Offset >= off && cell.Offset < lineEnd {
				return i, c, nil
			}
		}
	}
	if last < 0 {
		return 0, 0, errors.Wrapf(ErrRowOutOfRange, "line %d is not stored", line)
	}
	r := s.rows[last]
	if r.length >= s.width {
		// The empty row that ends a full line is past the stored rows.
		return last + 1, 0, nil
	}
	return last, max(r.length, r.contentCol), nil
}

// BufferOffset returns the command byte offset drawn at (row, col). A
// column inside a prefix resolves to the row's first offset, the trailing
// half of a wide glyph to the glyph and a column past the content to the
// end of the line, or to the row's last cursor stop when the line wraps
// onto the next row.
func (s *Screen) BufferOffset(row, col int) (int, error) {
	r, err := s.Row(row)
	if err != nil {
		return 0, err
	}
	if r.kind != RowCommand {
		return 0, errors.Wrapf(ErrNotEditable, "row %d is a %s row", row, r.kind)
	}
	if col < 0 || col >= s.width {
		return 0, errors.Wrapf(ErrColumnOutOfRange, "column %d of %d", col, s.width)
	}
	switch {
	case col < r.contentCol:
		return r.start, nil
	case col >= r.length:
		if s.wraps(r) {
			return r.lastStop(), nil
		}
		return r.end, nil
	}
	if c := r.cells[col]; c.Offset >= 0 {
		return c.Offset, nil
	}
	return r.end, nil
}

// wraps reports whether r's line continues on the row after it, in which
// case r.end is drawn there.
func (s *Screen) wraps(r *Row) bool {
	return r.end < len(s.text) && s.text[r.end] != '\n'
}

// Stop returns the cursor stop off resolves to: off itself when it is a
// stop, otherwise the next stop on its line.
func (s *Screen) Stop(off int) int {
	if off < 0 || off > len(s.text) {
		return max(0, min(off, len(s.text)))
	}
	return s.stop(off)
}

// stop returns the cursor stop an offset resolves to.
func (s *Screen) stop(off int) int {
	lineEnd := len(s.text)
	if i := strings.IndexByte(s.text[off:], '\n'); i >= 0 {
		lineEnd = off + i
	}
	lineStart := strings.LastIndexByte(s.text[:off], '\n') + 1
	line := s.text[lineStart:lineEnd]
	for pos, col := 0, 0; pos < len(line); {
		u := textmetrics.Next(line, pos, col)
		if u.Boundary && lineStart+u.Start >= off {
			return lineStart + u.Start
		}
		col += u.Width
		pos = u.End
	}
	return lineEnd
}
