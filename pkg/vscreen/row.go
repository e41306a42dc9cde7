package vscreen

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
)

// RowKind tags what a row displays. Every layer of the editor display is a
// row with a kind and an optional prefix.
type RowKind int

const (
	// RowPrompt rows hold nothing but the primary prompt.
	RowPrompt RowKind = iota
	// RowCommand rows hold editable command text; they are the only rows
	// the cursor may address.
	RowCommand
	// RowOverlayMenu rows hold completion menu items.
	RowOverlayMenu
	// RowNotification holds the transient notification line.
	RowNotification
)

func (k RowKind) String() string {
	switch k {
	case RowPrompt:
		return "prompt"
	case RowCommand:
		return "command"
	case RowOverlayMenu:
		return "menu"
	case RowNotification:
		return "notification"
	}
	return "unknown"
}

// Row is one terminal line of a Screen.
type Row struct {
	cells  []Cell
	length int

	kind RowKind
	line int

	// start and end delimit the command bytes shown on this row.
	start, end int

	// contentCol is the first column that is not prompt or prefix.
	contentCol int

	prefix       *Prefix
	prefixDirty  bool
	contentDirty bool

	width      int
	widthValid bool
}

func newRow(capacity int, kind RowKind, line, start int) *Row {
	r := &Row{
		cells: make([]Cell, capacity),
		kind:  kind,
		line:  line,
		start: start,
		end:   start,
	}
	r.reset(kind, line, start)
	return r
}

func (r *Row) reset(kind RowKind, line, start int) {
	for i := range r.cells {
		r.cells[i] = blankCell
	}
	r.length = 0
	r.kind = kind
	r.line = line
	r.start = start
	r.end = start
	r.contentCol = 0
	r.prefix = nil
	r.prefixDirty = false
	r.markContentDirty()
}

// Kind returns what the row displays.
func (r *Row) Kind() RowKind { return r.kind }

// Line returns the logical command line the row belongs to, or -1.
func (r *Row) Line() int { return r.line }

// Range returns the command byte range shown on the row.
func (r *Row) Range() (start, end int) { return r.start, r.end }

// ContentCol returns the first column after the prompt or prefix.
func (r *Row) ContentCol() int { return r.contentCol }

// Len returns the number of columns in use, prompt and prefix included.
func (r *Row) Len() int { return r.length }

// Prefix returns the row's prefix, or nil.
func (r *Row) Prefix() *Prefix { return r.prefix }

// PrefixDirty reports whether the prefix must be redrawn.
func (r *Row) PrefixDirty() bool { return r.prefixDirty }

// ContentDirty reports whether the content must be redrawn.
func (r *Row) ContentDirty() bool { return r.contentDirty }

// Cells returns the columns in use. The slice must not be modified.
func (r *Row) Cells() []Cell { return r.cells[:r.length] }

// Cell returns the cell at col. Columns past the content are blank.
func (r *Row) Cell(col int) (Cell, error) {
	if col < 0 || col >= len(r.cells) {
		return Cell{}, errors.Wrapf(ErrColumnOutOfRange, "column %d of %d", col, len(r.cells))
	}
	return r.cellAt(col), nil
}

// VisualWidth returns the number of columns the row occupies, prefix
// included. It is cached until the row is dirtied.
func (r *Row) VisualWidth() int {
	if !r.widthValid {
		w := r.prefix.Width()
		for col := r.contentCol; col < r.length; col++ {
			if c := r.cells[col]; c.Text != "" || c.Continuation {
				w = max(w, col+1)
			}
		}
		if r.kind == RowCommand && r.contentCol > w {
			// Row 0 starts after the prompt.
			w = r.contentCol
		}
		r.width = max(w, r.length)
		r.widthValid = true
	}
	return r.width
}

// Text returns the row as plain text, prefix included and escapes removed.
func (r *Row) Text() string {
	var b strings.Builder
	col := 0
	if r.prefix != nil {
		b.WriteString(ansi.Strip(r.prefix.Text()))
		col = r.prefix.Width()
	}
	for ; col < r.length; col++ {
		c := r.cells[col]
		if c.Continuation {
			continue
		}
		b.WriteString(c.glyph())
	}
	return b.String()
}

func (r *Row) cellAt(col int) Cell {
	if col < r.length {
		return r.cells[col]
	}
	return blankCell
}

// lastStop returns the offset of the last glyph on the row, or the row's
// start when it has none.
func (r *Row) lastStop() int {
	for col := r.length - 1; col >= r.contentCol; col-- {
		if c := r.cells[col]; !c.Continuation && c.Offset >= 0 {
			return c.Offset
		}
	}
	return r.start
}

func (r *Row) setPrefix(p *Prefix) {
	r.prefix = p
	r.contentCol = p.Width()
	for col := 0; col < r.contentCol; col++ {
		r.cells[col] = Cell{Offset: -1, ReadOnly: true}
	}
	r.length = max(r.length, r.contentCol)
	r.prefixDirty = p != nil
	r.widthValid = false
}

func (r *Row) put(col int, c Cell) {
	if col < 0 || col >= len(r.cells) {
		return
	}
	r.cells[col] = c
	r.length = max(r.length, col+1)
	r.widthValid = false
}

func (r *Row) markContentDirty() {
	r.contentDirty = true
	r.widthValid = false
}

// render draws cells [from, to) and closes any style it opened.
func (r *Row) render(from, to int) string {
	var b strings.Builder
	styled := false
	first := true
	for col := from; col < to; col++ {
		c := r.cellAt(col)
		if c.Continuation {
			continue
		}
		if first {
			// Replaying the pen covers the lead as well.
			b.WriteString(c.Pen)
			styled = c.Pen != ""
			first = false
		} else if c.Lead != "" {
			b.WriteString(c.Lead)
			styled = true
		}
		b.WriteString(c.glyph())
	}
	if styled {
		b.WriteString(ansi.ResetStyle)
	}
	return b.String()
}

// renderPrefix draws the prefix and closes any style it opened.
func (r *Row) renderPrefix() string {
	text := r.prefix.Text()
	if strings.IndexByte(text, ansi.ESC) >= 0 {
		return text + ansi.ResetStyle
	}
	return text
}
