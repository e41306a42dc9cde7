package vscreen

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/vito/lineview/pkg/textmetrics"
)

// OverlayKind says what an overlay row shows.
type OverlayKind int

const (
	OverlayMenu OverlayKind = iota
	OverlayNotification
)

func (k OverlayKind) rowKind() RowKind {
	if k == OverlayNotification {
		return RowNotification
	}
	return RowOverlayMenu
}

// Overlay is a read-only row drawn below the command text.
type Overlay struct {
	Kind   OverlayKind
	Prefix *Prefix
	Text   string
}

// Document is everything a Screen draws.
type Document struct {
	// Prompt is drawn once at the top. It may be styled and span rows.
	Prompt string

	// Text is the command text; newlines separate logical lines.
	Text string

	// Cursor is a byte offset into Text.
	Cursor int

	// Prefixes[i] is drawn at the start of logical line i. Line 0 follows
	// the prompt and never has one.
	Prefixes []*Prefix

	Overlays []Overlay
}

// RenderDocument lays doc out on the screen, replacing what was there.
func (s *Screen) RenderDocument(doc Document) error {
	if doc.Cursor < 0 || doc.Cursor > len(doc.Text) {
		return errors.Wrapf(ErrCursorOutOfRange, "cursor %d, text length %d", doc.Cursor, len(doc.Text))
	}
	notifications := 0
	for _, o := range doc.Overlays {
		if o.Kind == OverlayNotification {
			notifications++
		}
	}
	if notifications > 1 {
		return errors.Wrapf(ErrTooManyNotifications, "got %d", notifications)
	}

	s.rows = s.rows[:0]
	s.virtualRows = 0
	s.text = doc.Text
	s.cursor = Cursor{}

	b := &builder{s: s, cursor: doc.Cursor}
	b.prompt(doc.Prompt)
	b.command(doc.Text, doc.Prefixes)
	for _, o := range doc.Overlays {
		b.overlay(o)
	}
	return nil
}

// builder walks a document onto the rows of a screen.
type builder struct {
	s *Screen

	row   *Row
	index int
	col   int

	// pen is the SGR state in effect; lead collects the escapes that
	// precede the next glyph.
	pen  string
	lead string

	cursor    int
	cursorSet bool
}

func (b *builder) newRow(kind RowKind, line, start int) {
	s := b.s
	b.index = s.virtualRows
	s.virtualRows++
	if len(s.rows) < s.maxRows {
		b.row = newRow(s.width, kind, line, start)
		s.rows = append(s.rows, b.row)
	} else {
		// Past the limit rows are laid out but not kept.
		if s.scratch == nil {
			s.scratch = newRow(s.width, kind, line, start)
		} else {
			s.scratch.reset(kind, line, start)
		}
		b.row = s.scratch
	}
	b.col = 0
}

func (b *builder) prompt(prompt string) {
	width := b.s.width
	b.newRow(RowPrompt, -1, 0)
	for pos := 0; pos < len(prompt); {
		if prompt[pos] == '\n' {
			b.newRow(RowPrompt, -1, 0)
			pos++
			continue
		}
		u := textmetrics.Next(prompt, pos, b.col)
		pos = u.End
		switch u.Kind {
		case textmetrics.KindEscape:
			b.escape(u.Text)
		case textmetrics.KindCombining:
			b.combine(u.Text)
		default:
			if b.col+u.Width > width && b.col > 0 {
				b.newRow(RowPrompt, -1, 0)
				if u.Kind == textmetrics.KindTab {
					u = textmetrics.Next(prompt, u.Start, b.col)
				}
			}
			b.place(u, -1, true)
		}
	}
	if b.col >= width {
		// Keep the terminal out of its pending-wrap state.
		b.newRow(RowPrompt, -1, 0)
	}

	b.row.kind = RowCommand
	b.row.line = 0
	b.row.contentCol = b.col
	b.s.promptRow = b.index
	b.s.promptCol = b.col
	b.pen = ""
	b.lead = ""
}

func (b *builder) command(text string, prefixes []*Prefix) {
	width := b.s.width
	lineStart := 0
	for i := 0; ; i++ {
		lineEnd := len(text)
		if nl := strings.IndexByte(text[lineStart:], '\n'); nl >= 0 {
			lineEnd = lineStart + nl
		}

		var prefix *Prefix
		if i > 0 {
			if i < len(prefixes) {
				prefix = prefixes[i].fit(width - 1)
			}
			b.newRow(RowCommand, i, lineStart)
			b.row.setPrefix(prefix)
			b.col = b.row.contentCol
		}

		line := text[lineStart:lineEnd]
		for pos := 0; pos < len(line); {
			u := textmetrics.Next(line, pos, b.col)
			pos = u.End
			abs := lineStart + u.Start
			switch u.Kind {
			case textmetrics.KindEscape:
				b.escape(u.Text)
				continue
			case textmetrics.KindCombining:
				b.combine(u.Text)
				continue
			}

			if b.col+u.Width > width && b.col > b.row.contentCol {
				b.wrap(i, abs, prefix)
				if u.Kind == textmetrics.KindTab {
					u = textmetrics.Next(line, u.Start, b.col)
				}
			}
			if !b.cursorSet && u.Boundary && abs >= b.cursor {
				b.setCursor(i, lineStart, abs)
			}
			b.place(u, abs, false)
		}

		if b.col >= width {
			// A line that fills its last row continues on an empty one, so
			// the end of the line always has a column and the terminal never
			// sits in its pending-wrap state.
			b.wrap(i, lineEnd, prefix)
		}
		if !b.cursorSet && b.cursor <= lineEnd {
			b.setCursor(i, lineStart, lineEnd)
		}
		b.row.end = lineEnd

		if lineEnd == len(text) {
			return
		}
		lineStart = lineEnd + 1
	}
}

func (b *builder) wrap(line, abs int, prefix *Prefix) {
	b.row.end = abs
	b.newRow(RowCommand, line, abs)
	if b.s.repeatPrefix && prefix != nil {
		b.row.setPrefix(prefix)
		b.col = b.row.contentCol
	}
}

func (b *builder) setCursor(line, lineStart, off int) {
	b.s.cursor = Cursor{
		Row:        b.index,
		Col:        b.col,
		Line:       line,
		LineOffset: off - lineStart,
		Offset:     off,
	}
	b.cursorSet = true
}

func (b *builder) overlay(o Overlay) {
	width := b.s.width
	b.pen = ""
	b.lead = ""
	b.newRow(o.Kind.rowKind(), -1, -1)
	b.row.setPrefix(o.Prefix.fit(width))
	b.col = b.row.contentCol

	text := textmetrics.Truncate(o.Text, width-b.col)
	for pos := 0; pos < len(text); {
		u := textmetrics.Next(text, pos, b.col)
		pos = u.End
		switch u.Kind {
		case textmetrics.KindEscape:
			b.escape(u.Text)
		case textmetrics.KindCombining:
			b.combine(u.Text)
		default:
			if b.col+u.Width > width {
				return
			}
			b.place(u, -1, true)
		}
	}
}

func (b *builder) escape(seq string) {
	b.lead += seq
	if textmetrics.IsSGR(seq) {
		if textmetrics.IsReset(seq) {
			b.pen = ""
		} else {
			b.pen += seq
		}
	}
}

// combine attaches a stray zero-width mark to the glyph before it, or to
// the next glyph when there is none on the row.
func (b *builder) combine(mark string) {
	r := b.row
	for col := b.col - 1; col >= r.contentCol && col >= 0; col-- {
		c := r.cells[col]
		if c.Continuation {
			continue
		}
		if c.Text != "" {
			c.Text += mark
			r.cells[col] = c
			r.markContentDirty()
			return
		}
		break
	}
	b.lead += mark
}

// place draws a visible unit at the current column.
func (b *builder) place(u textmetrics.Unit, off int, readOnly bool) {
	width := b.s.width
	room := width - b.col
	if room <= 0 {
		return
	}

	cell := Cell{Lead: b.lead, Pen: b.pen, Offset: off, ReadOnly: readOnly}
	b.lead = ""

	switch u.Kind {
	case textmetrics.KindTab:
		for i := 0; i < min(u.Width, room); i++ {
			c := cell
			c.Text = " "
			c.Width = 1
			if i > 0 {
				c.Lead = ""
			}
			b.row.put(b.col, c)
			b.col++
		}
	case textmetrics.KindWide:
		if room < 2 {
			// A single column is left on the row.
			cell.Text = textmetrics.Placeholder
			cell.Width = 1
			b.row.put(b.col, cell)
			b.col++
			return
		}
		cell.Text = u.Text
		cell.Width = 2
		b.row.put(b.col, cell)
		b.row.put(b.col+1, Cell{Pen: b.pen, Continuation: true, Offset: off, ReadOnly: readOnly})
		b.col += 2
	case textmetrics.KindControl:
		for i := 0; i < len(u.Text) && i < room; i++ {
			c := cell
			c.Text = u.Text[i : i+1]
			c.Width = 1
			if i > 0 {
				c.Lead = ""
			}
			b.row.put(b.col, c)
			b.col++
		}
	default:
		cell.Text = u.Text
		cell.Width = 1
		b.row.put(b.col, cell)
		b.col++
	}
}
