package vscreen

import (
	"fmt"
	"strings"
)

// Op is one terminal operation. Rows are relative to the first row of the
// prompt and columns are zero-based.
type Op interface {
	fmt.Stringer
	row() int
}

// OpWrite draws Text, which spans Width columns, starting at (Row, Col).
type OpWrite struct {
	Row, Col int
	Text     string
	Width    int
}

// OpClearLine erases from (Row, Col) to the end of the line.
type OpClearLine struct {
	Row, Col int
}

// OpClearBelow erases Row and every row after it.
type OpClearBelow struct {
	Row int
}

func (o OpWrite) row() int      { return o.Row }
func (o OpClearLine) row() int  { return o.Row }
func (o OpClearBelow) row() int { return o.Row }

func (o OpWrite) String() string {
	return fmt.Sprintf("write %d:%d %q", o.Row, o.Col, o.Text)
}

func (o OpClearLine) String() string {
	return fmt.Sprintf("clear-line %d:%d", o.Row, o.Col)
}

func (o OpClearBelow) String() string {
	return fmt.Sprintf("clear-below %d", o.Row)
}

// Ops is an ordered list of terminal operations.
type Ops []Op

func (ops Ops) String() string {
	lines := make([]string, len(ops))
	for i, o := range ops {
		lines[i] = o.String()
	}
	return strings.Join(lines, "\n")
}

// Rows returns how many distinct rows the ops touch.
func (ops Ops) Rows() int {
	seen := map[int]bool{}
	for _, o := range ops {
		seen[o.row()] = true
	}
	return len(seen)
}

// Diff returns the ops that turn a terminal showing old into one showing
// cur, top to bottom. A nil old, or one of a different width, is treated
// as blank. Prompt rows are never part of the diff.
//
// Diff clears the dirty flags of cur's rows that match old.
func Diff(old, cur *Screen) Ops {
	if cur == nil {
		return nil
	}
	var prev []*Row
	if old != nil && old.width == cur.width {
		prev = old.rows
	}

	var ops Ops
	for i, r := range cur.rows {
		if r.kind == RowPrompt {
			continue
		}
		if i >= len(prev) || prev[i].kind == RowPrompt {
			ops = append(ops, drawRow(i, r)...)
			continue
		}
		o := prev[i]
		reconcile(o, r)
		if r.prefixDirty {
			ops = append(ops, OpWrite{Row: i, Col: 0, Text: r.renderPrefix(), Width: r.prefix.Width()})
		}
		if r.contentDirty {
			ops = append(ops, patchRow(i, o, r)...)
		}
	}
	if len(prev) > len(cur.rows) {
		ops = append(ops, OpClearBelow{Row: len(cur.rows)})
	}
	return ops
}

// reconcile clears the dirty flags of the parts of r that look the same as
// they do in o.
func reconcile(o, r *Row) {
	r.prefixDirty = r.prefix != nil && !r.prefix.Equal(o.prefix)
	r.contentDirty = r.length != o.length || !cellsEqual(o, r)
	r.widthValid = false
}

func cellsEqual(o, r *Row) bool {
	for col := 0; col < r.length; col++ {
		if !o.cells[col].Equal(r.cells[col]) {
			return false
		}
	}
	return true
}

// drawRow draws a row the terminal has never shown.
func drawRow(i int, r *Row) Ops {
	var ops Ops
	if r.prefix != nil {
		ops = append(ops, OpWrite{Row: i, Col: 0, Text: r.renderPrefix(), Width: r.prefix.Width()})
	}
	if r.length > r.contentCol {
		ops = append(ops, OpWrite{
			Row:   i,
			Col:   r.contentCol,
			Text:  r.render(r.contentCol, r.length),
			Width: r.length - r.contentCol,
		})
	}
	if r.length < len(r.cells) {
		ops = append(ops, OpClearLine{Row: i, Col: r.length})
	}
	r.prefixDirty = false
	r.contentDirty = false
	return ops
}

// patchRow rewrites the smallest span of r that differs from o.
func patchRow(i int, o, r *Row) Ops {
	oldEnd, newEnd := o.length, r.length
	limit := max(oldEnd, newEnd)

	first := r.contentCol
	for first < limit && o.cellAt(first).Equal(r.cellAt(first)) {
		first++
	}
	last := newEnd
	if oldEnd == newEnd {
		for last > first && o.cellAt(last-1).Equal(r.cellAt(last-1)) {
			last--
		}
	}

	// Never split a wide glyph, old or new.
	for first > r.contentCol && (o.cellAt(first).Continuation || r.cellAt(first).Continuation) {
		first--
	}
	for last < newEnd && (o.cellAt(last).Continuation || r.cellAt(last).Continuation) {
		last++
	}

	var ops Ops
	if last > first {
		ops = append(ops, OpWrite{Row: i, Col: first, Text: r.render(first, last), Width: last - first})
	}
	if newEnd < oldEnd {
		ops = append(ops, OpClearLine{Row: i, Col: max(newEnd, r.contentCol)})
	}
	return ops
}
