package vscreen

// Cell is one terminal column of a Row.
type Cell struct {
	// Text is the grapheme drawn in this column. It is empty for unused
	// columns, prefix placeholders and the trailing half of a wide glyph.
	Text string

	// Lead holds the zero-width escape sequences that precede the glyph in
	// the source text.
	Lead string

	// Pen is the SGR state in effect while the glyph is drawn, including
	// Lead. Replaying it lets a write start in the middle of a styled span.
	Pen string

	// Width is 2 for the first half of a wide glyph, 0 for the trailing half
	// and unused columns, 1 otherwise.
	Width int

	// Continuation marks the trailing half of a wide glyph.
	Continuation bool

	// Offset is the byte offset of the source unit in the command text, or
	// -1 for prompt, prefix, overlay and unused columns.
	Offset int

	// ReadOnly marks prompt, prefix and overlay columns.
	ReadOnly bool
}

var blankCell = Cell{Offset: -1}

// Equal reports whether two cells look the same on the terminal. Source
// offsets are not compared: moving text around without changing what is
// drawn must not cause a repaint.
func (c Cell) Equal(o Cell) bool {
	return c.Text == o.Text &&
		c.Pen == o.Pen &&
		c.Width == o.Width &&
		c.Continuation == o.Continuation &&
		c.ReadOnly == o.ReadOnly
}

func (c Cell) glyph() string {
	if c.Text == "" {
		return " "
	}
	return c.Text
}
