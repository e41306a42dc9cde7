// Package textmetrics measures terminal text. It walks a (possibly styled)
// UTF-8 string one display unit at a time: escape runs, tabs, grapheme
// clusters, control bytes and malformed bytes each become a Unit with a
// column width and a cursor-stop flag.
//
// Nothing here fails. Invalid input degrades to a one-column placeholder so
// live, half-typed bytes can always be drawn.
package textmetrics

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// TabWidth is the distance between tab stops.
const TabWidth = 8

// Placeholder is drawn in place of bytes that cannot be decoded.
const Placeholder = "�"

// Kind classifies a decoded unit.
type Kind int

const (
	KindNarrow Kind = iota
	KindWide
	KindTab
	KindEscape
	KindCombining
	KindControl
	KindInvalid
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindNarrow:
		return "narrow"
	case KindWide:
		return "wide"
	case KindTab:
		return "tab"
	case KindEscape:
		return "escape"
	case KindCombining:
		return "combining"
	case KindControl:
		return "control"
	case KindInvalid:
		return "invalid"
	case KindEnd:
		return "end"
	}
	return "unknown"
}

// Unit is one decoded run of bytes.
type Unit struct {
	// Start and End delimit the source bytes; End is the next position.
	Start, End int

	Kind Kind

	// Text is what the terminal should receive for this unit. For escapes it
	// is the sequence itself, for tabs the expanded spaces, for control
	// bytes the caret notation and for malformed bytes the placeholder.
	Text string

	// Width is the number of columns the unit occupies.
	Width int

	// Boundary reports whether Start is a cursor stop.
	Boundary bool
}

// Next decodes the unit starting at byte pos of s. col is the display
// column pos will be drawn at; it only matters for tabs. At or past the end
// of s, Next returns a zero-width KindEnd unit.
func Next(s string, pos, col int) Unit {
	if pos >= len(s) {
		return Unit{Start: len(s), End: len(s), Kind: KindEnd, Boundary: true}
	}

	b := s[pos]
	switch {
	case b == ansi.ESC:
		if n := escapeLen(s[pos:]); n > 0 {
			return Unit{Start: pos, End: pos + n, Kind: KindEscape, Text: s[pos : pos+n]}
		}
		// Unterminated: likely a partially typed key sequence.
		return placeholder(pos, 1)
	case b == '\t':
		w := TabWidth - col%TabWidth
		return Unit{
			Start:    pos,
			End:      pos + 1,
			Kind:     KindTab,
			Text:     strings.Repeat(" ", w),
			Width:    w,
			Boundary: true,
		}
	case b < 0x20 || b == ansi.DEL:
		return Unit{
			Start:    pos,
			End:      pos + 1,
			Kind:     KindControl,
			Text:     caret(b),
			Width:    2,
			Boundary: true,
		}
	case b < utf8.RuneSelf:
		if pos+1 == len(s) || s[pos+1] < utf8.RuneSelf {
			return Unit{Start: pos, End: pos + 1, Kind: KindNarrow, Text: s[pos : pos+1], Width: 1, Boundary: true}
		}
	}

	r, size := utf8.DecodeRuneInString(s[pos:])
	if r == utf8.RuneError && size <= 1 {
		return placeholder(pos, 1)
	}
	if r >= 0x80 && r < 0xa0 {
		// C1 controls are never printable.
		return placeholder(pos, size)
	}

	cluster, w := ansi.FirstGraphemeCluster(s[pos:], ansi.GraphemeWidth)
	if valid := validPrefix(cluster); len(valid) != len(cluster) {
		cluster = valid
		w = ansi.StringWidth(cluster)
	}
	if cluster == "" {
		cluster = s[pos : pos+size]
		w = ansi.StringWidth(cluster)
	}

	u := Unit{Start: pos, End: pos + len(cluster), Text: cluster}
	switch {
	case w <= 0:
		u.Kind = KindCombining
	case w >= 2:
		u.Kind = KindWide
		u.Width = 2
		u.Boundary = true
	default:
		u.Kind = KindNarrow
		u.Width = 1
		u.Boundary = true
	}
	return u
}

// Width returns the visual width of s drawn from column 0.
func Width(s string) int {
	return WidthFrom(s, 0)
}

// WidthFrom returns how many columns s advances when drawn starting at col.
func WidthFrom(s string, col int) int {
	start := col
	for pos := 0; pos < len(s); {
		u := Next(s, pos, col)
		col += u.Width
		pos = u.End
	}
	return col - start
}

// Boundaries lists every cursor stop in s, ending with len(s).
func Boundaries(s string) []int {
	var stops []int
	for pos, col := 0, 0; pos < len(s); {
		u := Next(s, pos, col)
		if u.Boundary {
			stops = append(stops, u.Start)
		}
		col += u.Width
		pos = u.End
	}
	return append(stops, len(s))
}

// ClampToBoundary returns the last cursor stop at or before off.
func ClampToBoundary(s string, off int) int {
	if off <= 0 {
		return 0
	}
	if off >= len(s) {
		return len(s)
	}
	last := 0
	for pos, col := 0, 0; pos < len(s) && pos <= off; {
		u := Next(s, pos, col)
		if u.Boundary {
			last = u.Start
		}
		col += u.Width
		pos = u.End
	}
	return last
}

// ColumnOf returns the display column of byte offset off in s.
func ColumnOf(s string, off int) int {
	col := 0
	for pos := 0; pos < len(s) && pos < off; {
		u := Next(s, pos, col)
		if u.End > off {
			break
		}
		col += u.Width
		pos = u.End
	}
	return col
}

// OffsetAt returns the cursor stop drawn at column col. A column in the
// middle of a wide or tab unit resolves to the unit's start; a column past
// the end resolves to len(s).
func OffsetAt(s string, col int) int {
	c := 0
	for pos := 0; pos < len(s); {
		u := Next(s, pos, c)
		if u.Boundary && u.Width > 0 && col < c+u.Width {
			return u.Start
		}
		c += u.Width
		pos = u.End
	}
	return len(s)
}

// Truncate cuts s to at most width columns, keeping escape sequences intact.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "")
}

func placeholder(pos, n int) Unit {
	return Unit{
		Start:    pos,
		End:      pos + n,
		Kind:     KindInvalid,
		Text:     Placeholder,
		Width:    1,
		Boundary: true,
	}
}

func caret(b byte) string {
	if b == ansi.DEL {
		return "^?"
	}
	return string([]byte{'^', b + '@'})
}

// validPrefix returns the leading part of a cluster that holds only valid,
// printable runes.
func validPrefix(cluster string) string {
	for i := 0; i < len(cluster); {
		r, size := utf8.DecodeRuneInString(cluster[i:])
		if (r == utf8.RuneError && size <= 1) || r < 0x20 || (r >= 0x7f && r < 0xa0) {
			return cluster[:i]
		}
		i += size
	}
	return cluster
}
