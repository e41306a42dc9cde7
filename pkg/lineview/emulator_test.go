package lineview

import (
	"strconv"
	"strings"

	"github.com/vito/lineview/pkg/textmetrics"
)

// emulator interprets the subset of escape sequences the Writer emits, so
// tests can compare what a terminal would show with the desired screen.
// It does not reflow on resize and never scrolls past its first row.
type emulator struct {
	width int
	rows  [][]string

	row, col    int
	pendingWrap bool
}

func newEmulator(width int) *emulator {
	return &emulator{width: width, rows: [][]string{blankRow(width)}}
}

func (e *emulator) Write(p []byte) (int, error) {
	e.feed(string(p))
	return len(p), nil
}

func (e *emulator) resize(width int) {
	for i, r := range e.rows {
		if len(r) < width {
			e.rows[i] = append(r, blankRow(width-len(r))...)
		} else {
			e.rows[i] = r[:width]
		}
	}
	e.width = width
	e.col = min(e.col, width-1)
}

func (e *emulator) feed(s string) {
	pos := 0
	for pos < len(s) {
		switch s[pos] {
		case '\r':
			e.col = 0
			e.pendingWrap = false
			pos++
			continue
		case '\n':
			e.lineFeed()
			pos++
			continue
		}
		u := textmetrics.Next(s, pos, e.col)
		switch u.Kind {
		case textmetrics.KindEscape:
			e.csi(u.Text)
		case textmetrics.KindCombining:
			if e.col > 0 {
				e.rows[e.row][e.col-1] += u.Text
			}
		default:
			e.print(u.Text, u.Width)
		}
		pos = u.End
	}
}

func (e *emulator) lineFeed() {
	e.pendingWrap = false
	e.row++
	if e.row == len(e.rows) {
		e.rows = append(e.rows, blankRow(e.width))
	}
}

func (e *emulator) print(glyph string, width int) {
	if e.pendingWrap {
		e.col = 0
		e.lineFeed()
	}
	r := e.rows[e.row]
	// Overwriting either half of a wide glyph erases the other half.
	if r[e.col] == "" && e.col > 0 {
		r[e.col-1] = " "
	}
	if end := e.col + width; end < e.width && r[end] == "" {
		r[end] = " "
	}
	r[e.col] = glyph
	if width == 2 && e.col+1 < e.width {
		r[e.col+1] = ""
	}
	e.col += width
	if e.col >= e.width {
		e.col = e.width - 1
		e.pendingWrap = true
	}
}

func (e *emulator) csi(seq string) {
	if !strings.HasPrefix(seq, "\x1b[") || len(seq) < 3 {
		return
	}
	params := seq[2 : len(seq)-1]
	if strings.HasPrefix(params, "?") {
		return
	}
	n, err := strconv.Atoi(params)
	if err != nil {
		n = 0
	}
	switch seq[len(seq)-1] {
	case 'A':
		e.row = max(0, e.row-max(1, n))
	case 'B':
		e.row = min(len(e.rows)-1, e.row+max(1, n))
	case 'G':
		e.col = min(e.width-1, max(1, n)-1)
	case 'K':
		blank(e.rows[e.row][e.col:])
	case 'J':
		blank(e.rows[e.row][e.col:])
		for _, r := range e.rows[e.row+1:] {
			blank(r)
		}
	default:
		return
	}
	e.pendingWrap = false
}

func blankRow(width int) []string {
	r := make([]string, width)
	blank(r)
	return r
}

func blank(cells []string) {
	for i := range cells {
		cells[i] = " "
	}
}

// lines returns the visible text of every row with trailing blanks and
// trailing empty rows removed.
func (e *emulator) lines() []string {
	var out []string
	for _, r := range e.rows {
		var b strings.Builder
		for _, c := range r {
			// Wide glyphs leave an empty string in the column they cover.
			b.WriteString(c)
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
