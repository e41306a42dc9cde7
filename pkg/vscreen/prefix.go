package vscreen

import "github.com/vito/lineview/pkg/textmetrics"

// Prefix is read-only styled text drawn at the start of a row, such as a
// continuation marker or a menu glyph. It is immutable; replace it to
// change it.
type Prefix struct {
	text     string
	width    int
	readOnly bool
}

// NewPrefix measures text and returns it as a read-only prefix. An empty
// text yields nil, which means "no prefix".
func NewPrefix(text string) *Prefix {
	if text == "" {
		return nil
	}
	return &Prefix{
		text:     text,
		width:    textmetrics.Width(text),
		readOnly: true,
	}
}

func (p *Prefix) Text() string {
	if p == nil {
		return ""
	}
	return p.text
}

func (p *Prefix) Width() int {
	if p == nil {
		return 0
	}
	return p.width
}

func (p *Prefix) ReadOnly() bool {
	return p != nil && p.readOnly
}

// Equal reports whether two prefixes draw the same text. Either may be nil.
func (p *Prefix) Equal(o *Prefix) bool {
	if p == o {
		return true
	}
	if p == nil || o == nil {
		return false
	}
	return p.text == o.text
}

// fit returns p cut down to at most limit columns.
func (p *Prefix) fit(limit int) *Prefix {
	if p == nil || p.width <= limit {
		return p
	}
	if limit <= 0 {
		return nil
	}
	return NewPrefix(textmetrics.Truncate(p.text, limit))
}
