package editor

import (
	"strings"

	"github.com/vito/lineview/pkg/lineview"
)

// scanState is what a shell parser would still be waiting for after some
// prefix of a command.
type scanState struct {
	quote     byte // open quote character, 0 when none
	loops     int  // open for/while/until without done
	blocks    int  // open if/case/{ without their terminator
	escaped   bool // the text ends with a backslash-newline
	pipeline  bool // the last word was | && or ||
	inComment bool
}

func (s scanState) open() bool {
	return s.quote != 0 || s.loops > 0 || s.blocks > 0 || s.escaped || s.pipeline
}

func (s scanState) continuation() lineview.Continuation {
	switch {
	case s.quote != 0:
		return lineview.ContinuationQuote
	case s.loops > 0:
		return lineview.ContinuationLoop
	case s.open():
		return lineview.ContinuationGeneric
	}
	return lineview.ContinuationNone
}

var (
	loopOpeners  = map[string]bool{"for": true, "while": true, "until": true, "select": true}
	blockOpeners = map[string]bool{"if": true, "case": true, "{": true}
	blockClosers = map[string]bool{"fi": true, "esac": true, "}": true}
)

// Continuations returns, for every logical line of text, the state the line
// continues in. The first line is always ContinuationNone.
func Continuations(text string) []lineview.Continuation {
	lines := strings.Split(text, "\n")
	out := make([]lineview.Continuation, len(lines))
	var st scanState
	for i, line := range lines {
		if i > 0 {
			out[i] = st.continuation()
		}
		st = scanLine(st, line)
	}
	return out
}

// Complete reports whether text is a command the shell could run as is.
func Complete(text string) bool {
	var st scanState
	for _, line := range strings.Split(text, "\n") {
		st = scanLine(st, line)
	}
	return !st.open()
}

func scanLine(st scanState, line string) scanState {
	st.escaped = false
	st.inComment = false
	var word strings.Builder
	flush := func() {
		w := word.String()
		word.Reset()
		if w == "" {
			return
		}
		st.pipeline = w == "|" || w == "&&" || w == "||"
		switch {
		case loopOpeners[w]:
			st.loops++
		case w == "done":
			st.loops = max(0, st.loops-1)
		case blockOpeners[w]:
			st.blocks++
		case blockClosers[w]:
			st.blocks = max(0, st.blocks-1)
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		if st.quote != 0 {
			switch {
			case c == st.quote:
				st.quote = 0
			case c == '\\' && st.quote == '"':
				i++
			}
			continue
		}
		if st.inComment {
			break
		}
		switch c {
		case '\'', '"':
			st.quote = c
			st.pipeline = false
		case '\\':
			if i == len(line)-1 {
				st.escaped = true
			}
			i++
		case '#':
			if word.Len() == 0 {
				flush()
				st.inComment = true
			} else {
				word.WriteByte(c)
			}
		case ' ', '\t', ';':
			flush()
			if c == ';' {
				st.pipeline = false
			}
		default:
			word.WriteByte(c)
		}
	}
	if st.quote == 0 {
		flush()
	}
	return st
}
