package lineview

import "strings"

// Reason says why a redraw was requested. Reasons combine as a bit set.
type Reason uint8

const (
	// ReasonText means the command text changed.
	ReasonText Reason = 1 << iota
	// ReasonCursor means only the cursor moved.
	ReasonCursor
	// ReasonContinuation means a line's continuation state changed.
	ReasonContinuation
	// ReasonOverlay means the menu or notification changed.
	ReasonOverlay
	// ReasonResize means the terminal size changed. Geometry is read again
	// and everything is repainted.
	ReasonResize
	// ReasonForce repaints everything.
	ReasonForce
)

var reasonNames = []struct {
	r    Reason
	name string
}{
	{ReasonText, "text"},
	{ReasonCursor, "cursor"},
	{ReasonContinuation, "continuation"},
	{ReasonOverlay, "overlay"},
	{ReasonResize, "resize"},
	{ReasonForce, "force"},
}

// Has reports whether all of o is set in r.
func (r Reason) Has(o Reason) bool { return r&o == o && o != 0 }

func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	var names []string
	for _, n := range reasonNames {
		if r&n.r != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// State is where the Compositor is in a redraw.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateComputing
	StateDiffing
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateComputing:
		return "computing"
	case StateDiffing:
		return "diffing"
	case StateWriting:
		return "writing"
	}
	return "unknown"
}
