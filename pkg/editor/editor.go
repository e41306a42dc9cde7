// Package editor is a small multi-line command editor. It turns terminal
// input events into edits and describes itself to a lineview.Compositor as
// a Frame.
package editor

import (
	"strings"
	"unicode/utf8"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/vito/lineview/pkg/lineview"
	"github.com/vito/lineview/pkg/textmetrics"
	"github.com/vito/lineview/pkg/vscreen"
)

// Outcome is what an event did to the editor beyond editing.
type Outcome int

const (
	// Ignored means the event was not for the editor.
	Ignored Outcome = iota
	// Edited means the editor changed and should be redrawn.
	Edited
	// Submitted means a complete command was entered. Take it with Submit.
	Submitted
	// Interrupted means Ctrl+C was pressed on an empty command.
	Interrupted
	// EOF means Ctrl+D was pressed on an empty command.
	EOF
)

// Completer returns candidates for word.
type Completer func(word string) []string

// Editor holds one command being edited.
type Editor struct {
	// Prompt is drawn before the command.
	Prompt string

	// Complete supplies Tab completion candidates. Nil disables completion.
	Complete Completer

	// Layout returns the screen the command is currently drawn on. It is
	// used to move the cursor between rows.
	Layout func() *vscreen.Screen

	text   string
	cursor int

	menu      []string
	menuIndex int
	// menuStart and menuEnd delimit the word the menu completes.
	menuStart, menuEnd int

	notification string

	history    []string
	historyIdx int
	draft      string

	pasting bool
}

// New returns an empty Editor.
func New(prompt string) *Editor {
	return &Editor{Prompt: prompt}
}

// Text returns the command being edited.
func (e *Editor) Text() string { return e.text }

// Cursor returns the cursor's byte offset in Text.
func (e *Editor) Cursor() int { return e.cursor }

// SetText replaces the command and moves the cursor to the end.
func (e *Editor) SetText(s string) {
	e.text = s
	e.cursor = len(s)
	e.hideMenu()
}

// SetCursor moves the cursor to the cursor stop at or before off.
func (e *Editor) SetCursor(off int) {
	e.cursor = textmetrics.ClampToBoundary(e.text, off)
}

// Notify shows msg below the command until the next edit.
func (e *Editor) Notify(msg string) {
	e.notification = msg
}

// MenuVisible reports whether the completion menu is showing.
func (e *Editor) MenuVisible() bool { return len(e.menu) > 0 }

// Submit returns the entered command, records it in history and starts a
// new, empty one.
func (e *Editor) Submit() string {
	cmd := e.text
	if strings.TrimSpace(cmd) != "" {
		e.history = append(e.history, cmd)
	}
	e.historyIdx = len(e.history)
	e.draft = ""
	e.text = ""
	e.cursor = 0
	e.hideMenu()
	e.notification = ""
	return cmd
}

// Frame implements lineview.Source.
func (e *Editor) Frame() lineview.Frame {
	f := lineview.Frame{
		Prompt:        e.Prompt,
		Text:          e.text,
		Cursor:        e.cursor,
		Continuations: Continuations(e.text),
		Notification:  e.notification,
	}
	for i, item := range e.menu {
		f.Menu = append(f.Menu, lineview.MenuItem{Text: item, Selected: i == e.menuIndex})
	}
	return f
}

// HandleEvent applies one decoded input event. The returned Reason says
// what needs redrawing.
func (e *Editor) HandleEvent(ev uv.Event) (lineview.Reason, Outcome) {
	switch ev := ev.(type) {
	case uv.PasteStartEvent:
		e.pasting = true
		return 0, Ignored
	case uv.PasteEndEvent:
		e.pasting = false
		return 0, Ignored
	case uv.PasteEvent:
		e.insert(ev.Content)
		return lineview.ReasonText, Edited
	case uv.KeyPressEvent:
		return e.handleKey(uv.Key(ev))
	}
	return 0, Ignored
}

func (e *Editor) handleKey(key uv.Key) (lineview.Reason, Outcome) {
	if e.pasting {
		switch key.Code {
		case uv.KeyEnter:
			e.insert("\n")
		case uv.KeyTab:
			e.insert("\t")
		default:
			e.insert(key.Text)
		}
		return lineview.ReasonText, Edited
	}

	if e.MenuVisible() {
		if r, ok := e.handleMenuKey(key); ok {
			return r, Edited
		}
	}

	hadNotification := e.notification != ""
	e.notification = ""
	reason := lineview.Reason(0)
	if hadNotification {
		reason = lineview.ReasonOverlay
	}

	switch {
	case key.Code == 'c' && key.Mod == uv.ModCtrl:
		if e.text == "" {
			return reason, Interrupted
		}
		e.SetText("")
		return reason | lineview.ReasonText | lineview.ReasonOverlay, Edited

	case key.Code == 'd' && key.Mod == uv.ModCtrl:
		if e.text == "" {
			return reason, EOF
		}
		e.deleteForward()
		return reason | lineview.ReasonText, Edited

	case key.Code == 'l' && key.Mod == uv.ModCtrl:
		return reason | lineview.ReasonForce, Edited

	case key.Code == uv.KeyEnter && key.Mod == uv.ModAlt:
		e.insert("\n")
		return reason | lineview.ReasonText | lineview.ReasonContinuation, Edited

	case key.Code == uv.KeyEnter:
		if Complete(e.text) {
			return reason, Submitted
		}
		e.insert("\n")
		return reason | lineview.ReasonText | lineview.ReasonContinuation, Edited

	case key.Code == uv.KeyTab:
		return reason | e.complete(), Edited

	case key.Code == uv.KeyBackspace, key.Code == 'h' && key.Mod == uv.ModCtrl:
		e.deleteBackward()
		return reason | lineview.ReasonText, Edited

	case key.Code == uv.KeyDelete:
		e.deleteForward()
		return reason | lineview.ReasonText, Edited

	case key.Code == uv.KeyLeft && key.Mod == uv.ModAlt, key.Code == 'b' && key.Mod == uv.ModAlt:
		e.cursor = e.wordLeft()
		return reason | lineview.ReasonCursor, Edited

	case key.Code == uv.KeyLeft, key.Code == 'b' && key.Mod == uv.ModCtrl:
		e.cursor = e.prevStop(e.cursor)
		return reason | lineview.ReasonCursor, Edited

	case key.Code == uv.KeyRight, key.Code == 'f' && key.Mod == uv.ModCtrl:
		e.cursor = e.nextStop(e.cursor)
		return reason | lineview.ReasonCursor, Edited

	case key.Code == uv.KeyHome, key.Code == 'a' && key.Mod == uv.ModCtrl:
		e.cursor = e.lineStart()
		return reason | lineview.ReasonCursor, Edited

	case key.Code == uv.KeyEnd, key.Code == 'e' && key.Mod == uv.ModCtrl:
		e.cursor = e.lineEnd()
		return reason | lineview.ReasonCursor, Edited

	case key.Code == uv.KeyUp, key.Code == 'p' && key.Mod == uv.ModCtrl:
		return reason | e.vertical(-1), Edited

	case key.Code == uv.KeyDown, key.Code == 'n' && key.Mod == uv.ModCtrl:
		return reason | e.vertical(1), Edited

	case key.Code == 'u' && key.Mod == uv.ModCtrl:
		start := e.lineStart()
		e.text = e.text[:start] + e.text[e.cursor:]
		e.cursor = start
		return reason | lineview.ReasonText, Edited

	case key.Code == 'k' && key.Mod == uv.ModCtrl:
		e.text = e.text[:e.cursor] + e.text[e.lineEnd():]
		return reason | lineview.ReasonText, Edited

	case key.Code == 'w' && key.Mod == uv.ModCtrl:
		start := e.wordLeft()
		e.text = e.text[:start] + e.text[e.cursor:]
		e.cursor = start
		return reason | lineview.ReasonText, Edited
	}

	if key.Text != "" && key.Mod&^uv.ModShift == 0 {
		e.insert(key.Text)
		return reason | lineview.ReasonText, Edited
	}
	if hadNotification {
		return reason, Edited
	}
	return 0, Ignored
}

func (e *Editor) handleMenuKey(key uv.Key) (lineview.Reason, bool) {
	switch {
	case key.Code == uv.KeyTab, key.Code == uv.KeyDown && key.Mod == 0,
		key.Code == 'n' && key.Mod == uv.ModCtrl:
		e.menuIndex = (e.menuIndex + 1) % len(e.menu)
		return lineview.ReasonOverlay, true
	case key.Code == uv.KeyUp && key.Mod == 0, key.Code == 'p' && key.Mod == uv.ModCtrl:
		e.menuIndex = (e.menuIndex + len(e.menu) - 1) % len(e.menu)
		return lineview.ReasonOverlay, true
	case key.Code == uv.KeyEscape:
		e.hideMenu()
		return lineview.ReasonOverlay, true
	case key.Code == uv.KeyEnter:
		e.replaceWord(e.menu[e.menuIndex])
		e.hideMenu()
		return lineview.ReasonOverlay | lineview.ReasonText, true
	}
	// Any other key closes the menu and is handled normally.
	e.hideMenu()
	return 0, false
}

func (e *Editor) insert(s string) {
	if s == "" {
		return
	}
	e.text = e.text[:e.cursor] + s + e.text[e.cursor:]
	e.cursor += len(s)
}

func (e *Editor) deleteBackward() {
	if e.cursor == 0 {
		return
	}
	start := e.prevStop(e.cursor)
	e.text = e.text[:start] + e.text[e.cursor:]
	e.cursor = start
}

func (e *Editor) deleteForward() {
	if e.cursor >= len(e.text) {
		return
	}
	end := e.nextStop(e.cursor)
	e.text = e.text[:e.cursor] + e.text[end:]
}

func (e *Editor) prevStop(off int) int {
	prev := 0
	for _, stop := range textmetrics.Boundaries(e.text) {
		if stop >= off {
			break
		}
		prev = stop
	}
	return prev
}

func (e *Editor) nextStop(off int) int {
	for _, stop := range textmetrics.Boundaries(e.text) {
		if stop > off {
			return stop
		}
	}
	return len(e.text)
}

func (e *Editor) lineStart() int {
	return strings.LastIndexByte(e.text[:e.cursor], '\n') + 1
}

func (e *Editor) lineEnd() int {
	if i := strings.IndexByte(e.text[e.cursor:], '\n'); i >= 0 {
		return e.cursor + i
	}
	return len(e.text)
}

func (e *Editor) wordLeft() int {
	i := e.cursor
	for i > 0 && isSpace(e.text[i-1]) {
		i--
	}
	for i > 0 && !isSpace(e.text[i-1]) {
		i--
	}
	return i
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

// vertical moves the cursor one row up or down on the drawn screen. Past the
// first or last row of the command it walks history instead.
func (e *Editor) vertical(delta int) lineview.Reason {
	if e.Layout != nil {
		if s := e.Layout(); s != nil && s.Text() == e.text {
			cur := s.Cursor()
			if off, err := s.BufferOffset(cur.Row+delta, cur.Col); err == nil {
				e.cursor = off
				return lineview.ReasonCursor
			}
		}
	}
	if e.navigateHistory(delta) {
		return lineview.ReasonText
	}
	return 0
}

func (e *Editor) navigateHistory(delta int) bool {
	idx := e.historyIdx + delta
	if idx < 0 || idx > len(e.history) {
		return false
	}
	if e.historyIdx == len(e.history) {
		e.draft = e.text
	}
	e.historyIdx = idx
	if idx == len(e.history) {
		e.SetText(e.draft)
	} else {
		e.SetText(e.history[idx])
	}
	return true
}

// complete completes the word before the cursor. A single candidate is
// inserted; several open the menu.
func (e *Editor) complete() lineview.Reason {
	if e.Complete == nil {
		return 0
	}
	start := e.cursor
	for start > 0 && !isSpace(e.text[start-1]) {
		start--
	}
	word := e.text[start:e.cursor]
	candidates := e.Complete(word)
	switch len(candidates) {
	case 0:
		e.notification = "no completions for " + word
		return lineview.ReasonOverlay
	case 1:
		e.menuStart, e.menuEnd = start, e.cursor
		e.replaceWord(candidates[0])
		return lineview.ReasonText
	}
	e.menu = candidates
	e.menuIndex = 0
	e.menuStart, e.menuEnd = start, e.cursor
	if common := commonPrefix(candidates); len(common) > len(word) {
		e.replaceWord(common)
	}
	return lineview.ReasonOverlay
}

func (e *Editor) replaceWord(s string) {
	e.text = e.text[:e.menuStart] + s + e.text[e.menuEnd:]
	e.cursor = e.menuStart + len(s)
	e.menuEnd = e.cursor
}

func (e *Editor) hideMenu() {
	e.menu = nil
	e.menuIndex = 0
}

func commonPrefix(words []string) string {
	prefix := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(w, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
