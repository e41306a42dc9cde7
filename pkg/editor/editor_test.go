package editor

import (
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vito/lineview/pkg/lineview"
	"github.com/vito/lineview/pkg/vscreen"
)

func press(code rune, mod uv.KeyMod) uv.KeyPressEvent {
	return uv.KeyPressEvent{Code: code, Mod: mod}
}

func typeText(t *testing.T, e *Editor, s string) {
	t.Helper()
	for _, r := range s {
		_, out := e.HandleEvent(uv.KeyPressEvent{Code: r, Text: string(r)})
		require.Equal(t, Edited, out)
	}
}

// layout renders the editor the way a compositor without prefixes would.
func layout(t *testing.T, e *Editor) func() *vscreen.Screen {
	return func() *vscreen.Screen {
		s, err := vscreen.New(40, 10)
		require.NoError(t, err)
		require.NoError(t, s.RenderDocument(vscreen.Document{Prompt: e.Prompt, Text: e.Text(), Cursor: e.Cursor()}))
		return s
	}
}

func TestTypingAndSubmit(t *testing.T) {
	e := New("$ ")
	typeText(t, e, "echo hi")
	assert.Equal(t, "echo hi", e.Text())
	assert.Equal(t, 7, e.Cursor())

	reason, out := e.HandleEvent(press(uv.KeyEnter, 0))
	assert.Equal(t, Submitted, out)
	assert.Zero(t, reason)
	assert.Equal(t, "echo hi", e.Submit())
	assert.Empty(t, e.Text())
}

func TestEnterOnIncompleteCommandContinues(t *testing.T) {
	e := New("$ ")
	typeText(t, e, "for i in 1 2; do")

	reason, out := e.HandleEvent(press(uv.KeyEnter, 0))
	assert.Equal(t, Edited, out)
	assert.True(t, reason.Has(lineview.ReasonContinuation))
	typeText(t, e, "echo $i")

	f := e.Frame()
	assert.Equal(t, "for i in 1 2; do\necho $i", f.Text)
	assert.Equal(t, []lineview.Continuation{lineview.ContinuationNone, lineview.ContinuationLoop}, f.Continuations)

	e.HandleEvent(press(uv.KeyEnter, 0))
	typeText(t, e, "done")
	_, out = e.HandleEvent(press(uv.KeyEnter, 0))
	assert.Equal(t, Submitted, out)
}

func TestAltEnterInsertsNewline(t *testing.T) {
	e := New("$ ")
	typeText(t, e, "ls")
	_, out := e.HandleEvent(press(uv.KeyEnter, uv.ModAlt))
	assert.Equal(t, Edited, out)
	assert.Equal(t, "ls\n", e.Text())
}

func TestBackspaceDeletesWholeCluster(t *testing.T) {
	e := New("$ ")
	e.SetText("xé")
	e.HandleEvent(press(uv.KeyBackspace, 0))
	assert.Equal(t, "x", e.Text())
	assert.Equal(t, 1, e.Cursor())
}

func TestArrowsStepOverWideGlyphs(t *testing.T) {
	e := New("$ ")
	e.SetText("a日b")

	reason, _ := e.HandleEvent(press(uv.KeyLeft, 0))
	assert.Equal(t, lineview.ReasonCursor, reason)
	assert.Equal(t, 4, e.Cursor())
	e.HandleEvent(press(uv.KeyLeft, 0))
	assert.Equal(t, 1, e.Cursor())
	e.HandleEvent(press(uv.KeyRight, 0))
	assert.Equal(t, 4, e.Cursor())

	e.HandleEvent(press(uv.KeyDelete, 0))
	assert.Equal(t, "a日", e.Text())
}

func TestLineMotionAndKills(t *testing.T) {
	e := New("$ ")
	e.SetText("one two\nthree four")

	e.HandleEvent(press('a', uv.ModCtrl))
	assert.Equal(t, 8, e.Cursor())
	e.HandleEvent(press('e', uv.ModCtrl))
	assert.Equal(t, len(e.Text()), e.Cursor())

	e.HandleEvent(press('w', uv.ModCtrl))
	assert.Equal(t, "one two\nthree ", e.Text())
	e.HandleEvent(press('u', uv.ModCtrl))
	assert.Equal(t, "one two\n", e.Text())

	e.SetCursor(3)
	e.HandleEvent(press('k', uv.ModCtrl))
	assert.Equal(t, "one\n", e.Text())
}

func TestCtrlCAndCtrlD(t *testing.T) {
	e := New("$ ")
	typeText(t, e, "abc")

	_, out := e.HandleEvent(press('c', uv.ModCtrl))
	assert.Equal(t, Edited, out)
	assert.Empty(t, e.Text())

	_, out = e.HandleEvent(press('c', uv.ModCtrl))
	assert.Equal(t, Interrupted, out)
	_, out = e.HandleEvent(press('d', uv.ModCtrl))
	assert.Equal(t, EOF, out)
}

func TestCtrlLForcesRedraw(t *testing.T) {
	e := New("$ ")
	reason, out := e.HandleEvent(press('l', uv.ModCtrl))
	assert.Equal(t, Edited, out)
	assert.True(t, reason.Has(lineview.ReasonForce))
}

func TestNotificationClearsOnNextKey(t *testing.T) {
	e := New("$ ")
	e.Notify("saved")
	assert.Equal(t, "saved", e.Frame().Notification)

	reason, _ := e.HandleEvent(uv.KeyPressEvent{Code: 'x', Text: "x"})
	assert.True(t, reason.Has(lineview.ReasonOverlay))
	assert.Empty(t, e.Frame().Notification)
}

func TestCompletion(t *testing.T) {
	e := New("$ ")
	e.Complete = func(word string) []string {
		switch word {
		case "al":
			return []string{"alpha"}
		case "b":
			return []string{"beta", "bezel", "bravo"}
		}
		return nil
	}

	typeText(t, e, "ls al")
	e.HandleEvent(press(uv.KeyTab, 0))
	assert.Equal(t, "ls alpha", e.Text())
	assert.False(t, e.MenuVisible())

	typeText(t, e, " b")
	reason, _ := e.HandleEvent(press(uv.KeyTab, 0))
	assert.True(t, reason.Has(lineview.ReasonOverlay))
	require.True(t, e.MenuVisible())

	f := e.Frame()
	require.Len(t, f.Menu, 3)
	assert.True(t, f.Menu[0].Selected)

	e.HandleEvent(press(uv.KeyTab, 0))
	e.HandleEvent(press(uv.KeyDown, 0))
	assert.True(t, e.Frame().Menu[2].Selected)
	e.HandleEvent(press(uv.KeyUp, 0))
	assert.True(t, e.Frame().Menu[1].Selected)

	e.HandleEvent(press(uv.KeyEnter, 0))
	assert.False(t, e.MenuVisible())
	assert.Equal(t, "ls alpha bezel", e.Text())
	assert.Equal(t, len(e.Text()), e.Cursor())

	typeText(t, e, " zz")
	e.HandleEvent(press(uv.KeyTab, 0))
	assert.Equal(t, "no completions for zz", e.Frame().Notification)
}

func TestCompletionCommonPrefix(t *testing.T) {
	e := New("$ ")
	e.Complete = func(string) []string { return []string{"main.go", "main_test.go"} }
	typeText(t, e, "vi m")
	e.HandleEvent(press(uv.KeyTab, 0))
	assert.Equal(t, "vi main", e.Text())
	assert.True(t, e.MenuVisible())

	e.HandleEvent(press(uv.KeyEscape, 0))
	assert.False(t, e.MenuVisible())
	assert.Equal(t, "vi main", e.Text())
}

func TestUpMovesBetweenRows(t *testing.T) {
	e := New("$ ")
	e.Layout = layout(t, e)
	e.SetText("abc\nde")

	reason, _ := e.HandleEvent(press(uv.KeyUp, 0))
	assert.Equal(t, lineview.ReasonCursor, reason)
	// Column 2 on the first row is where "a" is drawn after the prompt.
	assert.Equal(t, 0, e.Cursor())

	reason, _ = e.HandleEvent(press(uv.KeyDown, 0))
	assert.Equal(t, lineview.ReasonCursor, reason)
	assert.Equal(t, 6, e.Cursor())
}

func TestUpStaysOnRowEndedByWideGlyph(t *testing.T) {
	e := New("$ ")
	e.Layout = func() *vscreen.Screen {
		s, err := vscreen.New(10, 10)
		require.NoError(t, err)
		require.NoError(t, s.RenderDocument(vscreen.Document{Prompt: e.Prompt, Text: e.Text(), Cursor: e.Cursor()}))
		return s
	}
	// "$ abc日本" fills nine columns; "語日本xyz" wraps onto the next row.
	e.SetText("abc日本語日本xyz")

	reason, _ := e.HandleEvent(press(uv.KeyUp, 0))
	assert.Equal(t, lineview.ReasonCursor, reason)
	assert.Equal(t, len("abc日"), e.Cursor())
	assert.Equal(t, 0, e.Layout().Cursor().Row)
}

func TestHistory(t *testing.T) {
	e := New("$ ")
	e.Layout = layout(t, e)
	for _, cmd := range []string{"one", "two"} {
		e.SetText(cmd)
		e.Submit()
	}
	typeText(t, e, "dra")

	e.HandleEvent(press(uv.KeyUp, 0))
	assert.Equal(t, "two", e.Text())
	e.HandleEvent(press(uv.KeyUp, 0))
	assert.Equal(t, "one", e.Text())
	reason, _ := e.HandleEvent(press(uv.KeyUp, 0))
	assert.Zero(t, reason)
	assert.Equal(t, "one", e.Text())

	e.HandleEvent(press(uv.KeyDown, 0))
	assert.Equal(t, "two", e.Text())
	e.HandleEvent(press(uv.KeyDown, 0))
	assert.Equal(t, "dra", e.Text())
}

func TestPaste(t *testing.T) {
	e := New("$ ")
	reason, out := e.HandleEvent(uv.PasteEvent{Content: "a\nb"})
	assert.Equal(t, Edited, out)
	assert.Equal(t, lineview.ReasonText, reason)
	assert.Equal(t, "a\nb", e.Text())

	// Keys between paste markers are inserted literally.
	e.HandleEvent(uv.PasteStartEvent{})
	e.HandleEvent(press(uv.KeyEnter, 0))
	e.HandleEvent(uv.KeyPressEvent{Code: 'c', Text: "c"})
	e.HandleEvent(uv.PasteEndEvent{})
	assert.Equal(t, "a\nb\nc", e.Text())
}

func TestContinuations(t *testing.T) {
	none, loop, quote, generic := lineview.ContinuationNone, lineview.ContinuationLoop,
		lineview.ContinuationQuote, lineview.ContinuationGeneric

	for _, tc := range []struct {
		text     string
		want     []lineview.Continuation
		complete bool
	}{
		{"echo hi", []lineview.Continuation{none}, true},
		{"for i in 1; do\necho $i\ndone", []lineview.Continuation{none, loop, loop}, true},
		{"for i in 1; do", []lineview.Continuation{none}, false},
		{"echo \"a\nb\"", []lineview.Continuation{none, quote}, true},
		{"echo 'a", []lineview.Continuation{none}, false},
		{"ls |\nwc", []lineview.Continuation{none, generic}, true},
		{"echo a \\\nb", []lineview.Continuation{none, generic}, true},
		{"if true; then\necho\nfi", []lineview.Continuation{none, generic, generic}, true},
		{"while true; do\nif x; then\n", []lineview.Continuation{none, loop, loop}, false},
		{"echo # for", []lineview.Continuation{none}, true},
		{"echo 'it''s' done", []lineview.Continuation{none}, true},
	} {
		assert.Equal(t, tc.want, Continuations(tc.text), "%q", tc.text)
		assert.Equal(t, tc.complete, Complete(tc.text), "%q", tc.text)
	}
}
