package lineview

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Terminal is where frames are written. Size reports the current geometry
// in columns and rows.
type Terminal interface {
	io.Writer
	Size() (cols, rows int, err error)
}

// ProcessTerminal is a Terminal backed by os.Stdin / os.Stdout.
// Terminal dimensions are cached and refreshed on SIGWINCH to avoid
// repeated ioctl syscalls during rendering.
type ProcessTerminal struct {
	in  *os.File
	out *os.File

	origTermios *unix.Termios
	sigCh       chan os.Signal
	resized     chan struct{}
	stopCancel  context.CancelFunc

	sizeMu sync.RWMutex
	cols   int
	rows   int
}

// NewProcessTerminal returns a ProcessTerminal on os.Stdin and os.Stdout.
func NewProcessTerminal() *ProcessTerminal {
	return NewTerminal(os.Stdin, os.Stdout)
}

// NewTerminal returns a ProcessTerminal reading from in and writing to out.
// Both must refer to the same tty.
func NewTerminal(in, out *os.File) *ProcessTerminal {
	return &ProcessTerminal{
		in:      in,
		out:     out,
		resized: make(chan struct{}, 1),
	}
}

// Start puts the terminal into raw mode and begins listening for resize
// events.
func (t *ProcessTerminal) Start() error {
	fd := int(t.in.Fd())
	orig, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return errors.Wrap(err, "get termios")
	}
	t.origTermios = orig

	raw := *orig
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return errors.Wrap(err, "set raw")
	}

	// Cache initial terminal size.
	if err := t.refreshSize(); err != nil {
		return err
	}

	// Enable bracketed paste.
	_, _ = t.out.WriteString(ansi.SetModeBracketedPaste)

	// Enable Kitty keyboard protocol (disambiguate escape codes) so
	// modified keys decode unambiguously.
	_, _ = t.out.WriteString(ansi.KittyKeyboard(ansi.KittyDisambiguateEscapeCodes, 1))

	var ctx context.Context
	ctx, t.stopCancel = context.WithCancel(context.Background())

	t.sigCh = make(chan os.Signal, 1)
	signal.Notify(t.sigCh, syscall.SIGWINCH)
	go func() {
		for {
			select {
			case <-t.sigCh:
				if t.refreshSize() != nil {
					continue
				}
				// Coalesce: one pending notification is enough.
				select {
				case t.resized <- struct{}{}:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop restores the terminal to its original state.
func (t *ProcessTerminal) Stop() {
	_, _ = t.out.WriteString(ansi.KittyKeyboard(0, 1))
	_, _ = t.out.WriteString(ansi.ResetModeBracketedPaste)

	if t.stopCancel != nil {
		t.stopCancel()
	}
	if t.sigCh != nil {
		signal.Stop(t.sigCh)
	}
	if t.origTermios != nil {
		_ = unix.IoctlSetTermios(int(t.in.Fd()), ioctlWriteTermios, t.origTermios)
	}
}

// Resized delivers a value after the terminal size changes.
func (t *ProcessTerminal) Resized() <-chan struct{} {
	return t.resized
}

func (t *ProcessTerminal) Read(p []byte) (int, error) {
	return t.in.Read(p)
}

func (t *ProcessTerminal) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

func (t *ProcessTerminal) Size() (cols, rows int, err error) {
	t.sizeMu.RLock()
	cols, rows = t.cols, t.rows
	t.sizeMu.RUnlock()
	if cols > 0 && rows > 0 {
		return cols, rows, nil
	}
	if err := t.refreshSize(); err != nil {
		return 0, 0, err
	}
	t.sizeMu.RLock()
	defer t.sizeMu.RUnlock()
	return t.cols, t.rows, nil
}

// refreshSize queries the kernel for current terminal dimensions and caches
// them. Called once at Start and on every SIGWINCH.
func (t *ProcessTerminal) refreshSize() error {
	ws, err := unix.IoctlGetWinsize(int(t.out.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return errors.Wrap(err, "get window size")
	}
	t.sizeMu.Lock()
	if ws.Col > 0 {
		t.cols = int(ws.Col)
	}
	if ws.Row > 0 {
		t.rows = int(ws.Row)
	}
	t.sizeMu.Unlock()
	return nil
}
