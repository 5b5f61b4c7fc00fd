// Package terminal implements an interactive text mode front-end for the
// emulator. The framebuffer is rendered with half-block characters and the
// keypad is mapped to the left side of a QWERTY keyboard.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/term/termios"
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	// RefreshRate is the number of frames rendered per second.
	RefreshRate = 60

	// HoldTimeout is the duration that a key stays pressed after its last
	// key stroke. Terminals do not report key releases, key repeat events
	// keep a held key pressed.
	HoldTimeout = 150 * time.Millisecond

	// minimum terminal size for the half-block output including status line
	minColumns = display.Width
	minRows    = display.Height/2 + 1
)

var (
	// ErrQuit is returned by Run when the user requested to quit.
	ErrQuit = errors.New("quit requested")
	// ErrNotTerminal is returned when the input is not an interactive terminal.
	ErrNotTerminal = errors.New("input is not a terminal")
)

// Machine is the emulator capability that the front-end consumes.
type Machine interface {
	SnapshotFramebuffer() display.Frame
	IsSoundActive() bool
	SetKeyState(key uint8, pressed bool)
}

// Terminal is an interactive terminal session.
type Terminal struct {
	logger *log.Logger
	in     *os.File
	out    io.Writer

	original unix.Termios
	raw      bool
}

// New returns a new terminal session that reads key strokes from in and
// renders to out.
func New(logger *log.Logger, in *os.File, out io.Writer) *Terminal {
	return &Terminal{
		logger: logger,
		in:     in,
		out:    out,
	}
}

// Open switches the terminal into raw mode so that key strokes are received
// immediately and are not echoed. Close has to be called to restore the
// original terminal mode.
func (t *Terminal) Open() error {
	fd := t.in.Fd()
	if !term.IsTerminal(int(fd)) {
		return ErrNotTerminal
	}

	width, height, err := term.GetSize(int(fd))
	if err != nil {
		return fmt.Errorf("getting terminal size: %w", err)
	}
	if width < minColumns || height < minRows {
		t.logger.Warn("Terminal is smaller than the display",
			log.Int("columns", width),
			log.Int("rows", height),
			log.Int("requiredColumns", minColumns),
			log.Int("requiredRows", minRows))
	}

	if err := termios.Tcgetattr(fd, &t.original); err != nil {
		return fmt.Errorf("getting terminal attributes: %w", err)
	}

	state := t.original
	state.Lflag &^= unix.ICANON | unix.ECHO
	state.Cc[unix.VMIN] = 1
	state.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(fd, termios.TCSANOW, &state); err != nil {
		return fmt.Errorf("setting terminal attributes: %w", err)
	}
	t.raw = true

	_, err = io.WriteString(t.out, clearScreen+hideCursor)
	return err
}

// Close restores the original terminal mode.
func (t *Terminal) Close() error {
	if !t.raw {
		return nil
	}
	t.raw = false

	_, _ = io.WriteString(t.out, showCursor+"\n")
	if err := termios.Tcsetattr(t.in.Fd(), termios.TCSANOW, &t.original); err != nil {
		return fmt.Errorf("restoring terminal attributes: %w", err)
	}
	return nil
}

// Run renders the machine framebuffer and forwards key strokes to the
// machine until the context is canceled or the user quits by pressing ESC.
// Escape sequences of cursor and function keys are ignored.
func (t *Terminal) Run(ctx context.Context, machine Machine) error {
	input := make(chan byte, 16)
	go readInput(t.in, input)

	keys := newKeyState(machine)
	renderer := NewRenderer(t.out)
	var decoder inputDecoder
	var escape <-chan time.Time

	ticker := time.NewTicker(time.Second / RefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case b, ok := <-input:
			if !ok {
				if decoder.pendingEscape() {
					return ErrQuit
				}
				return io.EOF
			}

			event := decoder.feed(b)
			switch {
			case event.quit:
				return ErrQuit
			case event.press:
				keys.press(event.key, time.Now())
			}

			escape = nil
			if decoder.pendingEscape() {
				escape = time.After(EscapeTimeout)
			}

		case <-escape:
			return ErrQuit

		case now := <-ticker.C:
			keys.expire(now)
			if err := renderer.Render(machine.SnapshotFramebuffer(), machine.IsSoundActive()); err != nil {
				return fmt.Errorf("rendering frame: %w", err)
			}
		}
	}
}

// readInput forwards all bytes read from the reader to the channel. The
// channel is closed when the reader returns an error.
func readInput(reader io.Reader, input chan<- byte) {
	defer close(input)

	buf := make([]byte, 16)
	for {
		n, err := reader.Read(buf)
		for _, b := range buf[:n] {
			input <- b
		}
		if err != nil {
			return
		}
	}
}
