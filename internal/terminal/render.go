package terminal

import (
	"bytes"
	"fmt"
	"io"

	"github.com/retroenv/retrochip8/internal/display"
)

const (
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
	bell        = "\a"
)

// every output character cell shows two vertically adjacent pixels
var halfBlocks = [4]rune{
	' ', // both off
	'▀', // top on
	'▄', // bottom on
	'█', // both on
}

// Renderer writes frames to a terminal. Unchanged frames are not written
// again.
type Renderer struct {
	out io.Writer
	buf bytes.Buffer

	last      display.Frame
	lastSound bool
	drawn     bool
}

// NewRenderer returns a renderer writing to the given writer.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Render writes the frame and a status line. The terminal bell is rung
// when the sound becomes active.
func (r *Renderer) Render(frame display.Frame, sound bool) error {
	if r.drawn && frame == r.last && sound == r.lastSound {
		return nil
	}

	r.buf.Reset()
	r.buf.WriteString(cursorHome)
	writeFrame(&r.buf, frame)

	status := "     "
	if sound {
		status = "BEEP "
	}
	fmt.Fprintf(&r.buf, "%s ESC to quit\r\n", status)
	if sound && !r.lastSound {
		r.buf.WriteString(bell)
	}

	if _, err := r.out.Write(r.buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	r.last = frame
	r.lastSound = sound
	r.drawn = true
	return nil
}

// writeFrame writes the frame as half-block characters, each output line
// contains two pixel rows.
func writeFrame(buf *bytes.Buffer, frame display.Frame) {
	for y := 0; y < display.Height; y += 2 {
		for x := 0; x < display.Width; x++ {
			index := 0
			if frame[y][x] {
				index |= 1
			}
			if y+1 < display.Height && frame[y+1][x] {
				index |= 2
			}
			buf.WriteRune(halfBlocks[index])
		}
		buf.WriteString("\r\n")
	}
}
