// Package display implements the monochrome CHIP-8 framebuffer.
package display

import (
	"strings"
	"sync"
)

// Framebuffer dimensions in pixels.
const (
	Width  = 64
	Height = 32
)

// Frame is an immutable copy of the framebuffer content, indexed [y][x].
type Frame [Height][Width]bool

// Pixel returns whether the pixel at the given coordinates is lit.
// Coordinates outside the frame are reported as unlit.
func (f *Frame) Pixel(x, y int) bool {
	if !inside(x, y) {
		return false
	}
	return f[y][x]
}

// String returns a text rendering of the frame using '#' for lit pixels.
func (f *Frame) String() string {
	var sb strings.Builder
	sb.Grow(Height * (Width + 1))
	for y := range f {
		for _, lit := range f[y] {
			if lit {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Display is the framebuffer. It is written by the emulation loop and can be
// read concurrently by a presentation layer through Snapshot.
type Display struct {
	mu     sync.RWMutex
	pixels Frame
}

// New returns a new cleared display.
func New() *Display {
	return &Display{}
}

// Clear turns all pixels off.
func (d *Display) Clear() {
	d.mu.Lock()
	d.pixels = Frame{}
	d.mu.Unlock()
}

// SetPixel XORs the pixel at the given coordinates and returns whether the
// pixel got turned off by it, which signals a sprite collision. Callers are
// responsible for wrapping or clipping coordinates, pixels outside of the
// display are ignored.
func (d *Display) SetPixel(x, y int) bool {
	if !inside(x, y) {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.pixels[y][x] = !d.pixels[y][x]
	return !d.pixels[y][x]
}

// Snapshot returns a copy of the current framebuffer content.
func (d *Display) Snapshot() Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pixels
}

func inside(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}
