// Package timer implements the CHIP-8 delay and sound timers.
//
// Both timers are decremented at a fixed 60Hz rate derived from wall-clock
// time, independent of the instruction execution rate.
package timer

import (
	"sync"
	"time"
)

// Frequency is the rate at which both timers are decremented.
const Frequency = 60

// TickInterval is the wall-clock duration of a single timer decrement.
const TickInterval = time.Second / Frequency

// Timer holds the delay and sound counters.
type Timer struct {
	mu        sync.Mutex
	delay     uint8
	sound     uint8
	reference time.Time // point in time up to which ticks have been consumed
}

// New returns a new timer with both counters at zero that starts
// measuring elapsed time from now.
func New(now time.Time) *Timer {
	return &Timer{
		reference: now,
	}
}

// Reset sets both counters to zero and restarts time measurement at now.
func (t *Timer) Reset(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.delay = 0
	t.sound = 0
	t.reference = now
}

// Tick decrements both counters by the number of whole ticks that elapsed
// since the last consumed tick. The fractional remainder is carried over to
// the next call so that no ticks get lost. It returns the number of ticks
// that were applied.
func (t *Timer) Tick(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := now.Sub(t.reference)
	if elapsed < TickInterval {
		return 0
	}

	ticks := elapsed / TickInterval
	t.delay = decrement(t.delay, ticks)
	t.sound = decrement(t.sound, ticks)
	t.reference = t.reference.Add(ticks * TickInterval)
	return int(ticks)
}

func decrement(value uint8, ticks time.Duration) uint8 {
	if time.Duration(value) <= ticks {
		return 0
	}
	return value - uint8(ticks)
}

// Delay returns the delay timer counter.
func (t *Timer) Delay() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// SetDelay overwrites the delay timer counter.
func (t *Timer) SetDelay(value uint8) {
	t.mu.Lock()
	t.delay = value
	t.mu.Unlock()
}

// Sound returns the sound timer counter.
func (t *Timer) Sound() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sound
}

// SetSound overwrites the sound timer counter.
func (t *Timer) SetSound(value uint8) {
	t.mu.Lock()
	t.sound = value
	t.mu.Unlock()
}

// IsSoundActive returns whether a tone should currently be played.
func (t *Timer) IsSoundActive() bool {
	return t.Sound() > 0
}
