// Package emulator implements a CHIP-8 emulation session.
//
// The Emulator owns all machine components and drives the CPU at a
// configurable instruction rate while letting the timers decay at their
// fixed 60Hz rate based on elapsed wall-clock time.
//
// Run is expected to be called from a single goroutine. The framebuffer,
// sound state, register snapshots and key state can be accessed concurrently
// by a presentation layer.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/retroenv/retrochip8/internal/cpu"
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/keyboard"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/timer"
	"github.com/retroenv/retrogolib/log"
)

// ErrInvalidRate is returned for instruction rates that are not positive.
var ErrInvalidRate = errors.New("instruction rate must be positive")

// Emulator is a CHIP-8 emulation session.
type Emulator struct {
	logger *log.Logger

	memory   *memory.Memory
	display  *display.Display
	timer    *timer.Timer
	keyboard *keyboard.Keyboard
	cpu      *cpu.CPU

	cycles          uint64
	interval        atomic.Int64 // duration per instruction in nanoseconds
	executed        atomic.Uint64
	lastInstruction time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a new emulation session.
func New(logger *log.Logger, opts options.Emulator, cpuOptions ...cpu.Option) (*Emulator, error) {
	now := time.Now()
	e := &Emulator{
		logger:   logger,
		memory:   memory.New(),
		display:  display.New(),
		timer:    timer.New(now),
		keyboard: keyboard.New(),
		cycles:   opts.Cycles,
		now:      time.Now,
		sleep:    sleepContext,
	}

	if err := e.SetInstructionRate(opts.InstructionRate); err != nil {
		return nil, err
	}

	cpuOptions = append([]cpu.Option{cpu.WithTrace(opts.Trace)}, cpuOptions...)
	e.cpu = cpu.New(e.memory, e.display, e.timer, e.keyboard, logger, cpuOptions...)
	return e, nil
}

// LoadProgram loads a program image into the program area and resets the
// CPU to start executing it. An oversized image returns a
// *memory.CapacityError and leaves the session unmodified.
func (e *Emulator) LoadProgram(program []byte) error {
	if err := e.memory.Load(program); err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	e.cpu.Reset()

	e.logger.Debug("Program loaded",
		log.Int("size", len(program)),
		log.Hex("address", uint16(memory.ProgramStart)))
	return nil
}

// Reset returns all components to their power-on state. The loaded program
// is discarded.
func (e *Emulator) Reset() {
	e.memory.Reset()
	e.display.Clear()
	e.timer.Reset(e.now())
	e.keyboard.Reset()
	e.cpu.Reset()
	e.executed.Store(0)
}

// Step executes exactly one instruction. It only blocks while an
// instruction waits for a key press.
func (e *Emulator) Step(ctx context.Context) error {
	if err := e.cpu.Step(ctx); err != nil {
		return fmt.Errorf("executing step: %w", err)
	}
	e.executed.Add(1)
	return nil
}

// Run executes instructions paced to the configured instruction rate and
// updates the timers until the context is canceled, an instruction fails or
// the configured number of cycles has been executed.
func (e *Emulator) Run(ctx context.Context) error {
	e.lastInstruction = e.now()

	for count := uint64(0); e.cycles == 0 || count < e.cycles; count++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.Step(ctx); err != nil {
			return err
		}
		if err := e.pace(ctx); err != nil {
			return err
		}
		e.AdvanceTimers(e.now())
	}

	e.logger.Debug("Cycle limit reached", log.Int("cycles", int(e.cycles)))
	return nil
}

// pace sleeps for the remainder of the current instruction interval.
func (e *Emulator) pace(ctx context.Context) error {
	interval := time.Duration(e.interval.Load())
	elapsed := e.now().Sub(e.lastInstruction)

	if wait := interval - elapsed; wait > 0 {
		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}

	e.lastInstruction = e.now()
	return nil
}

// AdvanceTimers decrements the delay and sound timers by the number of 60Hz
// ticks that elapsed until now.
func (e *Emulator) AdvanceTimers(now time.Time) {
	e.timer.Tick(now)
}

// SnapshotFramebuffer returns a copy of the current framebuffer.
func (e *Emulator) SnapshotFramebuffer() display.Frame {
	return e.display.Snapshot()
}

// SetKeyState sets the pressed state of a keypad key 0x0-0xF.
func (e *Emulator) SetKeyState(key uint8, pressed bool) {
	e.keyboard.SetKey(key, pressed)
}

// IsSoundActive returns whether a tone should currently be played.
func (e *Emulator) IsSoundActive() bool {
	return e.timer.IsSoundActive()
}

// SetInstructionRate sets the number of instructions executed per second.
// It can be changed while the emulator is running.
func (e *Emulator) SetInstructionRate(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, hz)
	}
	e.interval.Store(int64(time.Second) / int64(hz))
	return nil
}

// InstructionInterval returns the duration of a single instruction at the
// configured rate.
func (e *Emulator) InstructionInterval() time.Duration {
	return time.Duration(e.interval.Load())
}

// PressedKeys returns the currently pressed keypad keys in ascending order.
func (e *Emulator) PressedKeys() []uint8 {
	return e.keyboard.Pressed()
}

// ReadMemory returns a copy of count bytes of memory starting at address.
// Addresses wrap around the end of the memory.
func (e *Emulator) ReadMemory(address uint16, count int) []byte {
	return e.memory.Dump(address, count)
}

// Registers returns a snapshot of the CPU registers.
func (e *Emulator) Registers() cpu.State {
	return e.cpu.State()
}

// DelayTimer returns the current delay timer value.
func (e *Emulator) DelayTimer() uint8 {
	return e.timer.Delay()
}

// SoundTimer returns the current sound timer value.
func (e *Emulator) SoundTimer() uint8 {
	return e.timer.Sound()
}

// Executed returns the number of instructions executed since the session
// was created or reset.
func (e *Emulator) Executed() uint64 {
	return e.executed.Load()
}

// sleepContext sleeps for the given duration or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
