package emulator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retroenv/retrochip8/internal/cpu"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/timer"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// fakeClock is a manually advanced clock that records requested sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	step   time.Duration // time that passes on every now call
}

func (c *fakeClock) Now() time.Time {
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestEmulator(t *testing.T, opts options.Emulator) *Emulator {
	t.Helper()

	if opts.InstructionRate == 0 {
		opts.InstructionRate = options.DefaultInstructionRate
	}
	e, err := New(log.NewTestLogger(t), opts)
	assert.NoError(t, err)
	return e
}

func withClock(e *Emulator, clock *fakeClock) {
	e.now = clock.Now
	e.sleep = clock.Sleep
	e.timer.Reset(clock.now)
}

func program(opcodes ...uint16) []byte {
	buf := make([]byte, 0, len(opcodes)*2)
	for _, opcode := range opcodes {
		buf = append(buf, byte(opcode>>8), byte(opcode))
	}
	return buf
}

func TestNewInvalidRate(t *testing.T) {
	_, err := New(log.NewTestLogger(t), options.Emulator{InstructionRate: 0})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRate))
}

func TestLoadProgram(t *testing.T) {
	t.Run("maximum size", func(t *testing.T) {
		e := newTestEmulator(t, options.Emulator{})
		assert.NoError(t, e.LoadProgram(bytes.Repeat([]byte{0x60}, memory.MaxProgramSize)))
		assert.Equal(t, uint16(memory.ProgramStart), e.Registers().PC)
	})

	t.Run("oversized", func(t *testing.T) {
		e := newTestEmulator(t, options.Emulator{})
		assert.NoError(t, e.LoadProgram(program(0x6042)))

		err := e.LoadProgram(bytes.Repeat([]byte{0xFF}, memory.MaxProgramSize+1))
		assert.Error(t, err)

		var capErr *memory.CapacityError
		assert.True(t, errors.As(err, &capErr))
		assert.Equal(t, uint16(0x6042), e.memory.ReadWord(memory.ProgramStart))
	})
}

func TestStepScenario(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0x6005, 0x6103, 0x8014)))

	for i := 0; i < 3; i++ {
		assert.NoError(t, e.Step(context.Background()))
	}

	state := e.Registers()
	assert.Equal(t, uint8(8), state.V[0])
	assert.Equal(t, uint8(0), state.V[cpu.FlagRegister])
	assert.Equal(t, uint16(memory.ProgramStart+6), state.PC)
	assert.Equal(t, uint64(3), e.Executed())
}

func TestStepCallReturn(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0x2204, 0x0000, 0x00EE)))

	assert.NoError(t, e.Step(context.Background()))
	assert.NoError(t, e.Step(context.Background()))

	assert.Equal(t, uint16(memory.ProgramStart+2), e.Registers().PC)
}

func TestStepStackUnderflow(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0x00EE)))

	err := e.Step(context.Background())
	assert.True(t, errors.Is(err, cpu.ErrStackUnderflow))
	assert.Equal(t, uint64(0), e.Executed())
}

func TestAdvanceTimers(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	withClock(e, clock)
	assert.NoError(t, e.LoadProgram(program(0x600A, 0xF015, 0xF018)))
	for i := 0; i < 3; i++ {
		assert.NoError(t, e.Step(context.Background()))
	}
	assert.True(t, e.IsSoundActive())

	now := clock.now
	for i := 0; i < 10; i++ {
		now = now.Add(timer.TickInterval)
		e.AdvanceTimers(now)
	}
	assert.Equal(t, uint8(0), e.DelayTimer())
	assert.Equal(t, uint8(0), e.SoundTimer())
	assert.False(t, e.IsSoundActive())
}

func TestAdvanceTimersCoalesced(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	withClock(e, clock)
	e.timer.SetDelay(10)

	e.AdvanceTimers(clock.now.Add(5 * timer.TickInterval))

	assert.Equal(t, uint8(5), e.DelayTimer())
}

func TestSetInstructionRate(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})

	assert.NoError(t, e.SetInstructionRate(500))
	assert.Equal(t, 2*time.Millisecond, e.InstructionInterval())

	err := e.SetInstructionRate(-1)
	assert.True(t, errors.Is(err, ErrInvalidRate))
	assert.Equal(t, 2*time.Millisecond, e.InstructionInterval())
}

func TestRunPacing(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{InstructionRate: 1000, Cycles: 3})
	clock := &fakeClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step: 100 * time.Microsecond,
	}
	withClock(e, clock)
	assert.NoError(t, e.LoadProgram(program(0x7001, 0x7001, 0x7001)))

	assert.NoError(t, e.Run(context.Background()))

	assert.Equal(t, uint8(3), e.Registers().V[0])
	assert.Len(t, clock.sleeps, 3)
	for _, d := range clock.sleeps {
		assert.True(t, d > 0 && d < time.Millisecond, "sleep %s must fill the remaining interval", d)
	}
}

func TestRunNoSleepWhenBehind(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{InstructionRate: 1000, Cycles: 2})
	clock := &fakeClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step: 2 * time.Millisecond,
	}
	withClock(e, clock)
	assert.NoError(t, e.LoadProgram(program(0x7001, 0x7001)))

	assert.NoError(t, e.Run(context.Background()))

	assert.Len(t, clock.sleeps, 0)
}

func TestRunDecaysTimers(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{InstructionRate: 60, Cycles: 4})
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	withClock(e, clock)
	// set delay to 10, then loop
	assert.NoError(t, e.LoadProgram(program(0x600A, 0xF015, 0x1204)))

	assert.NoError(t, e.Run(context.Background()))

	// three instruction intervals at 60Hz elapsed after the delay was set
	assert.Equal(t, uint8(7), e.DelayTimer())
}

func TestRunCanceled(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0x1200)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunWaitForKey(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{Cycles: 2})
	assert.NoError(t, e.LoadProgram(program(0xF30A, 0x6101)))

	done := make(chan error, 1)
	go func() {
		done <- e.Run(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, uint16(memory.ProgramStart+2), e.Registers().PC, "registers readable while waiting")
	e.SetKeyState(0xE, true)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not continue after key press")
	}

	state := e.Registers()
	assert.Equal(t, uint8(0xE), state.V[3])
	assert.Equal(t, uint8(0x01), state.V[1])
}

func TestRunWaitForKeyCanceled(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0xF30A)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("waiting for a key press is not cancelable")
	}
}

func TestSnapshotFramebuffer(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	// draw glyph 1 at 0,0
	assert.NoError(t, e.LoadProgram(program(0x6001, 0xF029, 0x6000, 0xD005)))
	for i := 0; i < 4; i++ {
		assert.NoError(t, e.Step(context.Background()))
	}

	frame := e.SnapshotFramebuffer()
	assert.True(t, frame.Pixel(2, 0))
	assert.False(t, frame.Pixel(0, 0))
}

func TestReset(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0x6105, 0xF118, 0x00E0)))
	assert.NoError(t, e.Step(context.Background()))
	assert.NoError(t, e.Step(context.Background()))
	assert.True(t, e.IsSoundActive())
	e.SetKeyState(1, true)

	e.Reset()

	assert.Equal(t, uint64(0), e.Executed())
	assert.False(t, e.IsSoundActive())
	assert.False(t, e.keyboard.IsPressed(1))
	assert.Equal(t, uint16(0), e.memory.ReadWord(memory.ProgramStart))
	assert.Equal(t, uint8(0), e.Registers().V[1])
}

func TestInspection(t *testing.T) {
	e := newTestEmulator(t, options.Emulator{})
	assert.NoError(t, e.LoadProgram(program(0xA300, 0x6A7B)))

	e.SetKeyState(0xC, true)
	e.SetKeyState(0x3, true)
	e.SetKeyState(0x3, false)
	e.SetKeyState(0x1, true)
	assert.Equal(t, []uint8{0x1, 0xC}, e.PressedKeys())

	assert.Equal(t, []byte{0xA3, 0x00, 0x6A, 0x7B}, e.ReadMemory(memory.ProgramStart, 4))
	assert.Equal(t, []byte{0x00, 0x00}, e.ReadMemory(memory.Size-1, 2), "read wraps at the end of memory")
}
