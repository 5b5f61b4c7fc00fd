package cpu

import (
	"context"
	"testing"
	"time"

	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/timer"
	"github.com/retroenv/retrogolib/log"
)

// mockKeypad is a minimal keypad for testing.
type mockKeypad struct {
	pressed [16]bool
	waitKey uint8
	waitErr error
	waits   int
}

func (m *mockKeypad) IsPressed(key uint8) bool {
	return m.pressed[key&0x0F]
}

func (m *mockKeypad) WaitForKey(ctx context.Context) (uint8, error) {
	m.waits++
	if m.waitErr != nil {
		return 0, m.waitErr
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.waitKey, nil
}

type testMachine struct {
	cpu     *CPU
	memory  *memory.Memory
	display *display.Display
	timer   *timer.Timer
	keys    *mockKeypad
}

func newTestMachine(t *testing.T, options ...Option) *testMachine {
	t.Helper()

	m := &testMachine{
		memory:  memory.New(),
		display: display.New(),
		timer:   timer.New(time.Now()),
		keys:    &mockKeypad{},
	}
	logger := log.NewTestLogger(t)
	m.cpu = New(m.memory, m.display, m.timer, m.keys, logger, options...)
	return m
}

// load writes the given instruction words to the program start address.
func (m *testMachine) load(t *testing.T, opcodes ...uint16) {
	t.Helper()

	program := make([]byte, 0, len(opcodes)*2)
	for _, opcode := range opcodes {
		program = append(program, byte(opcode>>8), byte(opcode))
	}
	if err := m.memory.Load(program); err != nil {
		t.Fatalf("loading program: %v", err)
	}
}

func (m *testMachine) step(t *testing.T) error {
	t.Helper()
	return m.cpu.Step(context.Background())
}
