// Package cpu implements the CHIP-8 processor: registers, call stack,
// instruction decoding and execution.
//
// The CPU does not own the components it operates on. Memory, display,
// timer and keypad are created by the emulator session and handed to New.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/retroenv/retrochip8/internal/disasm"
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/timer"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

const (
	// RegisterCount is the number of general purpose registers V0-VF.
	RegisterCount = 16

	// StackSize is the maximum call depth.
	StackSize = 16

	// FlagRegister is the index of VF which holds carry, borrow and collision flags.
	FlagRegister = 0xF

	// InstructionSize is the size of an instruction word in bytes.
	InstructionSize = 2

	addressMask = 0x0FFF
)

var (
	// ErrStackOverflow is returned when a call exceeds the maximum call depth.
	ErrStackOverflow = errors.New("stack overflow")
	// ErrStackUnderflow is returned when a return is executed with an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")
)

// Keypad is the keyboard capability the CPU consumes.
type Keypad interface {
	// IsPressed returns whether the key is currently pressed.
	IsPressed(key uint8) bool
	// WaitForKey blocks until any key is pressed or the context is canceled.
	WaitForKey(ctx context.Context) (uint8, error)
}

// State is a snapshot of the CPU registers.
type State struct {
	V     [RegisterCount]uint8
	I     uint16
	PC    uint16
	SP    uint8
	Stack []uint16 // return addresses, oldest first
}

// Option configures a CPU.
type Option func(*CPU)

// WithRandom sets the source of the random bytes used by the RND instruction.
func WithRandom(random func() uint8) Option {
	return func(c *CPU) {
		c.random = random
	}
}

// WithTrace enables debug logging of every executed instruction.
func WithTrace(trace bool) Option {
	return func(c *CPU) {
		c.trace = trace
	}
}

// CPU is the CHIP-8 processor.
type CPU struct {
	mu sync.Mutex // guards the registers against concurrent State calls

	v     [RegisterCount]uint8
	i     uint16
	pc    uint16
	sp    uint8
	stack [StackSize]uint16

	memory  *memory.Memory
	display *display.Display
	timer   *timer.Timer
	keys    Keypad

	logger *log.Logger
	random func() uint8
	trace  bool

	reported set.Set[uint16] // addresses of reported unknown opcodes
}

// New returns a new CPU operating on the given components.
func New(mem *memory.Memory, disp *display.Display, tmr *timer.Timer, keys Keypad,
	logger *log.Logger, options ...Option) *CPU {

	c := &CPU{
		memory:  mem,
		display: disp,
		timer:   tmr,
		keys:    keys,
		logger:  logger,
		random:  randomByte,
	}
	for _, option := range options {
		option(c)
	}
	c.Reset()
	return c
}

// Reset clears all registers and the stack and sets the program counter to
// the program start address.
func (c *CPU) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.v = [RegisterCount]uint8{}
	c.i = 0
	c.pc = memory.ProgramStart
	c.sp = 0
	c.stack = [StackSize]uint16{}
	c.reported = set.New[uint16]()
}

// State returns a snapshot of the registers. It is safe to call while the
// emulation loop is running.
func (c *CPU) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	stack := make([]uint16, c.sp)
	copy(stack, c.stack[:c.sp])
	return State{
		V:     c.v,
		I:     c.i,
		PC:    c.pc,
		SP:    c.sp,
		Stack: stack,
	}
}

// Step fetches the instruction at the program counter, advances the
// program counter past it and executes it.
//
// Unknown opcodes are logged and skipped. A stack overflow or underflow and
// a canceled wait for a key press return an error, in that case the program
// counter is reset to the address of the failed instruction and no other
// state is modified, so that the step can be retried.
func (c *CPU) Step(ctx context.Context) error {
	c.mu.Lock()

	address := c.pc
	opcode := c.memory.ReadWord(address)
	c.pc = (address + InstructionSize) & addressMask
	ins := Decode(opcode)

	if c.trace {
		c.logger.Debug("Executing instruction",
			log.Hex("address", address),
			log.Hex("opcode", opcode),
			log.String("instruction", disasm.Disassemble(opcode)))
	}

	if ins.Op == OpLdVxK {
		// the register lock is not held while waiting so that the state
		// can still be inspected
		c.mu.Unlock()
		key, err := c.keys.WaitForKey(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()

		if err != nil {
			c.pc = address
			return fmt.Errorf("waiting for key press at $%03X: %w", address, err)
		}
		c.v[ins.X] = key
		return nil
	}

	defer c.mu.Unlock()

	if err := c.execute(ins, address); err != nil {
		c.pc = address
		return fmt.Errorf("executing '%s' at $%03X: %w", disasm.Disassemble(opcode), address, err)
	}
	return nil
}

// reportUnknown logs an unknown opcode once per address.
func (c *CPU) reportUnknown(address, opcode uint16) {
	if c.reported.Contains(address) {
		return
	}
	c.reported.Add(address)

	c.logger.Warn("Skipping unknown opcode",
		log.Hex("address", address),
		log.Hex("opcode", opcode))
}

func (c *CPU) push(address uint16) error {
	if int(c.sp) >= StackSize {
		return ErrStackOverflow
	}
	c.stack[c.sp] = address
	c.sp++
	return nil
}

func (c *CPU) pop() (uint16, error) {
	if c.sp == 0 {
		return 0, ErrStackUnderflow
	}
	c.sp--
	return c.stack[c.sp], nil
}

func randomByte() uint8 {
	return uint8(rand.Uint32())
}
