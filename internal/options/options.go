// Package options contains the program options.
package options

// DefaultInstructionRate is the default number of instructions executed per second.
const DefaultInstructionRate = 700

// Parameters contains file path options.
type Parameters struct {
	Input string `arg:"positional" usage:"CHIP-8 program file to run"`
}

// Flags contains behavior options.
type Flags struct {
	Rate     int    `flag:"rate" usage:"instructions executed per second" default:"700"`
	Cycles   uint64 `flag:"cycles" usage:"stop after this many instructions (0 = unlimited)"`
	Headless bool   `flag:"headless" usage:"run without terminal output and print the machine state on exit"`
	List     bool   `flag:"list" usage:"print a disassembly listing of the program and exit"`
	Trace    bool   `flag:"trace" usage:"log every executed instruction (implies -debug)"`
	Debug    bool   `flag:"debug" usage:"enable debug logging"`
	Quiet    bool   `flag:"q" usage:"quiet mode"`
}

// Program options of the emulator.
type Program struct {
	Parameters
	Flags
}

// Emulator defines options to control the emulation.
type Emulator struct {
	InstructionRate int    // instructions per second
	Cycles          uint64 // number of instructions to execute, 0 for no limit
	Trace           bool   // log every executed instruction
}

// NewEmulator returns emulator options derived from the program options.
func NewEmulator(opts Program) Emulator {
	rate := opts.Rate
	if rate == 0 {
		rate = DefaultInstructionRate
	}

	return Emulator{
		InstructionRate: rate,
		Cycles:          opts.Cycles,
		Trace:           opts.Trace,
	}
}
