// Package main implements the main entry point for a CHIP-8 emulator
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/retrochip8/internal/cli"
	"github.com/retroenv/retrochip8/internal/config"
	"github.com/retroenv/retrochip8/internal/disasm"
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/emulator"
	"github.com/retroenv/retrochip8/internal/loader"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/terminal"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			config.PrintBanner(logger, opts, version, commit, date)
			if msg := usageErr.Error(); msg != "" {
				logger.Error(msg)
			}
			usageErr.ShowUsage()
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	config.PrintBanner(logger, opts, version, commit, date)

	if err := run(ctx, logger, opts); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info("Emulation cancelled")
		case errors.Is(err, terminal.ErrQuit):
			logger.Info("Emulation stopped")
		default:
			logger.Fatal("Emulation failed", log.Err(err))
		}
	}
}

func run(ctx context.Context, logger *log.Logger, opts options.Program) error {
	program, err := loader.New().Load(opts)
	if err != nil {
		return err
	}

	if opts.List {
		if err := disasm.Listing(os.Stdout, program, memory.ProgramStart); err != nil {
			return fmt.Errorf("writing listing: %w", err)
		}
		return nil
	}

	emu, err := emulator.New(logger, options.NewEmulator(opts))
	if err != nil {
		return fmt.Errorf("creating emulator: %w", err)
	}
	if err := emu.LoadProgram(program); err != nil {
		return err
	}

	logger.Debug("Starting emulation",
		log.String("file", opts.Input),
		log.Int("rate", opts.Rate),
		log.String("interval", emu.InstructionInterval().String()))

	if opts.Headless {
		err := emu.Run(ctx)
		printState(os.Stdout, emu)
		return err
	}
	return runInteractive(ctx, logger, emu)
}

// runInteractive runs the emulator while the terminal front-end renders the
// display and handles the keyboard. It returns when either side stops.
func runInteractive(ctx context.Context, logger *log.Logger, emu *emulator.Emulator) error {
	term := terminal.New(logger, os.Stdin, os.Stdout)
	if err := term.Open(); err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer func() {
		if err := term.Close(); err != nil {
			logger.Error("Restoring terminal failed", log.Err(err))
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	emuErr := make(chan error, 1)
	go func() {
		emuErr <- emu.Run(runCtx)
		cancel()
	}()

	termErr := term.Run(runCtx, emu)
	cancel()

	if err := <-emuErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(termErr, context.Canceled) {
		return ctx.Err()
	}
	return termErr
}

// memoryDumpSize is the number of bytes at I shown in the machine state.
const memoryDumpSize = 16

// printState writes the final machine state of a headless run.
func printState(w io.Writer, emu *emulator.Emulator) {
	state := emu.Registers()

	fmt.Fprintf(w, "executed: %d instructions\n", emu.Executed())
	fmt.Fprintf(w, "PC: $%03X  I: $%03X  SP: %d  DT: %d  ST: %d\n",
		state.PC, state.I, state.SP, emu.DelayTimer(), emu.SoundTimer())
	for i, value := range state.V {
		fmt.Fprintf(w, "V%X: $%02X", i, value)
		if i%8 == 7 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "[I]: % X\n", emu.ReadMemory(state.I, memoryDumpSize))
	fmt.Fprintf(w, "keys: % X\n", emu.PressedKeys())

	frame := emu.SnapshotFramebuffer()
	fmt.Fprintf(w, "pixels lit: %d\n", litPixels(&frame))
	fmt.Fprint(w, frame.String())
}

func litPixels(frame *display.Frame) int {
	lit := 0
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			if frame.Pixel(x, y) {
				lit++
			}
		}
	}
	return lit
}
