// Package loader handles program file loading operations.
package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/options"
)

// Loader handles loading program files from disk.
type Loader struct {
	maxSize int
}

// New creates a new program loader.
func New() *Loader {
	return &Loader{
		maxSize: memory.MaxProgramSize,
	}
}

// Load reads the program image referenced by the options. Images that do
// not fit into the program area of the memory return a *memory.CapacityError.
func (l *Loader) Load(opts options.Program) ([]byte, error) {
	file, err := os.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", opts.Input, err)
	}
	defer func() { _ = file.Close() }()

	// regular files report their size, oversized images are rejected
	// without reading them
	if info, err := file.Stat(); err == nil && info.Mode().IsRegular() && info.Size() > int64(l.maxSize) {
		return nil, fmt.Errorf("loading program %s: %w", opts.Input,
			&memory.CapacityError{Size: int(info.Size()), Max: l.maxSize})
	}

	program, err := l.LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("loading program %s: %w", opts.Input, err)
	}
	return program, nil
}

// LoadFromReader reads a program image from the given reader. At most one
// byte more than the maximum program size is read, the size reported by a
// returned *memory.CapacityError is therefore a lower bound.
func (l *Loader) LoadFromReader(reader io.Reader) ([]byte, error) {
	// read one byte more than allowed to detect oversized images without
	// reading arbitrary large files into memory
	program, err := io.ReadAll(io.LimitReader(reader, int64(l.maxSize)+1))
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}

	if len(program) > l.maxSize {
		return nil, &memory.CapacityError{Size: len(program), Max: l.maxSize}
	}
	return program, nil
}
