// Package memory implements the 4KB CHIP-8 address space.
//
// Memory map:
//
//	0x000-0x1FF: Reserved interpreter area, holds the built-in glyph table at FontStart
//	0x200-0xFFF: Program area (3584 bytes)
//
// All accesses wrap modulo Size, so 12-bit address arithmetic at the top of
// the address space never faults.
package memory

import (
	"errors"
	"fmt"
)

const (
	// Size is the total number of addressable bytes.
	Size = 0x1000

	// ProgramStart is the address programs are loaded to and start executing at.
	ProgramStart = 0x200

	// MaxProgramSize is the largest program image that fits into the program area.
	MaxProgramSize = Size - ProgramStart

	// FontStart is the address of the built-in hexadecimal glyph table.
	FontStart = 0x050

	// GlyphSize is the number of bytes of a single glyph.
	GlyphSize = 5
)

// ErrCapacity is wrapped by every CapacityError.
var ErrCapacity = errors.New("program exceeds memory capacity")

// CapacityError is returned when a program image does not fit into the program area.
type CapacityError struct {
	Size int // size of the rejected image
	Max  int // maximum supported image size
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("program size %d exceeds maximum of %d bytes", e.Size, e.Max)
}

// Unwrap allows errors.Is(err, ErrCapacity).
func (e *CapacityError) Unwrap() error {
	return ErrCapacity
}

// glyphs contains the 4x5 pixel hexadecimal font 0-F.
var glyphs = [16 * GlyphSize]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat CHIP-8 address space.
// It is written only by the emulation loop and is not safe for concurrent writers.
type Memory struct {
	data [Size]uint8
}

// New returns a new memory instance with the glyph table installed.
func New() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Reset zeroes the memory and reinstalls the glyph table.
func (m *Memory) Reset() {
	m.data = [Size]uint8{}
	copy(m.data[FontStart:], glyphs[:])
}

// Load copies a program image into the program area. The reserved area is
// left untouched and an oversized image is rejected without modifying memory.
func (m *Memory) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return &CapacityError{
			Size: len(program),
			Max:  MaxProgramSize,
		}
	}
	copy(m.data[ProgramStart:], program)
	return nil
}

// ReadByte returns the byte at the given address modulo Size.
func (m *Memory) ReadByte(address uint16) uint8 {
	return m.data[address%Size]
}

// WriteByte sets the byte at the given address modulo Size.
func (m *Memory) WriteByte(address uint16, value uint8) {
	m.data[address%Size] = value
}

// ReadWord returns the big-endian word starting at the given address.
func (m *Memory) ReadWord(address uint16) uint16 {
	high := uint16(m.ReadByte(address))
	low := uint16(m.ReadByte(address + 1))
	return high<<8 | low
}

// Dump returns a copy of count bytes starting at the given address.
func (m *Memory) Dump(address uint16, count int) []byte {
	buf := make([]byte, count)
	for i := range buf {
		buf[i] = m.ReadByte(address + uint16(i))
	}
	return buf
}

// GlyphAddress returns the address of the glyph for the low nibble of digit.
func GlyphAddress(digit uint8) uint16 {
	return FontStart + uint16(digit&0x0F)*GlyphSize
}
