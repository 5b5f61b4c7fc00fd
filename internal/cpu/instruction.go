package cpu

// Op identifies a decoded instruction.
type Op uint8

// All instructions of the classic CHIP-8 instruction set.
const (
	OpUnknown Op = iota
	OpCls        // 00E0
	OpRet        // 00EE
	OpJp         // 1nnn
	OpCall       // 2nnn
	OpSeByte     // 3xnn
	OpSneByte    // 4xnn
	OpSeReg      // 5xy0
	OpLdByte     // 6xnn
	OpAddByte    // 7xnn
	OpLdReg      // 8xy0
	OpOr         // 8xy1
	OpAnd        // 8xy2
	OpXor        // 8xy3
	OpAddReg     // 8xy4
	OpSub        // 8xy5
	OpShr        // 8xy6
	OpSubn       // 8xy7
	OpShl        // 8xyE
	OpSneReg     // 9xy0
	OpLdI        // Annn
	OpJpV0       // Bnnn
	OpRnd        // Cxnn
	OpDrw        // Dxyn
	OpSkp        // Ex9E
	OpSknp       // ExA1
	OpLdVxDT     // Fx07
	OpLdVxK      // Fx0A
	OpLdDTVx     // Fx15
	OpLdSTVx     // Fx18
	OpAddI       // Fx1E
	OpLdF        // Fx29
	OpLdB        // Fx33
	OpLdIVx      // Fx55
	OpLdVxI      // Fx65
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpCls:     "cls",
	OpRet:     "ret",
	OpJp:      "jp",
	OpCall:    "call",
	OpSeByte:  "se byte",
	OpSneByte: "sne byte",
	OpSeReg:   "se reg",
	OpLdByte:  "ld byte",
	OpAddByte: "add byte",
	OpLdReg:   "ld reg",
	OpOr:      "or",
	OpAnd:     "and",
	OpXor:     "xor",
	OpAddReg:  "add reg",
	OpSub:     "sub",
	OpShr:     "shr",
	OpSubn:    "subn",
	OpShl:     "shl",
	OpSneReg:  "sne reg",
	OpLdI:     "ld i",
	OpJpV0:    "jp v0",
	OpRnd:     "rnd",
	OpDrw:     "drw",
	OpSkp:     "skp",
	OpSknp:    "sknp",
	OpLdVxDT:  "ld vx, dt",
	OpLdVxK:   "ld vx, k",
	OpLdDTVx:  "ld dt, vx",
	OpLdSTVx:  "ld st, vx",
	OpAddI:    "add i",
	OpLdF:     "ld f",
	OpLdB:     "ld b",
	OpLdIVx:   "ld [i], vx",
	OpLdVxI:   "ld vx, [i]",
}

// String returns a short description of the instruction kind.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return opNames[OpUnknown]
}

// Instruction is a decoded instruction word with all operand fields extracted.
type Instruction struct {
	Op     Op
	Opcode uint16 // raw instruction word
	X      uint8  // bits 8-11
	Y      uint8  // bits 4-7
	N      uint8  // bits 0-3
	NN     uint8  // bits 0-7
	NNN    uint16 // bits 0-11
}

// Decode converts an instruction word into an Instruction. Words that do not
// match any instruction are decoded with Op set to OpUnknown.
func Decode(opcode uint16) Instruction {
	ins := Instruction{
		Opcode: opcode,
		X:      uint8(opcode>>8) & 0x0F,
		Y:      uint8(opcode>>4) & 0x0F,
		N:      uint8(opcode) & 0x0F,
		NN:     uint8(opcode),
		NNN:    opcode & 0x0FFF,
	}
	ins.Op = decodeOp(opcode, ins.N, ins.NN)
	return ins
}

func decodeOp(opcode uint16, n, nn uint8) Op {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			return OpCls
		case 0x00EE:
			return OpRet
		}

	case 0x1000:
		return OpJp

	case 0x2000:
		return OpCall

	case 0x3000:
		return OpSeByte

	case 0x4000:
		return OpSneByte

	case 0x5000:
		if n == 0 {
			return OpSeReg
		}

	case 0x6000:
		return OpLdByte

	case 0x7000:
		return OpAddByte

	case 0x8000:
		return decodeArithmetic(n)

	case 0x9000:
		if n == 0 {
			return OpSneReg
		}

	case 0xA000:
		return OpLdI

	case 0xB000:
		return OpJpV0

	case 0xC000:
		return OpRnd

	case 0xD000:
		return OpDrw

	case 0xE000:
		switch nn {
		case 0x9E:
			return OpSkp
		case 0xA1:
			return OpSknp
		}

	case 0xF000:
		return decodeMisc(nn)
	}

	return OpUnknown
}

// decodeArithmetic decodes the 8xyN register operation group.
func decodeArithmetic(n uint8) Op {
	switch n {
	case 0x0:
		return OpLdReg
	case 0x1:
		return OpOr
	case 0x2:
		return OpAnd
	case 0x3:
		return OpXor
	case 0x4:
		return OpAddReg
	case 0x5:
		return OpSub
	case 0x6:
		return OpShr
	case 0x7:
		return OpSubn
	case 0xE:
		return OpShl
	}
	return OpUnknown
}

// decodeMisc decodes the FxNN timer, keyboard and memory group.
func decodeMisc(nn uint8) Op {
	switch nn {
	case 0x07:
		return OpLdVxDT
	case 0x0A:
		return OpLdVxK
	case 0x15:
		return OpLdDTVx
	case 0x18:
		return OpLdSTVx
	case 0x1E:
		return OpAddI
	case 0x29:
		return OpLdF
	case 0x33:
		return OpLdB
	case 0x55:
		return OpLdIVx
	case 0x65:
		return OpLdVxI
	}
	return OpUnknown
}
