package cpu

import (
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/memory"
)

// spriteWidth is the width of every sprite in pixels.
const spriteWidth = 8

// execute runs a decoded instruction. The program counter already points to
// the next instruction. The wait for key instruction is handled by Step.
//
//nolint:cyclop,funlen // one case per instruction
func (c *CPU) execute(ins Instruction, address uint16) error {
	switch ins.Op {
	case OpCls:
		c.display.Clear()

	case OpRet:
		return c.ret()

	case OpJp:
		c.pc = ins.NNN

	case OpCall:
		return c.call(ins.NNN)

	case OpSeByte:
		c.skipIf(c.v[ins.X] == ins.NN)

	case OpSneByte:
		c.skipIf(c.v[ins.X] != ins.NN)

	case OpSeReg:
		c.skipIf(c.v[ins.X] == c.v[ins.Y])

	case OpSneReg:
		c.skipIf(c.v[ins.X] != c.v[ins.Y])

	case OpLdByte:
		c.v[ins.X] = ins.NN

	case OpAddByte:
		c.v[ins.X] += ins.NN

	case OpLdReg:
		c.v[ins.X] = c.v[ins.Y]

	case OpOr:
		c.v[ins.X] |= c.v[ins.Y]

	case OpAnd:
		c.v[ins.X] &= c.v[ins.Y]

	case OpXor:
		c.v[ins.X] ^= c.v[ins.Y]

	case OpAddReg:
		c.addRegister(ins.X, ins.Y)

	case OpSub:
		c.subtract(ins.X, c.v[ins.X], c.v[ins.Y])

	case OpSubn:
		c.subtract(ins.X, c.v[ins.Y], c.v[ins.X])

	case OpShr:
		c.shiftRight(ins.X)

	case OpShl:
		c.shiftLeft(ins.X)

	case OpLdI:
		c.i = ins.NNN

	case OpJpV0:
		c.pc = (ins.NNN + uint16(c.v[0])) & addressMask

	case OpRnd:
		c.v[ins.X] = c.random() & ins.NN

	case OpDrw:
		c.draw(ins.X, ins.Y, ins.N)

	case OpSkp:
		c.skipIf(c.keys.IsPressed(c.v[ins.X] & 0x0F))

	case OpSknp:
		c.skipIf(!c.keys.IsPressed(c.v[ins.X] & 0x0F))

	case OpLdVxDT:
		c.v[ins.X] = c.timer.Delay()

	case OpLdDTVx:
		c.timer.SetDelay(c.v[ins.X])

	case OpLdSTVx:
		c.timer.SetSound(c.v[ins.X])

	case OpAddI:
		c.addIndex(ins.X)

	case OpLdF:
		c.i = memory.GlyphAddress(c.v[ins.X])

	case OpLdB:
		c.storeBCD(ins.X)

	case OpLdIVx:
		for r := uint16(0); r <= uint16(ins.X); r++ {
			c.memory.WriteByte(c.i+r, c.v[r])
		}

	case OpLdVxI:
		for r := uint16(0); r <= uint16(ins.X); r++ {
			c.v[r] = c.memory.ReadByte(c.i + r)
		}

	case OpLdVxK, OpUnknown:
		c.reportUnknown(address, ins.Opcode)
	}

	return nil
}

func (c *CPU) ret() error {
	address, err := c.pop()
	if err != nil {
		return err
	}
	c.pc = address
	return nil
}

func (c *CPU) call(address uint16) error {
	if err := c.push(c.pc); err != nil {
		return err
	}
	c.pc = address
	return nil
}

// skipIf skips the next instruction if the condition is true.
func (c *CPU) skipIf(condition bool) {
	if condition {
		c.pc = (c.pc + InstructionSize) & addressMask
	}
}

// setFlag sets VF, it is always written after the result register so that
// the flag takes precedence when VF is the destination.
func (c *CPU) setFlag(on bool) {
	if on {
		c.v[FlagRegister] = 1
	} else {
		c.v[FlagRegister] = 0
	}
}

func (c *CPU) addRegister(x, y uint8) {
	sum := uint16(c.v[x]) + uint16(c.v[y])
	c.v[x] = uint8(sum)
	c.setFlag(sum > 0xFF)
}

// subtract stores minuend - subtrahend in Vx, VF is set when no borrow occurs.
func (c *CPU) subtract(x, minuend, subtrahend uint8) {
	c.v[x] = minuend - subtrahend
	c.setFlag(minuend >= subtrahend)
}

func (c *CPU) shiftRight(x uint8) {
	value := c.v[x]
	c.v[x] = value >> 1
	c.setFlag(value&0x01 == 1)
}

func (c *CPU) shiftLeft(x uint8) {
	value := c.v[x]
	c.v[x] = value << 1
	c.setFlag(value>>7 == 1)
}

func (c *CPU) addIndex(x uint8) {
	sum := c.i + uint16(c.v[x])
	if sum > addressMask {
		c.i = sum & addressMask
		c.setFlag(true)
		return
	}
	c.i = sum
	c.setFlag(false)
}

func (c *CPU) storeBCD(x uint8) {
	value := c.v[x]
	c.memory.WriteByte(c.i, value/100)
	c.memory.WriteByte(c.i+1, (value/10)%10)
	c.memory.WriteByte(c.i+2, value%10)
}

// draw plots an 8 pixel wide sprite of the given height that is read from
// memory at I. The origin wraps around the display, the sprite itself is
// clipped at the display edges. VF is set if any lit pixel got cleared.
func (c *CPU) draw(x, y, height uint8) {
	originX := int(c.v[x]) % display.Width
	originY := int(c.v[y]) % display.Height
	collision := false

	for row := 0; row < int(height); row++ {
		py := originY + row
		if py >= display.Height {
			break
		}

		sprite := c.memory.ReadByte(c.i + uint16(row))
		for col := 0; col < spriteWidth; col++ {
			px := originX + col
			if px >= display.Width {
				break
			}
			if sprite&(0x80>>col) == 0 {
				continue
			}
			if c.display.SetPixel(px, py) {
				collision = true
			}
		}
	}

	c.setFlag(collision)
}
