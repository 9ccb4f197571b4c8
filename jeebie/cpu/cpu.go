package cpu

import (
	"log/slog"

	"github.com/valerio/go-jeebie/jeebie/addr"
	"github.com/valerio/go-jeebie/jeebie/memory"
)

// Flag is one of the 4 possible flags used in the flag register (high nibble of F).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptVectors lists the 5 interrupt sources in fixed priority order,
// paired with the IF/IE bit they use and the vector the CPU jumps to.
var interruptVectors = []struct {
	bit    uint8
	vector uint16
}{
	{uint8(addr.VBlankInterrupt), 0x40},
	{uint8(addr.LCDSTATInterrupt), 0x48},
	{uint8(addr.TimerInterrupt), 0x50},
	{uint8(addr.SerialInterrupt), 0x58},
	{uint8(addr.JoypadInterrupt), 0x60},
}

// CPU is the main struct holding Sharp LR35902 state: the 8 registers,
// flags packed in the high nibble of f (the low nibble is always zero), and the control
// flags that drive interrupts, HALT and STOP.
type CPU struct {
	bus *memory.MMU

	a, f          uint8
	b, c          uint8
	d, e          uint8
	h, l          uint8
	sp, pc        uint16
	currentOpcode uint16

	interruptsEnabled bool
	eiPending         bool
	halted            bool
	haltBug           bool
	stopped           bool

	cycles uint64

	// stalledOpcodes remembers which undefined opcode bytes have already
	// been logged, so a CPU stuck at an illegal instruction doesn't spam
	// the log every frame.
	stalledOpcodes map[uint8]bool
}

// illegalOpcodes are the 11 byte values with no defined Sharp LR35902
// instruction. Hitting one stalls the CPU at its address rather than
// executing undefined behavior.
var illegalOpcodes = map[uint8]bool{
	0xD3: true, 0xDB: true, 0xDD: true,
	0xE3: true, 0xE4: true, 0xEB: true, 0xEC: true, 0xED: true,
	0xF4: true, 0xFC: true, 0xFD: true,
}

// New returns a CPU wired to bus, with registers set to the values the
// hardware leaves them in right after the boot ROM hands off control.
func New(bus *memory.MMU) *CPU {
	return &CPU{
		bus: bus,
		a:   0x01, f: 0xB0,
		b: 0x00, c: 0x13,
		d: 0x00, e: 0xD8,
		h: 0x01, l: 0x4D,
		sp: 0xFFFE,
		pc: 0x100,
	}
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// Exec decodes and runs a single instruction, handling pending interrupts
// and the HALT/STOP states first. It returns the number of T-cycles spent.
func (c *CPU) Exec() int {
	if interruptCycles, handled := c.stepInterrupts(); handled {
		return interruptCycles
	}

	if c.halted {
		return 4
	}

	opcode := Decode(c)

	if c.currentOpcode <= 0xFF && illegalOpcodes[uint8(c.currentOpcode)] {
		if c.stalledOpcodes == nil {
			c.stalledOpcodes = make(map[uint8]bool)
		}
		if !c.stalledOpcodes[uint8(c.currentOpcode)] {
			c.stalledOpcodes[uint8(c.currentOpcode)] = true
			slog.Error("Undefined opcode reached, stalling", "opcode", c.currentOpcode, "pc", c.pc)
		}
		return 4
	}

	if c.haltBug {
		// the byte at pc was already consumed as the HALT wake-up fetch;
		// leave pc in place so the same byte is read again as the next
		// opcode, reproducing the hardware's double-fetch quirk.
		c.haltBug = false
	} else {
		c.pc++
		if (c.currentOpcode & 0xFF00) == 0xCB00 {
			c.pc++
		}
	}

	cycles := opcode(c)
	c.cycles += uint64(cycles)

	if c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	return cycles
}

// stepInterrupts handles the HALT wake-up and interrupt dispatch that must
// happen before an opcode is fetched. It returns the cycles consumed and
// whether an interrupt was actually serviced (consuming the whole step).
func (c *CPU) stepInterrupts() (int, bool) {
	pending := c.handleInterrupts()

	if c.halted && pending {
		c.halted = false
		if !c.interruptsEnabled {
			c.haltBug = true
		}
	}

	if c.interruptsEnabled && pending {
		return 20, true
	}

	return 0, false
}

// handleInterrupts checks IF&IE for the highest priority pending source.
// If interrupts are globally enabled it dispatches to the handler: it
// pushes PC, clears IME, clears the serviced IF bit and jumps to the
// fixed vector, costing 5 M-cycles (20 T-cycles). It always reports
// whether a source is pending, even with IME off, so callers can use it
// to wake the CPU from HALT.
func (c *CPU) handleInterrupts() bool {
	ie := c.bus.Read(addr.IE)
	iflags := c.bus.Read(addr.IF)
	active := ie & iflags & 0x1F

	if active == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	for _, src := range interruptVectors {
		if active&src.bit == 0 {
			continue
		}

		c.interruptsEnabled = false
		c.bus.Write(addr.IF, iflags&^src.bit)
		c.pushStack(c.pc)
		c.pc = src.vector
		c.cycles += 20

		slog.Debug("dispatched interrupt", "vector", src.vector)
		return true
	}

	return true
}
