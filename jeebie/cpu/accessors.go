package cpu

// The getters below expose CPU state to callers outside the package: the
// debugger, snapshot/disassembly tooling, and the event-driven executive.

func (c *CPU) GetPC() uint16 { return c.pc }
func (c *CPU) GetSP() uint16 { return c.sp }

func (c *CPU) GetA() uint8 { return c.a }
func (c *CPU) GetF() uint8 { return c.f }
func (c *CPU) GetB() uint8 { return c.b }
func (c *CPU) GetC() uint8 { return c.c }
func (c *CPU) GetD() uint8 { return c.d }
func (c *CPU) GetE() uint8 { return c.e }
func (c *CPU) GetH() uint8 { return c.h }
func (c *CPU) GetL() uint8 { return c.l }

func (c *CPU) GetAF() uint16 { return c.getAF() }
func (c *CPU) GetBC() uint16 { return c.getBC() }
func (c *CPU) GetDE() uint16 { return c.getDE() }
func (c *CPU) GetHL() uint16 { return c.getHL() }

// IME reports whether the interrupt master enable flag is currently set.
func (c *CPU) IME() bool { return c.interruptsEnabled }

// Halted reports whether the CPU is suspended waiting for an interrupt.
func (c *CPU) Halted() bool { return c.halted }

// Cycles returns the total T-cycles spent on executed instructions and
// interrupt dispatches since power-on.
func (c *CPU) Cycles() uint64 { return c.cycles }
