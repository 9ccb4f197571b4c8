package memory

import "time"

// MBC represents a Memory Bank Controller interface that all MBC types must implement
type MBC interface {
	// Read reads a byte from the specified address
	Read(addr uint16) uint8
	// Write writes a byte to the specified address, returns the written value
	Write(addr uint16, value uint8) uint8
}

// RAMPersister is implemented by MBCs that carry battery-backed external
// RAM. The MMU uses it to restore a save image on load and write one back
// out on teardown.
type RAMPersister interface {
	RAM() []uint8
	LoadRAM(data []uint8)
}

// romBanks returns the number of whole 16KiB banks in rom (at least 1). The
// count is not rounded; the bank masks built from it (count - 1) assume a
// power-of-two ROM size, as real cartridges have.
func romBanks(rom []uint8) uint16 {
	banks := len(rom) / 0x4000
	if banks < 1 {
		return 1
	}
	return uint16(banks)
}

// NoMBC represents cartridges with no memory banking capabilities.
// These are typically smaller games (32KB or less) that fit entirely in the
// base memory region. The cartridge ROM is directly mapped to 0x0000-0x7FFF
// and cannot be banked/switched. These cartridges cannot have external RAM.
type NoMBC struct {
	rom []uint8 // ROM data
	ram []uint8
}

// NewNoMBC creates a new NoMBC controller
func NewNoMBC(romData []uint8) *NoMBC {
	return &NoMBC{
		rom: romData,
		ram: make([]uint8, 0x2000),
	}
}

func (m *NoMBC) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x7FFF:
		return m.rom[addr]
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.ram[addr-0xA000]
	default:
		return 0xFF
	}
}

func (m *NoMBC) Write(addr uint16, value uint8) uint8 {
	if addr >= 0xA000 && addr <= 0xBFFF {
		m.ram[addr-0xA000] = value
	}
	return value
}

// MBC1 is the first and most common MBC chip. Features include:
// - Supports up to 2MB ROM (125 16KB banks)
// - Up to 32KB RAM (4 8KB banks)
// - Bank 0 always mapped to 0x0000-0x3FFF
// - Switchable ROM bank at 0x4000-0x7FFF
// - Optional RAM banking at 0xA000-0xBFFF
// - Two banking modes:
//   - Mode 0 (ROM): Allows access to full ROM but only 8KB RAM
//   - Mode 1 (RAM): Restricts ROM banking but allows full RAM access
// - Optional battery backup for RAM persistence
type MBC1 struct {
	rom          []uint8
	ram          []uint8
	romBankCount uint16
	romBank      uint8
	ramBank      uint8
	ramEnabled   bool
	bankingMode  uint8
	hasBattery   bool
	ramBankCount uint8
}

// NewMBC1 creates a new MBC1 controller
func NewMBC1(romData []uint8, hasBattery bool, ramBankCount uint8) *MBC1 {
	ramSize := uint32(ramBankCount) * ramBankSize
	return &MBC1{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		romBankCount: romBanks(romData),
		romBank:      1,
		hasBattery:   hasBattery,
		ramBankCount: ramBankCount,
	}
}

// effectiveROMBank applies the documented MBC1 quirk: a selection whose low
// five bits are zero is promoted by setting bit 0, then the result is
// wrapped to the cartridge's actual bank count (always a power of two).
func (m *MBC1) effectiveROMBank() uint16 {
	bank := m.romBank
	if bank&0x1F == 0 {
		bank |= 1
	}
	return uint16(bank) & (m.romBankCount - 1)
}

func (m *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		offset := uint32(m.effectiveROMBank()) * 0x4000
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * ramBankSize
		return m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		m.romBank = (m.romBank & 0x60) | (value & 0x1F)
	case addr >= 0x4000 && addr <= 0x5FFF:
		if m.bankingMode == 1 {
			m.ramBank = value & 0x03
		} else {
			m.romBank = (m.romBank & 0x1F) | ((value & 0x03) << 5)
		}
	case addr >= 0x6000 && addr <= 0x7FFF:
		m.bankingMode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * ramBankSize
		m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))] = value
	}
	return value
}

func (m *MBC1) RAM() []uint8 { return m.ram }
func (m *MBC1) LoadRAM(data []uint8) {
	if len(data) == len(m.ram) {
		copy(m.ram, data)
	}
}

// MBC2 is a simpler MBC chip with built-in RAM. Features include:
// - Supports up to 256KB ROM (16 16KB banks)
// - Built-in 512x4 bits RAM (not external)
// - RAM must be enabled (0x0A written with address bit 8 clear) before use
// - ROM banking similar to MBC1 but simpler
// - The least significant bit of the upper address byte selects between
//   ROM banking and RAM access
// - RAM is limited to 4-bit values (upper 4 bits are ignored)
// - Optional battery backup for the built-in RAM
type MBC2 struct {
	rom          []uint8
	ram          []uint8 // 512x4 bits RAM, one nibble per byte
	romBankCount uint16
	romBank      uint8
	ramEnabled   bool
}

// NewMBC2 creates a new MBC2 controller
func NewMBC2(romData []uint8) *MBC2 {
	return &MBC2{
		rom:          romData,
		ram:          make([]uint8, 512),
		romBankCount: romBanks(romData),
		romBank:      1,
	}
}

func (m *MBC2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := uint32(m.romBank) & uint32(m.romBankCount-1)
		offset := bank * 0x4000
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xA1FF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[addr-0xA000] & 0x0F
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		// Bit 8 of the address must be clear to affect RAM enable
		// rather than bank select; MBC2 hardware wires the two
		// registers to the same range distinguished by addr bit 8.
		if addr&0x0100 == 0 {
			m.ramEnabled = (value & 0x0F) == 0x0A
		}
	case addr >= 0x2000 && addr <= 0x3FFF:
		if addr&0x0100 != 0 {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xA1FF:
		if m.ramEnabled {
			m.ram[addr-0xA000] = value & 0x0F
		}
	}
	return value
}

func (m *MBC2) RAM() []uint8 { return m.ram }
func (m *MBC2) LoadRAM(data []uint8) {
	if len(data) == len(m.ram) {
		copy(m.ram, data)
	}
}

// rtcState is the MBC3 real-time clock. It mirrors the Halted/Counting
// duality described for the cartridge component: while counting, the
// elapsed seconds are derived from the wall clock rather than ticked by
// the emulated CPU, so the clock keeps time across restarts.
type rtcState struct {
	halted      bool
	haltedSecs  int64
	zeroRefUnix int64

	latched   bool
	latchSecs int64
}

func newRTC() rtcState {
	return rtcState{halted: true}
}

func (r *rtcState) counter(now int64) int64 {
	if r.halted {
		return r.haltedSecs
	}
	elapsed := now - r.zeroRefUnix
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (r *rtcState) stop(now int64) {
	if !r.halted {
		r.haltedSecs = r.counter(now)
		r.halted = true
	}
}

func (r *rtcState) start(now int64) {
	if r.halted {
		r.zeroRefUnix = now - r.haltedSecs
		r.halted = false
	}
}

// latch snapshots the current counter value for register reads until the
// next 0->1 latch transition.
func (r *rtcState) latch(now int64) {
	r.latchSecs = r.counter(now)
	r.latched = true
}

// dump serializes RTC state to a single 64-bit word, the high bit tagging
// the Halted variant, matching the cartridge's persisted RTC format.
func (r *rtcState) dump() uint64 {
	if r.halted {
		return uint64(r.haltedSecs) | (1 << 63)
	}
	return uint64(r.zeroRefUnix)
}

func rtcFromDump(val uint64) rtcState {
	if val&(1<<63) != 0 {
		return rtcState{halted: true, haltedSecs: int64(val &^ (1 << 63))}
	}
	return rtcState{halted: false, zeroRefUnix: int64(val)}
}

func nowUnix() int64 { return time.Now().Unix() }

// MBC3 is an advanced MBC chip with RTC support. Features include:
// - Supports up to 2MB ROM (128 16KB banks)
// - Up to 32KB RAM (4 8KB banks)
// - Real-Time Clock (RTC) functionality
// - RTC has 5 registers: Seconds, Minutes, Hours, Days (lower), Days (upper)/Flags
// - Similar banking to MBC1 but with different register layout
// - RAM and RTC can be battery backed
// - Used in games that needed to track real time (e.g. Pokémon Gold/Silver)
type MBC3 struct {
	rom          []uint8
	ram          []uint8
	romBankCount uint16
	romBank      uint8
	ramBank      uint8
	ramEnabled   bool
	hasRTC       bool
	rtc          rtcState
	lastLatchWrite uint8
}

// NewMBC3 creates a new MBC3 controller
func NewMBC3(romData []uint8, hasRTC bool, ramBankCount uint8) *MBC3 {
	ramSize := uint32(ramBankCount) * ramBankSize
	return &MBC3{
		rom:            romData,
		ram:            make([]uint8, ramSize),
		romBankCount:   romBanks(romData),
		romBank:        1,
		hasRTC:         hasRTC,
		rtc:            newRTC(),
		lastLatchWrite: 0xFF,
	}
}

func (m *MBC3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := uint32(m.romBank) & uint32(m.romBankCount-1)
		offset := bank * 0x4000
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.readRTCRegister()
		}
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * ramBankSize
		return m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC3) readRTCRegister() uint8 {
	secs := m.rtc.latchSecs
	switch m.ramBank {
	case 0x08:
		return uint8(secs % 60)
	case 0x09:
		return uint8((secs / 60) % 60)
	case 0x0A:
		return uint8((secs / 3600) % 24)
	case 0x0B:
		return uint8((secs / 86400) & 0xFF)
	case 0x0C:
		days := secs / 86400
		v := uint8((days >> 8) & 0x01)
		if m.rtc.halted {
			v |= 0x40
		}
		if days > 0x1FF {
			v |= 0x80
		}
		return v
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.ramBank = value
	case addr >= 0x6000 && addr <= 0x7FFF:
		if m.hasRTC && m.lastLatchWrite == 0x00 && value == 0x01 {
			m.rtc.latch(nowUnix())
		}
		m.lastLatchWrite = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.writeRTCRegister(value)
			return value
		}
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * ramBankSize
		m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))] = value
	}
	return value
}

func (m *MBC3) writeRTCRegister(value uint8) {
	now := nowUnix()
	secs := m.rtc.counter(now)

	days := secs / 86400
	rem := secs % 86400
	h := rem / 3600
	mi := (rem % 3600) / 60
	s := rem % 60

	switch m.ramBank {
	case 0x08:
		s = int64(value)
	case 0x09:
		mi = int64(value)
	case 0x0A:
		h = int64(value)
	case 0x0B:
		days = (days &^ 0xFF) | int64(value)
	case 0x0C:
		days = (days &^ 0x100) | (int64(value&0x01) << 8)
		if value&0x40 != 0 {
			m.rtc.stop(now)
			secs = m.rtc.counter(now)
			return
		} else if m.rtc.halted {
			m.rtc.start(now)
		}
	}

	newSecs := days*86400 + h*3600 + mi*60 + s
	if m.rtc.halted {
		m.rtc.haltedSecs = newSecs
	} else {
		m.rtc.zeroRefUnix = now - newSecs
	}
}

func (m *MBC3) RAM() []uint8 { return m.ram }
func (m *MBC3) LoadRAM(data []uint8) {
	if len(data) == len(m.ram) {
		copy(m.ram, data)
	}
}

// RTCDump returns the serialized RTC state, for inclusion alongside the RAM
// image in save files. Cartridges without an RTC return 0.
func (m *MBC3) RTCDump() uint64 {
	if !m.hasRTC {
		return 0
	}
	return m.rtc.dump()
}

// RTCRestore rebuilds RTC state from a value produced by RTCDump.
func (m *MBC3) RTCRestore(val uint64) {
	if m.hasRTC {
		m.rtc = rtcFromDump(val)
	}
}

// MBC5 is the most advanced MBC chip. Features include:
// - Supports up to 8MB ROM (512 16KB banks)
// - Up to 128KB RAM (16 8KB banks)
// - Simple ROM/RAM banking with no quirks (unlike MBC1)
// - 9-bit ROM bank number (allows all 512 banks to be directly accessed)
// - Optional rumble motor support
// - Used in Game Boy Color games that needed more ROM/RAM
// - Backwards compatible with Game Boy
type MBC5 struct {
	rom          []uint8
	ram          []uint8
	romBankCount uint16
	romBank      uint16 // MBC5 supports up to 512 ROM banks
	ramBank      uint8
	ramEnabled   bool
	hasRumble    bool
}

// NewMBC5 creates a new MBC5 controller
func NewMBC5(romData []uint8, hasRumble bool, ramBankCount uint8) *MBC5 {
	ramSize := uint32(ramBankCount) * ramBankSize
	return &MBC5{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		romBankCount: romBanks(romData),
		romBank:      1,
		hasRumble:    hasRumble,
	}
}

func (m *MBC5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := m.romBank & (m.romBankCount - 1)
		offset := uint32(bank) * 0x4000
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * ramBankSize
		return m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC5) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x2FFF:
		m.romBank = (m.romBank &^ 0x00FF) | uint16(value)
	case addr >= 0x3000 && addr <= 0x3FFF:
		m.romBank = (m.romBank &^ 0x0100) | (uint16(value&0x01) << 8)
	case addr >= 0x4000 && addr <= 0x5FFF:
		// The rumble motor is wired to bit 3 on cartridges that carry
		// one; only the low 4 bits select a RAM bank.
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank) * ramBankSize
		m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))] = value
	}
	return value
}

func (m *MBC5) RAM() []uint8 { return m.ram }
func (m *MBC5) LoadRAM(data []uint8) {
	if len(data) == len(m.ram) {
		copy(m.ram, data)
	}
}

// Camera is the Game Boy Camera mapper: an MBC1-like ROM/RAM banking scheme
// with a fixed 256-byte captured-image window mapped into RAM bank 0 at
// [0x100, 0x1000). Register writes beyond the image window behave like
// ordinary cartridge RAM.
type Camera struct {
	rom          []uint8
	ram          []uint8
	image        []uint8
	romBankCount uint16
	romBank      uint8
	ramBank      uint8
	ramEnabled   bool
}

// NewCamera creates a new Game Boy Camera controller. image is the captured
// frame exposed at RAM offsets [0x100, 0x1000); pass nil to present a blank
// (0xFF) sensor image.
func NewCamera(romData []uint8, ramBankCount uint8, image []uint8) *Camera {
	ramSize := uint32(ramBankCount) * ramBankSize
	return &Camera{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		image:        image,
		romBankCount: romBanks(romData),
		romBank:      1,
	}
}

const (
	cameraImageStart = 0x100
	cameraImageEnd   = 0x1000
)

func (m *Camera) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := uint32(m.romBank) & uint32(m.romBankCount-1)
		offset := bank * 0x4000
		return m.rom[offset+uint32(addr-0x4000)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank)*ramBankSize + uint32(addr-0xA000)
		if offset >= cameraImageStart && offset < cameraImageEnd {
			idx := offset - cameraImageStart
			if int(idx) < len(m.image) {
				return m.image[idx]
			}
			return 0xFF
		}
		return m.ram[offset%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *Camera) Write(addr uint16, value uint8) uint8 {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = true
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.ramBank = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := uint32(m.ramBank)*ramBankSize + uint32(addr-0xA000)
		m.ram[offset%uint32(len(m.ram))] = value
	}
	return value
}

func (m *Camera) RAM() []uint8 { return m.ram }
func (m *Camera) LoadRAM(data []uint8) {
	if len(data) == len(m.ram) {
		copy(m.ram, data)
	}
}
