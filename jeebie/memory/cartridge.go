package memory

import (
	"fmt"
	"os"

	"github.com/valerio/go-jeebie/jeebie/util"
)

const titleLength = 11

const (
	entryPointAddress       = 0x100
	logoAddress             = 0x104
	titleAddress            = 0x134
	manufacturerCodeAddress = 0x13F
	cgbFlagAddress          = 0x143
	newLicenseCodeAddress   = 0x144
	sgbFlagAddress          = 0x146
	cartridgeTypeAddress    = 0x147
	romSizeAddress          = 0x148
	ramSizeAddress          = 0x149
	destinationCodeAddress  = 0x14A
	oldLicenseCodeAddress   = 0x14B
	versionNumberAddress    = 0x14C
	headerChecksumAddress   = 0x14D
	globalChecksumAddress   = 0x14E

	ramBankSize = 0x2000
)

// MBCType identifies which memory bank controller family a cartridge uses.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	CameraType
	MBCUnknownType
)

// LoadError reports a cartridge that could not be parsed: unreadable, too
// short to hold a header, or carrying a cartridge type byte we don't know.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cartridge load error: %s", e.Reason)
}

// SaveError reports a failure persisting or restoring battery-backed RAM.
// It is always logged, never propagated as a fatal condition: the emulator
// keeps running with whatever RAM image it already has in memory.
type SaveError struct {
	Reason string
	Err    error
}

func (e *SaveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("save error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("save error: %s", e.Reason)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Cartridge holds ROM data and the metadata decoded from its header: mapper
// kind, RAM size, and whether it carries a battery, RTC or rumble motor.
// Bank switching itself is delegated to the MBC built from this metadata.
type Cartridge struct {
	data           []byte
	title          string
	headerChecksum uint16
	globalChecksum uint16
	version        uint8
	cartType       uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8

	savePath string
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x10000),
		mbcType: NoMBCType,
	}
}

// cartTypeInfo describes the mapper family and feature bits implied by a
// single cartridge type byte (address 0x147), per the standard cartridge
// header layout.
type cartTypeInfo struct {
	mbc       MBCType
	battery   bool
	rtc       bool
	rumble    bool
	ram       bool
}

var cartTypeTable = map[uint8]cartTypeInfo{
	0x00: {mbc: NoMBCType},
	0x08: {mbc: NoMBCType, ram: true},
	0x09: {mbc: NoMBCType, ram: true, battery: true},
	0x01: {mbc: MBC1Type},
	0x02: {mbc: MBC1Type, ram: true},
	0x03: {mbc: MBC1Type, ram: true, battery: true},
	0x05: {mbc: MBC2Type},
	0x06: {mbc: MBC2Type, battery: true},
	0x0F: {mbc: MBC3Type, rtc: true, battery: true},
	0x10: {mbc: MBC3Type, rtc: true, ram: true, battery: true},
	0x11: {mbc: MBC3Type},
	0x12: {mbc: MBC3Type, ram: true},
	0x13: {mbc: MBC3Type, ram: true, battery: true},
	0x19: {mbc: MBC5Type},
	0x1A: {mbc: MBC5Type, ram: true},
	0x1B: {mbc: MBC5Type, ram: true, battery: true},
	0x1C: {mbc: MBC5Type, rumble: true},
	0x1D: {mbc: MBC5Type, rumble: true, ram: true},
	0x1E: {mbc: MBC5Type, rumble: true, ram: true, battery: true},
	0xFC: {mbc: CameraType, ram: true, battery: true},
}

// romBankCount returns the number of 16 KiB ROM banks for a given romSize
// header byte. Values follow the standard doubling table (2 << id, always a
// power of two, up to 512 banks or 8 MiB at id 0x08); codes above 0x08,
// including the non-doubling 0x52-0x54 variants, are rejected.
func romBankCount(id uint8) (int, error) {
	if id > 0x08 {
		return 0, &LoadError{Reason: fmt.Sprintf("unsupported ROM size code 0x%02x", id)}
	}
	return 2 << id, nil
}

// ramBankCountAndSize returns the number of 8 KiB RAM banks (and the size of
// each) implied by a ramSize header byte.
func ramBankCountAndSize(id uint8) (int, int, error) {
	switch id {
	case 0x00:
		return 0, 0, nil
	case 0x01:
		// Unofficial 2KiB bank, modeled as a single partial 8KiB bank.
		return 1, 2 * 1024, nil
	case 0x02:
		return 1, 8 * 1024, nil
	case 0x03:
		return 4, 8 * 1024, nil
	case 0x04:
		return 16, 8 * 1024, nil
	case 0x05:
		return 8, 8 * 1024, nil
	default:
		return 0, 0, &LoadError{Reason: fmt.Sprintf("unsupported RAM size code 0x%02x", id)}
	}
}

// NewCartridgeWithData initializes a new Cartridge from a slice of bytes.
// savePath, if non-empty, names the companion .sav file used to restore and
// later persist battery-backed RAM; pass "" for ROMs with no backing file.
func NewCartridgeWithData(bytes []byte, savePath string) (*Cartridge, error) {
	if len(bytes) < 2*0x4000 {
		return nil, &LoadError{Reason: "ROM data shorter than two 16KiB banks"}
	}

	cartType := bytes[cartridgeTypeAddress]
	info, ok := cartTypeTable[cartType]
	if !ok {
		return nil, &LoadError{Reason: fmt.Sprintf("unknown cartridge type 0x%02x", cartType)}
	}

	if _, err := romBankCount(bytes[romSizeAddress]); err != nil {
		return nil, err
	}

	ramBanks, _, err := ramBankCountAndSize(bytes[ramSizeAddress])
	if err != nil {
		return nil, err
	}
	if !info.ram {
		ramBanks = 0
	}

	titleBytes := bytes[titleAddress : titleAddress+titleLength]

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanTitle(titleBytes),
		headerChecksum: util.CombineBytes(bytes[headerChecksumAddress+1], bytes[headerChecksumAddress]),
		globalChecksum: util.CombineBytes(bytes[globalChecksumAddress+1], bytes[globalChecksumAddress]),
		version:        bytes[versionNumberAddress],
		cartType:       cartType,
		romSize:        bytes[romSizeAddress],
		ramSize:        bytes[ramSizeAddress],
		mbcType:        info.mbc,
		hasBattery:     info.battery,
		hasRTC:         info.rtc,
		hasRumble:      info.rumble,
		ramBankCount:   uint8(ramBanks),
		savePath:       savePath,
	}

	copy(cart.data, bytes)

	return cart, nil
}

func cleanTitle(raw []byte) string {
	end := len(raw)
	for i, b := range raw {
		if b == 0 {
			end = i
			break
		}
	}
	return string(raw[:end])
}

// Title returns the cartridge's header title.
func (c *Cartridge) Title() string { return c.title }

// MBCType reports the mapper family this cartridge declares.
func (c *Cartridge) MBCType() MBCType { return c.mbcType }

// RAMSize returns the total battery-backed RAM size in bytes.
func (c *Cartridge) RAMSize() int { return int(c.ramBankCount) * ramBankSize }

// LoadRAM restores a RAM image from the cartridge's save file, if one is
// configured and exists. A missing file or a zero-RAM cartridge is not an
// error; a size mismatch or an I/O failure is reported as a SaveError.
func (c *Cartridge) LoadRAM() ([]byte, error) {
	size := c.RAMSize()
	if size == 0 || c.savePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.savePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make([]byte, size), nil
		}
		return nil, &SaveError{Reason: "reading save file", Err: err}
	}

	if len(data) != size {
		return nil, &SaveError{Reason: fmt.Sprintf("save file size mismatch: expected %d got %d", size, len(data))}
	}

	return data, nil
}

// SaveRAM writes ram out to the cartridge's save file. Called on teardown;
// failures are reported to the caller to log, never panics.
func (c *Cartridge) SaveRAM(ram []byte) error {
	if c.savePath == "" || len(ram) == 0 {
		return nil
	}

	if err := os.WriteFile(c.savePath, ram, 0o644); err != nil {
		return &SaveError{Reason: "writing save file", Err: err}
	}

	return nil
}

// ReadByte reads a byte at the specified address. Does not check bounds, so the caller must make sure the
// address is valid for the cartridge.
func (c *Cartridge) ReadByte(addr uint16) uint8 {
	return c.data[addr]
}
