package flash

import (
	"fmt"

	"github.com/joshuapare/flashkit/internal/format"
)

// Geometry describes the fixed layout of a chip.
type Geometry struct {
	ByteCount uint32 // total capacity in bytes
	PageSize  uint32 // largest single program burst
	BlockSize uint32 // smallest erase unit
}

// Validate checks that the geometry describes a usable chip: non-zero sizes,
// pages that tile blocks, blocks that tile the chip, and room for the
// directory block plus at least one data block.
func (g Geometry) Validate() error {
	switch {
	case g.ByteCount == 0 || g.PageSize == 0 || g.BlockSize == 0:
		return fmt.Errorf("%w: zero size in %+v", ErrInvalidGeometry, g)
	case g.BlockSize%g.PageSize != 0:
		return fmt.Errorf("%w: block size %d not a multiple of page size %d",
			ErrInvalidGeometry, g.BlockSize, g.PageSize)
	case g.ByteCount%g.BlockSize != 0:
		return fmt.Errorf("%w: byte count %d not a multiple of block size %d",
			ErrInvalidGeometry, g.ByteCount, g.BlockSize)
	case g.BlockSize%format.SlotSize != 0:
		return fmt.Errorf("%w: block size %d cannot hold whole directory slots",
			ErrInvalidGeometry, g.BlockSize)
	case g.ByteCount/g.BlockSize < 2:
		return fmt.Errorf("%w: need at least two blocks, have %d",
			ErrInvalidGeometry, g.ByteCount/g.BlockSize)
	}
	return nil
}

// Blocks returns the number of erase blocks on the chip.
func (g Geometry) Blocks() uint32 {
	if g.BlockSize == 0 {
		return 0
	}
	return g.ByteCount / g.BlockSize
}

// Device is a raw flash chip.
type Device interface {
	// Geometry returns the chip's fixed layout.
	Geometry() Geometry

	// Read fills p from addr and returns the bytes read. Reads are truncated at
	// the end of the chip; an addr at or beyond ByteCount reads nothing and
	// returns ErrAddressOutOfRange.
	Read(addr uint32, p []byte) (int, error)

	// Write programs p at addr and returns the bytes written. The target bytes
	// must be erased. Implementations segment writes at page boundaries.
	Write(addr uint32, p []byte) (int, error)

	// Erase erases [addr, addr+size) one block at a time. Both values must be
	// block aligned. On failure it stops and returns the bytes erased so far.
	Erase(addr, size uint32) (uint32, error)
}

// StatusReader is implemented by chips that expose a busy flag and a write
// enable latch.
type StatusReader interface {
	// Busy reports whether an erase or program is still in progress.
	Busy() (bool, error)

	// WriteEnable sets the write enable latch and reports whether it took.
	WriteEnable() (bool, error)
}

// EraseUnit selects one of the erase granularities a chip family offers.
type EraseUnit uint8

const (
	// ErasePage erases a single page (AT45 only).
	ErasePage EraseUnit = iota
	// Erase4K erases a 4 KiB block.
	Erase4K
	// Erase32K erases a 32 KiB block.
	Erase32K
	// Erase64K erases a 64 KiB block (a sector on AT45 parts).
	Erase64K
)

// Size returns the unit size in bytes for a chip with the given page size.
func (u EraseUnit) Size(pageSize uint32) uint32 {
	switch u {
	case ErasePage:
		return pageSize
	case Erase4K:
		return 4 << 10
	case Erase32K:
		return 32 << 10
	case Erase64K:
		return 64 << 10
	default:
		return 0
	}
}

func (u EraseUnit) String() string {
	switch u {
	case ErasePage:
		return "page"
	case Erase4K:
		return "4K"
	case Erase32K:
		return "32K"
	case Erase64K:
		return "64K"
	default:
		return fmt.Sprintf("EraseUnit(%d)", uint8(u))
	}
}

// UnitEraser is implemented by chips offering more than one erase size.
type UnitEraser interface {
	EraseUnit(addr uint32, u EraseUnit) error
}

// JEDECID is the manufacturer and device identification returned by command 0x9F.
type JEDECID struct {
	Manufacturer byte
	Device1      byte
	Device2      byte
	ExtLength    byte
}

// Capacity decodes the density field shared by Adesto/Atmel parts: the low
// five bits of Device1 give log2(bytes) - 15.
func (id JEDECID) Capacity() uint32 {
	shift := 15 + uint(id.Device1&0x1F)
	if shift >= 32 {
		return 0
	}
	return uint32(1) << shift
}

func (id JEDECID) String() string {
	return fmt.Sprintf("%02X %02X %02X", id.Manufacturer, id.Device1, id.Device2)
}
