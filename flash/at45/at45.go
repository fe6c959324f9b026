// Package at45 drives Adesto AT45DB321E DataFlash over SPI.
//
// DataFlash programs through two on-chip SRAM buffers. A write loads the
// target page into a buffer, patches the bytes being written, and programs
// the buffer back without erasing, so untouched bytes keep their value and
// written bytes follow NOR semantics. Consecutive pages alternate buffers so
// filling one overlaps with programming the other.
//
// The driver requires the binary 512-byte page configuration. Parts ship with
// 528-byte pages; ConfigureBinaryPages switches them permanently after a power
// cycle.
package at45

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/flash/spi"
	"github.com/joshuapare/flashkit/internal/logger"
)

const (
	opFastRead     = 0x0B
	opReadStatus   = 0xD7
	opReadID       = 0x9F
	opErasePage    = 0x81
	opEraseBlock   = 0x50
	opEraseSector  = 0x7C
	statusReady    = 0x80
	statusBinary   = 0x01
	statusEraseErr = 0x20 // in status byte 2
	familyMask     = 0xE0
	familyAT45     = 0x20
	sectorSize     = 64 << 10
)

// Buffer opcodes indexed by SRAM buffer.
var (
	opLoadBuffer    = [2]byte{0x53, 0x55}
	opWriteBuffer   = [2]byte{0x84, 0x87}
	opProgramBuffer = [2]byte{0x88, 0x89} // buffer to page, no built-in erase
)

var binaryPageSequence = []byte{0x3D, 0x2A, 0x80, 0xA6}

const (
	// Manufacturer is the Adesto/Atmel JEDEC manufacturer code.
	Manufacturer = 0x1F

	PageSize  = 512
	BlockSize = 4096
)

// ErrPageSize is returned by Probe when the part still uses 528-byte pages.
var ErrPageSize = errors.New("at45: chip not configured for 512-byte pages")

// Chip is an AT45DB321E on an SPI bus.
type Chip struct {
	bus  spi.Bus
	id   flash.JEDECID
	geo  flash.Geometry
	poll flash.PollOptions
	ctx  context.Context
	buf  int // SRAM buffer used by the next page
}

// Option configures Probe.
type Option func(*Chip)

// WithPollOptions bounds busy waits.
func WithPollOptions(p flash.PollOptions) Option {
	return func(c *Chip) { c.poll = p }
}

// WithContext cancels busy waits when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(c *Chip) { c.ctx = ctx }
}

func newChip(bus spi.Bus, opts []Option) *Chip {
	c := &Chip{bus: bus, ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe reads the JEDEC ID, checks manufacturer and family, and requires the
// binary page configuration.
func Probe(bus spi.Bus, opts ...Option) (*Chip, error) {
	c := newChip(bus, opts)

	id, err := c.ReadID()
	if err != nil {
		return nil, err
	}
	if id.Manufacturer != Manufacturer {
		return nil, fmt.Errorf("%w: manufacturer 0x%02X, want 0x%02X", flash.ErrUnknownChip, id.Manufacturer, Manufacturer)
	}
	if id.Device1&familyMask != familyAT45 {
		return nil, fmt.Errorf("%w: device id 0x%02X is not an AT45D part", flash.ErrUnknownChip, id.Device1)
	}
	s, _, err := c.status()
	if err != nil {
		return nil, err
	}
	if s&statusBinary == 0 {
		return nil, ErrPageSize
	}

	c.id = id
	c.geo = flash.Geometry{ByteCount: id.Capacity(), PageSize: PageSize, BlockSize: BlockSize}
	if err := c.geo.Validate(); err != nil {
		return nil, fmt.Errorf("at45: id %s: %w", id, err)
	}
	logger.Debug("at45 probed", "id", id.String(), "bytes", c.geo.ByteCount)
	return c, nil
}

// ConfigureBinaryPages programs the one-time page size configuration. The
// change takes effect after the part is power cycled.
func ConfigureBinaryPages(bus spi.Bus, opts ...Option) error {
	c := newChip(bus, opts)
	if err := c.wait(); err != nil {
		return err
	}
	if err := bus.Tx(binaryPageSequence, nil); err != nil {
		return fmt.Errorf("at45: configure page size: %w", err)
	}
	return c.wait()
}

// ID returns the identification read by Probe.
func (c *Chip) ID() flash.JEDECID { return c.id }

func (c *Chip) Geometry() flash.Geometry { return c.geo }

// ReadID issues the JEDEC ID command.
func (c *Chip) ReadID() (flash.JEDECID, error) {
	var r [4]byte
	if err := c.bus.Tx([]byte{opReadID}, r[:]); err != nil {
		return flash.JEDECID{}, fmt.Errorf("at45: read id: %w", err)
	}
	return flash.JEDECID{Manufacturer: r[0], Device1: r[1], Device2: r[2], ExtLength: r[3]}, nil
}

func (c *Chip) status() (byte, byte, error) {
	var r [2]byte
	if err := c.bus.Tx([]byte{opReadStatus}, r[:]); err != nil {
		return 0, 0, fmt.Errorf("at45: read status: %w", err)
	}
	return r[0], r[1], nil
}

// Status returns both status register bytes, byte 1 in the high half.
func (c *Chip) Status() (uint16, error) {
	s0, s1, err := c.status()
	return uint16(s0)<<8 | uint16(s1), err
}

// Busy reports whether the array is busy.
func (c *Chip) Busy() (bool, error) {
	s, _, err := c.status()
	return s&statusReady == 0, err
}

// WriteEnable always succeeds; DataFlash has no write enable latch.
func (c *Chip) WriteEnable() (bool, error) { return true, nil }

func (c *Chip) wait() error {
	return flash.WaitReady(c.ctx, c, c.poll)
}

// settle waits for the array and reports a failed program or erase.
func (c *Chip) settle(failed error, addr uint32) error {
	if err := c.wait(); err != nil {
		return err
	}
	_, s1, err := c.status()
	if err != nil {
		return err
	}
	if s1&statusEraseErr != 0 {
		return fmt.Errorf("%w at 0x%06X", failed, addr)
	}
	return nil
}

func (c *Chip) bounds(addr uint32, n int) (int, error) {
	if addr >= c.geo.ByteCount {
		return 0, fmt.Errorf("%w: 0x%X >= 0x%X", flash.ErrAddressOutOfRange, addr, c.geo.ByteCount)
	}
	if room := int(c.geo.ByteCount - addr); n > room {
		return room, fmt.Errorf("%w: 0x%X+%d crosses chip end", flash.ErrAddressOutOfRange, addr, n)
	}
	return n, nil
}

// Read uses Continuous Array Read (0x0B plus one dummy byte).
func (c *Chip) Read(addr uint32, p []byte) (int, error) {
	n, rangeErr := c.bounds(addr, len(p))
	if n == 0 {
		return 0, rangeErr
	}
	if err := c.wait(); err != nil {
		return 0, err
	}
	for off := 0; off < n; off += spi.MaxTransfer {
		end := min(off+spi.MaxTransfer, n)
		a := addr + uint32(off)
		if err := c.bus.Tx(spi.Header(opFastRead, a, 0x00), p[off:end]); err != nil {
			return off, fmt.Errorf("at45: read 0x%06X: %w", a, err)
		}
	}
	return n, rangeErr
}

// Write programs p through the SRAM buffers. Partial pages are loaded from
// the array first; full pages are written straight into the idle buffer while
// the previous page programs.
func (c *Chip) Write(addr uint32, p []byte) (int, error) {
	n, rangeErr := c.bounds(addr, len(p))
	if n == 0 {
		return 0, rangeErr
	}

	var (
		issued   bool
		written  int
		pending  int
		lastPage uint32
	)
	// confirm waits for the previous page program and counts it as written.
	confirm := func() error {
		if !issued {
			return c.wait()
		}
		if err := c.settle(flash.ErrProgramFailed, lastPage); err != nil {
			return err
		}
		written = pending
		return nil
	}

	err := flash.ForEachPage(PageSize, addr, n, func(a uint32, lo, hi int) error {
		page := a - a%PageSize
		if hi-lo < PageSize {
			if err := confirm(); err != nil {
				return err
			}
			if err := c.bus.Tx(spi.Header(opLoadBuffer[c.buf], page), nil); err != nil {
				return fmt.Errorf("at45: load page 0x%06X: %w", page, err)
			}
			if err := c.wait(); err != nil {
				return err
			}
		}
		if err := c.bus.Tx(spi.Header(opWriteBuffer[c.buf], a%PageSize, p[lo:hi]...), nil); err != nil {
			return fmt.Errorf("at45: fill buffer %d: %w", c.buf+1, err)
		}
		if err := confirm(); err != nil {
			return err
		}
		if err := c.bus.Tx(spi.Header(opProgramBuffer[c.buf], page), nil); err != nil {
			return fmt.Errorf("at45: program page 0x%06X: %w", page, err)
		}
		issued, pending, lastPage = true, hi, page
		c.buf ^= 1
		return nil
	})
	if err == nil {
		err = confirm()
	}
	if err != nil {
		return written, err
	}
	return written, rangeErr
}

func (c *Chip) Erase(addr, size uint32) (uint32, error) {
	return flash.EraseBlocks(c, c.geo, addr, size)
}

// EraseBlock erases the 4 KiB block at addr.
func (c *Chip) EraseBlock(addr uint32) error {
	return c.EraseUnit(addr, flash.Erase4K)
}

// EraseUnit erases a page, a 4 KiB block or a 64 KiB sector. Sector 0 is
// split on this part and is rejected for sector erase.
func (c *Chip) EraseUnit(addr uint32, u flash.EraseUnit) error {
	var op byte
	switch u {
	case flash.ErasePage:
		op = opErasePage
	case flash.Erase4K:
		op = opEraseBlock
	case flash.Erase64K:
		if addr < sectorSize {
			return fmt.Errorf("%w: sector 0 is split on AT45", flash.ErrUnsupported)
		}
		op = opEraseSector
	default:
		return fmt.Errorf("%w: %s erase on AT45", flash.ErrUnsupported, u)
	}
	size := u.Size(PageSize)
	if addr%size != 0 {
		return fmt.Errorf("%w: %s erase at 0x%X", flash.ErrMisaligned, u, addr)
	}
	if addr >= c.geo.ByteCount {
		return fmt.Errorf("%w: erase at 0x%X", flash.ErrAddressOutOfRange, addr)
	}
	if err := c.wait(); err != nil {
		return err
	}
	if err := c.bus.Tx(spi.Header(op, addr), nil); err != nil {
		return fmt.Errorf("at45: erase 0x%06X: %w", addr, err)
	}
	return c.settle(flash.ErrEraseFailed, addr)
}

var (
	_ flash.Device       = (*Chip)(nil)
	_ flash.StatusReader = (*Chip)(nil)
	_ flash.UnitEraser   = (*Chip)(nil)
	_ flash.BlockEraser  = (*Chip)(nil)
)
