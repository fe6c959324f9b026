// Package at25 drives Adesto AT25DF641A serial NOR flash over SPI.
//
// The part uses 256-byte program pages and 4/32/64 KiB erase blocks. Every
// program or erase is preceded by Write Enable, and the driver waits for the
// busy flag to clear after each one, so a Chip presents the synchronous
// flash.Device contract.
package at25

import (
	"context"
	"fmt"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/flash/spi"
	"github.com/joshuapare/flashkit/internal/logger"
)

const (
	opWriteStatus     = 0x01
	opProgram         = 0x02
	opFastRead        = 0x0B
	opWriteDisable    = 0x04
	opReadStatus      = 0x05
	opWriteEnable     = 0x06
	opErase4K         = 0x20
	opErase32K        = 0x52
	opErase64K        = 0xD8
	opReadID          = 0x9F
	opReadProtection  = 0x3C
	globalUnprotect   = 0x00
	globalProtect     = 0x3C
	statusBusy        = 0x01
	statusWriteEnable = 0x02
	statusProgramErr  = 0x20
)

const (
	// Manufacturer is the Adesto/Atmel JEDEC manufacturer code.
	Manufacturer = 0x1F

	PageSize  = 256
	BlockSize = 4096
)

// Chip is an AT25DF641A on an SPI bus.
type Chip struct {
	bus  spi.Bus
	id   flash.JEDECID
	geo  flash.Geometry
	poll flash.PollOptions
	ctx  context.Context
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

// Probe reads the JEDEC ID, checks the manufacturer and sizes the chip from
// the density field.
func Probe(bus spi.Bus, opts ...Option) (*Chip, error) {
	c := &Chip{bus: bus, ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}

	id, err := c.ReadID()
	if err != nil {
		return nil, err
	}
	if id.Manufacturer != Manufacturer {
		return nil, fmt.Errorf("%w: manufacturer 0x%02X, want 0x%02X", flash.ErrUnknownChip, id.Manufacturer, Manufacturer)
	}
	c.id = id
	c.geo = flash.Geometry{ByteCount: id.Capacity(), PageSize: PageSize, BlockSize: BlockSize}
	if err := c.geo.Validate(); err != nil {
		return nil, fmt.Errorf("at25: id %s: %w", id, err)
	}
	logger.Debug("at25 probed", "id", id.String(), "bytes", c.geo.ByteCount)
	return c, nil
}

// ID returns the identification read by Probe.
func (c *Chip) ID() flash.JEDECID { return c.id }

func (c *Chip) Geometry() flash.Geometry { return c.geo }

// ReadID issues the JEDEC ID command.
func (c *Chip) ReadID() (flash.JEDECID, error) {
	var r [4]byte
	if err := c.bus.Tx([]byte{opReadID}, r[:]); err != nil {
		return flash.JEDECID{}, fmt.Errorf("at25: read id: %w", err)
	}
	return flash.JEDECID{Manufacturer: r[0], Device1: r[1], Device2: r[2], ExtLength: r[3]}, nil
}

// Status returns status register byte 1.
func (c *Chip) Status() (byte, error) {
	var r [2]byte
	if err := c.bus.Tx([]byte{opReadStatus}, r[:]); err != nil {
		return 0, fmt.Errorf("at25: read status: %w", err)
	}
	return r[0], nil
}

// Busy reports whether a program or erase is in progress.
func (c *Chip) Busy() (bool, error) {
	s, err := c.Status()
	return s&statusBusy != 0, err
}

// WriteEnable sets the write enable latch and reports whether it stuck.
func (c *Chip) WriteEnable() (bool, error) {
	if err := c.wait(); err != nil {
		return false, err
	}
	if err := c.bus.Tx([]byte{opWriteEnable}, nil); err != nil {
		return false, fmt.Errorf("at25: write enable: %w", err)
	}
	s, err := c.Status()
	return s&statusWriteEnable != 0, err
}

// WriteDisable clears the write enable latch.
func (c *Chip) WriteDisable() error {
	if err := c.bus.Tx([]byte{opWriteDisable}, nil); err != nil {
		return fmt.Errorf("at25: write disable: %w", err)
	}
	return nil
}

func (c *Chip) wait() error {
	return flash.WaitReady(c.ctx, c, c.poll)
}

func (c *Chip) enable() error {
	ok, err := c.WriteEnable()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: write enable latch not set", flash.ErrWriteProtected)
	}
	return nil
}

// finish waits for the current operation and checks the error flag.
func (c *Chip) finish(failed error, addr uint32) error {
	if err := c.wait(); err != nil {
		return err
	}
	s, err := c.Status()
	if err != nil {
		return err
	}
	if s&statusProgramErr != 0 {
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

// Read uses Fast Read (opcode 0x0B plus one dummy byte), split into
// spidev-sized transfers.
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
			return off, fmt.Errorf("at25: read 0x%06X: %w", a, err)
		}
	}
	return n, rangeErr
}

// Write programs p one page segment at a time.
func (c *Chip) Write(addr uint32, p []byte) (int, error) {
	n, rangeErr := c.bounds(addr, len(p))
	if n == 0 {
		return 0, rangeErr
	}
	written := 0
	err := flash.ForEachPage(PageSize, addr, n, func(a uint32, lo, hi int) error {
		if err := c.enable(); err != nil {
			return err
		}
		if err := c.bus.Tx(spi.Header(opProgram, a, p[lo:hi]...), nil); err != nil {
			return fmt.Errorf("at25: program 0x%06X: %w", a, err)
		}
		if err := c.finish(flash.ErrProgramFailed, a); err != nil {
			return err
		}
		written = hi
		return nil
	})
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

// EraseUnit erases a 4, 32 or 64 KiB block. Page erase is not available on
// this part.
func (c *Chip) EraseUnit(addr uint32, u flash.EraseUnit) error {
	var op byte
	switch u {
	case flash.Erase4K:
		op = opErase4K
	case flash.Erase32K:
		op = opErase32K
	case flash.Erase64K:
		op = opErase64K
	default:
		return fmt.Errorf("%w: %s erase on AT25", flash.ErrUnsupported, u)
	}
	size := u.Size(PageSize)
	if addr%size != 0 {
		return fmt.Errorf("%w: %s erase at 0x%X", flash.ErrMisaligned, u, addr)
	}
	if addr >= c.geo.ByteCount {
		return fmt.Errorf("%w: erase at 0x%X", flash.ErrAddressOutOfRange, addr)
	}
	if err := c.enable(); err != nil {
		return err
	}
	if err := c.bus.Tx(spi.Header(op, addr), nil); err != nil {
		return fmt.Errorf("at25: erase 0x%06X: %w", addr, err)
	}
	return c.finish(flash.ErrEraseFailed, addr)
}

// SectorProtected reads the protection register of the sector holding addr.
func (c *Chip) SectorProtected(addr uint32) (bool, error) {
	if addr >= c.geo.ByteCount {
		return false, fmt.Errorf("%w: 0x%X", flash.ErrAddressOutOfRange, addr)
	}
	var r [1]byte
	if err := c.bus.Tx(spi.Header(opReadProtection, addr), r[:]); err != nil {
		return false, fmt.Errorf("at25: read protection 0x%06X: %w", addr, err)
	}
	return r[0] == 0xFF, nil
}

// Protect sets global protection on every sector.
func (c *Chip) Protect() error { return c.writeStatus(globalProtect) }

// Unprotect clears global protection. Parts power up protected.
func (c *Chip) Unprotect() error { return c.writeStatus(globalUnprotect) }

func (c *Chip) writeStatus(v byte) error {
	if err := c.enable(); err != nil {
		return err
	}
	if err := c.bus.Tx([]byte{opWriteStatus, v}, nil); err != nil {
		return fmt.Errorf("at25: write status: %w", err)
	}
	return c.wait()
}

var (
	_ flash.Device       = (*Chip)(nil)
	_ flash.StatusReader = (*Chip)(nil)
	_ flash.UnitEraser   = (*Chip)(nil)
	_ flash.BlockEraser  = (*Chip)(nil)
)
