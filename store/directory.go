package store

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/internal/format"
)

// Directory is the on-chip slot table held in block 0.
type Directory struct {
	dev      flash.Device
	geo      flash.Geometry
	capacity int

	eraseCycles uint64
}

// NewDirectory binds a directory to dev.
func NewDirectory(dev flash.Device) (*Directory, error) {
	if dev == nil {
		return nil, ErrNotInitialized
	}
	geo := dev.Geometry()
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	capacity, err := format.Capacity(geo.BlockSize)
	if err != nil {
		return nil, err
	}
	return &Directory{dev: dev, geo: geo, capacity: capacity}, nil
}

// Capacity returns the number of slots, one more than the largest store id.
func (d *Directory) Capacity() int { return d.capacity }

// EraseCycles returns how many times the directory block has been erased and
// rewritten through this Directory.
func (d *Directory) EraseCycles() uint64 { return d.eraseCycles }

func (d *Directory) readBlock() ([]byte, error) {
	block := make([]byte, d.geo.BlockSize)
	n, err := d.dev.Read(format.DirectoryBlock, block)
	if err != nil {
		return nil, fmt.Errorf("store: read directory: %w", err)
	}
	if n != len(block) {
		return nil, fmt.Errorf("store: read directory: short read %d of %d bytes", n, len(block))
	}
	return block, nil
}

// Scan reads the directory block and returns every assigned slot in id order.
func (d *Directory) Scan() ([]format.Entry, error) {
	block, err := d.readBlock()
	if err != nil {
		return nil, err
	}
	return format.ParseDirectory(block), nil
}

// Slot reads a single slot.
func (d *Directory) Slot(id uint32) (format.Slot, error) {
	if err := d.checkID(id); err != nil {
		return format.Slot{}, err
	}
	var buf [format.SlotSize]byte
	if _, err := d.dev.Read(format.SlotOffset(id), buf[:]); err != nil {
		return format.Slot{}, fmt.Errorf("store: read slot %d: %w", id, err)
	}
	return format.DecodeSlot(buf[:])
}

func (d *Directory) checkID(id uint32) error {
	if int64(id) >= int64(d.capacity) {
		return fmt.Errorf("%w: %d >= %d", ErrInvalidID, id, d.capacity)
	}
	return nil
}

// Persist records s in slot id. The slot is programmed in place when that
// only clears bits; otherwise the directory block goes through an erase
// cycle.
func (d *Directory) Persist(id uint32, s format.Slot) error {
	if err := d.checkID(id); err != nil {
		return err
	}
	off := format.SlotOffset(id)
	want := s.Bytes()

	var have [format.SlotSize]byte
	if _, err := d.dev.Read(off, have[:]); err != nil {
		return fmt.Errorf("store: read slot %d: %w", id, err)
	}
	if bytes.Equal(have[:], want) {
		return nil
	}
	if flash.CanProgram(have[:], want) {
		if _, err := d.dev.Write(off, want); err != nil {
			return fmt.Errorf("store: program slot %d: %w", id, err)
		}
		return nil
	}
	return d.rewrite(off, want)
}

// Clear marks slot id free.
func (d *Directory) Clear(id uint32) error {
	return d.Persist(id, format.FreeSlot())
}

// rewrite erases the directory block and programs it back with the slot at
// off replaced by slot. Pages left fully erased are skipped.
func (d *Directory) rewrite(off uint32, slot []byte) error {
	block, err := d.readBlock()
	if err != nil {
		return err
	}
	copy(block[off:], slot)

	if _, err := d.dev.Erase(format.DirectoryBlock, d.geo.BlockSize); err != nil {
		return fmt.Errorf("store: erase directory: %w", err)
	}
	d.eraseCycles++

	for p := uint32(0); p < d.geo.BlockSize; p += d.geo.PageSize {
		page := block[p : p+d.geo.PageSize]
		if flash.IsErased(page) {
			continue
		}
		if _, err := d.dev.Write(p, page); err != nil {
			return fmt.Errorf("store: rewrite directory page 0x%X: %w", p, err)
		}
	}
	return nil
}
