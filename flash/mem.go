package flash

import (
	"bytes"
	"fmt"
)

// DirtyTracker receives the byte ranges a device modifies. It matches the
// tracker used by flash/image to decide what to flush.
type DirtyTracker interface {
	Add(off, length int)
}

// MemStats counts operations performed on a MemDevice.
type MemStats struct {
	Reads        uint64
	Writes       uint64
	BytesWritten uint64
	BlockErases  uint64
}

// MemDevice is a NOR chip held in a byte slice. Programming ANDs the new
// bytes into the array, erase fills blocks with 0xFF. It is used by tests, by
// flash/image over a mapped file, and by the SPI emulator.
type MemDevice struct {
	geo     Geometry
	data    []byte
	strict  bool
	tracker DirtyTracker

	failErase   map[uint32]struct{}
	eraseCounts []uint32
	stats       MemStats
}

// MemOption configures a MemDevice.
type MemOption func(*MemDevice)

// WithStrictProgram makes Write reject programs that would need an erase
// with ErrNotErased instead of silently ANDing the bits.
func WithStrictProgram() MemOption {
	return func(d *MemDevice) { d.strict = true }
}

// WithDirtyTracker reports every modified range to t.
func WithDirtyTracker(t DirtyTracker) MemOption {
	return func(d *MemDevice) { d.tracker = t }
}

// NewMem returns a fully erased in-memory chip.
func NewMem(g Geometry, opts ...MemOption) (*MemDevice, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return NewMemOver(g, bytes.Repeat([]byte{0xFF}, int(g.ByteCount)), opts...)
}

// NewMemOver wraps an existing chip image without copying it. len(data) must
// equal the geometry's byte count.
func NewMemOver(g Geometry, data []byte, opts ...MemOption) (*MemDevice, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if uint64(len(data)) != uint64(g.ByteCount) {
		return nil, fmt.Errorf("%w: image is %d bytes, geometry wants %d",
			ErrInvalidGeometry, len(data), g.ByteCount)
	}
	d := &MemDevice{
		geo:         g,
		data:        data,
		failErase:   make(map[uint32]struct{}),
		eraseCounts: make([]uint32, g.Blocks()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *MemDevice) Geometry() Geometry { return d.geo }

// Bytes exposes the backing array. Callers must not retain it across writes
// if they expect a snapshot.
func (d *MemDevice) Bytes() []byte { return d.data }

// Stats returns the operation counters.
func (d *MemDevice) Stats() MemStats { return d.stats }

// EraseCount returns how many times the block containing addr was erased.
func (d *MemDevice) EraseCount(addr uint32) uint32 {
	i := addr / d.geo.BlockSize
	if int(i) >= len(d.eraseCounts) {
		return 0
	}
	return d.eraseCounts[i]
}

// FailEraseAt makes the next erases of the block at addr fail until ClearFaults.
func (d *MemDevice) FailEraseAt(addr uint32) {
	d.failErase[addr-addr%d.geo.BlockSize] = struct{}{}
}

// ClearFaults removes all injected faults.
func (d *MemDevice) ClearFaults() {
	clear(d.failErase)
}

func (d *MemDevice) span(addr uint32, n int) (int, error) {
	if addr >= d.geo.ByteCount {
		return 0, fmt.Errorf("%w: 0x%X >= 0x%X", ErrAddressOutOfRange, addr, d.geo.ByteCount)
	}
	room := int(d.geo.ByteCount - addr)
	if n > room {
		return room, fmt.Errorf("%w: 0x%X+%d crosses chip end", ErrAddressOutOfRange, addr, n)
	}
	return n, nil
}

func (d *MemDevice) Read(addr uint32, p []byte) (int, error) {
	n, err := d.span(addr, len(p))
	if n == 0 {
		return 0, err
	}
	d.stats.Reads++
	copy(p[:n], d.data[addr:])
	return n, err
}

func (d *MemDevice) Write(addr uint32, p []byte) (int, error) {
	n, err := d.span(addr, len(p))
	if n == 0 {
		return 0, err
	}
	dst := d.data[addr : addr+uint32(n)]
	if d.strict && !CanProgram(dst, p[:n]) {
		return 0, fmt.Errorf("%w: program at 0x%X", ErrNotErased, addr)
	}
	for i := range dst {
		dst[i] &= p[i]
	}
	d.stats.Writes++
	d.stats.BytesWritten += uint64(n)
	if d.tracker != nil {
		d.tracker.Add(int(addr), n)
	}
	return n, err
}

func (d *MemDevice) Erase(addr, size uint32) (uint32, error) {
	return EraseBlocks(d, d.geo, addr, size)
}

// EraseBlock erases the single block at addr.
func (d *MemDevice) EraseBlock(addr uint32) error {
	if addr%d.geo.BlockSize != 0 {
		return ErrMisaligned
	}
	if addr >= d.geo.ByteCount {
		return ErrAddressOutOfRange
	}
	if _, fail := d.failErase[addr]; fail {
		return ErrEraseFailed
	}
	blk := d.data[addr : addr+d.geo.BlockSize]
	for i := range blk {
		blk[i] = 0xFF
	}
	d.eraseCounts[addr/d.geo.BlockSize]++
	d.stats.BlockErases++
	if d.tracker != nil {
		d.tracker.Add(int(addr), int(d.geo.BlockSize))
	}
	return nil
}

// EraseUnit erases one unit of u bytes. Units smaller than the block size are
// not supported by a MemDevice.
func (d *MemDevice) EraseUnit(addr uint32, u EraseUnit) error {
	size := u.Size(d.geo.PageSize)
	if size == 0 || size%d.geo.BlockSize != 0 {
		return fmt.Errorf("%w: %s erase on %d-byte blocks", ErrUnsupported, u, d.geo.BlockSize)
	}
	if addr%size != 0 {
		return fmt.Errorf("%w: %s erase at 0x%X", ErrMisaligned, u, addr)
	}
	_, err := d.Erase(addr, size)
	return err
}

var (
	_ Device      = (*MemDevice)(nil)
	_ BlockEraser = (*MemDevice)(nil)
	_ UnitEraser  = (*MemDevice)(nil)
)
