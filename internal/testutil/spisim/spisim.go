// Package spisim emulates the SPI command sets of the supported serial flash
// parts so chip drivers can be tested without hardware.
//
// The emulator keeps its own memory array with NOR semantics, a write enable
// latch, a busy countdown measured in status polls, and for AT45 parts the two
// SRAM buffers. Every transaction is appended to a command log, and commands
// issued while the chip is busy are counted as violations.
package spisim

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/flashkit/internal/format"
)

// Family selects the command set.
type Family int

const (
	AT25 Family = iota
	AT45
)

func (f Family) String() string {
	switch f {
	case AT25:
		return "AT25"
	case AT45:
		return "AT45"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Command is one logged transaction.
type Command struct {
	Op   byte
	Addr uint32
	N    int // payload or read length
}

// Chip is an emulated flash part. It implements spi.Bus.
type Chip struct {
	family   Family
	id       [4]byte
	mem      []byte
	pageSize int

	// BusyPolls is how many status reads report busy after a program or
	// erase. Zero completes operations instantly.
	BusyPolls int

	busy       int
	busyBuf    int
	wel        bool
	epe        bool
	protected  bool
	binary     bool
	pendingBin bool
	buffers    [2][]byte
	failErase  map[uint32]bool
	log        []Command
	violations int
}

// NewAT25DF641A returns an erased, unprotected 8 MiB AT25DF641A.
func NewAT25DF641A() *Chip {
	return newChip(AT25, [4]byte{0x1F, 0x48, 0x00, 0x00}, 8<<20, 256)
}

// NewAT45DB321E returns an erased 4 MiB AT45DB321E already configured for
// binary (512-byte) pages.
func NewAT45DB321E() *Chip {
	c := newChip(AT45, [4]byte{0x1F, 0x27, 0x01, 0x01}, 4<<20, 512)
	c.binary = true
	return c
}

// New returns a chip of the given family with an arbitrary ID and size. It is
// used to exercise ID checks.
func New(f Family, id [4]byte, size, pageSize int) *Chip {
	return newChip(f, id, size, pageSize)
}

func newChip(f Family, id [4]byte, size, pageSize int) *Chip {
	c := &Chip{
		busyBuf:   -1,
		family:    f,
		id:        id,
		mem:       bytes.Repeat([]byte{0xFF}, size),
		pageSize:  pageSize,
		failErase: make(map[uint32]bool),
	}
	for i := range c.buffers {
		c.buffers[i] = bytes.Repeat([]byte{0xFF}, pageSize)
	}
	return c
}

// Bytes exposes the memory array.
func (c *Chip) Bytes() []byte { return c.mem }

// Log returns the transactions seen so far.
func (c *Chip) Log() []Command { return append([]Command(nil), c.log...) }

// ResetLog clears the command log.
func (c *Chip) ResetLog() { c.log = c.log[:0] }

// Ops returns just the opcodes of the logged transactions.
func (c *Chip) Ops() []byte {
	ops := make([]byte, len(c.log))
	for i, cmd := range c.log {
		ops[i] = cmd.Op
	}
	return ops
}

// Violations counts non-status commands received while busy.
func (c *Chip) Violations() int { return c.violations }

// Protected reports the global protection state.
func (c *Chip) Protected() bool { return c.protected }

// SetProtected changes the global protection state directly.
func (c *Chip) SetProtected(p bool) { c.protected = p }

// SetBinaryPages changes the AT45 page-size mode directly.
func (c *Chip) SetBinaryPages(b bool) { c.binary = b }

// BinaryPages reports the AT45 page-size mode.
func (c *Chip) BinaryPages() bool { return c.binary }

// PowerCycle applies a pending page-size configuration and clears volatile
// state.
func (c *Chip) PowerCycle() {
	if c.pendingBin {
		c.binary = true
		c.pendingBin = false
	}
	c.busy = 0
	c.wel = false
	c.epe = false
}

// FailEraseAt makes erases covering addr fail with the erase error flag set.
func (c *Chip) FailEraseAt(addr uint32) { c.failErase[addr] = true }

// Tx implements spi.Bus.
func (c *Chip) Tx(w, r []byte) error {
	if len(w) == 0 {
		return fmt.Errorf("spisim: empty command")
	}
	op := w[0]
	cmd := Command{Op: op, N: len(r)}
	if len(w) >= 4 {
		cmd.Addr = uint32(w[1])<<16 | uint32(w[2])<<8 | uint32(w[3])
	}
	c.log = append(c.log, cmd)

	if c.isStatus(op) {
		c.status(r)
		return nil
	}
	if c.busy > 0 && !c.overlapAllowed(op) {
		c.violations++
		return nil
	}
	switch c.family {
	case AT25:
		return c.at25(op, w, r, cmd.Addr)
	default:
		return c.at45(op, w, r, cmd.Addr)
	}
}

// overlapAllowed reports whether op may run while the array is busy. AT45
// parts accept writes into the SRAM buffer that is not being programmed.
func (c *Chip) overlapAllowed(op byte) bool {
	if c.family != AT45 || (op != 0x84 && op != 0x87) {
		return false
	}
	return at45Buffer(op, 0x84) != c.busyBuf
}

func (c *Chip) isStatus(op byte) bool {
	if c.family == AT25 {
		return op == 0x05
	}
	return op == 0xD7
}

func (c *Chip) status(r []byte) {
	var s0, s1 byte
	switch c.family {
	case AT25:
		if c.busy > 0 {
			s0 |= 0x01
		}
		if c.wel {
			s0 |= 0x02
		}
		if c.protected {
			s0 |= 0x0C
		}
		if c.epe {
			s0 |= 0x20
		}
	case AT45:
		if c.busy == 0 {
			s0 |= 0x80
		}
		s0 |= 0x34 // density 32 Mbit
		if c.binary {
			s0 |= 0x01
		}
		if c.epe {
			s1 |= 0x20
		}
	}
	if c.busy > 0 {
		c.busy--
	}
	if len(r) > 0 {
		r[0] = s0
	}
	if len(r) > 1 {
		r[1] = s1
	}
}

func (c *Chip) startBusy() {
	c.busy = c.BusyPolls
	c.busyBuf = -1
}

func (c *Chip) read(addr uint32, r []byte) {
	for i := range r {
		r[i] = c.mem[(int(addr)+i)%len(c.mem)]
	}
}

func (c *Chip) program(addr uint32, data []byte) {
	page := int(addr) - int(addr)%c.pageSize
	off := int(addr) % c.pageSize
	for _, b := range data {
		c.mem[page+off] &= b
		off = (off + 1) % c.pageSize // bursts wrap within the page
	}
}

func align(addr, size uint32) uint32 {
	return uint32(format.AlignDown(uint64(addr), uint64(size)))
}

func (c *Chip) erase(base, size uint32) {
	if int(base+size) > len(c.mem) {
		c.epe = true
		return
	}
	for a := range c.failErase {
		if a >= base && a < base+size {
			c.epe = true
			return
		}
	}
	c.epe = false
	copy(c.mem[base:base+size], bytes.Repeat([]byte{0xFF}, int(size)))
}

func (c *Chip) at25(op byte, w, r []byte, addr uint32) error {
	switch op {
	case 0x9F:
		copy(r, c.id[:])
	case 0x06:
		c.wel = true
	case 0x04:
		c.wel = false
	case 0x01:
		if !c.wel || len(w) < 2 {
			return nil
		}
		switch w[1] {
		case 0x00:
			c.protected = false
		case 0x3C:
			c.protected = true
		}
		c.wel = false
	case 0x0B:
		c.read(addr, r)
	case 0x02:
		if !c.wel {
			return nil
		}
		c.wel = false
		if c.protected {
			c.epe = true
			return nil
		}
		c.epe = false
		c.program(addr%uint32(len(c.mem)), w[4:])
		c.startBusy()
	case 0x20, 0x52, 0xD8:
		if !c.wel {
			return nil
		}
		c.wel = false
		if c.protected {
			c.epe = true
			return nil
		}
		size := map[byte]uint32{0x20: 4 << 10, 0x52: 32 << 10, 0xD8: 64 << 10}[op]
		c.erase(align(addr, size), size)
		c.startBusy()
	case 0x3C:
		if len(r) > 0 {
			r[0] = 0x00
			if c.protected {
				r[0] = 0xFF
			}
		}
	default:
		return fmt.Errorf("spisim: AT25 opcode 0x%02X not emulated", op)
	}
	return nil
}

func (c *Chip) at45(op byte, w, r []byte, addr uint32) error {
	ps := uint32(c.pageSize)
	switch op {
	case 0x9F:
		copy(r, c.id[:])
	case 0x0B:
		c.read(addr, r)
	case 0x53, 0x55:
		buf := c.buffers[at45Buffer(op, 0x53)]
		page := align(addr, ps)
		if int(page+ps) > len(c.mem) {
			return nil
		}
		copy(buf, c.mem[page:page+ps])
		c.startBusy()
	case 0x84, 0x87:
		buf := c.buffers[at45Buffer(op, 0x84)]
		off := int(addr % ps)
		for _, b := range w[4:] {
			buf[off] = b
			off = (off + 1) % len(buf)
		}
	case 0x88, 0x89:
		buf := c.buffers[at45Buffer(op, 0x88)]
		page := align(addr, ps)
		if int(page+ps) > len(c.mem) {
			c.epe = true
			return nil
		}
		for i, b := range buf {
			c.mem[page+uint32(i)] &= b
		}
		c.epe = false
		c.startBusy()
		c.busyBuf = at45Buffer(op, 0x88)
	case 0x81:
		c.erase(align(addr, ps), ps)
		c.startBusy()
	case 0x50:
		c.erase(align(addr, 4<<10), 4<<10)
		c.startBusy()
	case 0x7C:
		if addr < 64<<10 {
			// Sector 0 is split into 0a (first 4 KiB) and 0b.
			if addr < 4<<10 {
				c.erase(0, 4<<10)
			} else {
				c.erase(4<<10, 60<<10)
			}
		} else {
			c.erase(align(addr, 64<<10), 64<<10)
		}
		c.startBusy()
	case 0x3D:
		if bytes.Equal(w, []byte{0x3D, 0x2A, 0x80, 0xA6}) {
			c.pendingBin = true
		}
	default:
		return fmt.Errorf("spisim: AT45 opcode 0x%02X not emulated", op)
	}
	return nil
}

func at45Buffer(op, first byte) int {
	if op == first {
		return 0
	}
	return 1
}
