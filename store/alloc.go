package store

import (
	"fmt"

	"github.com/joshuapare/flashkit/internal/format"
)

// tailAllocator places new reservations after the highest existing one. It
// keeps no free list: ranges released by a delete are remembered only as a
// high-water mark so they are never handed out again.
type tailAllocator struct {
	blockSize uint64
	byteCount uint64

	// retired is the end of the highest range released by DeleteStore.
	retired uint64
}

func newTailAllocator(blockSize, byteCount uint32) tailAllocator {
	return tailAllocator{blockSize: uint64(blockSize), byteCount: uint64(byteCount)}
}

// round returns size rounded up to whole blocks. A zero request reserves one
// block.
func (a *tailAllocator) round(size uint32) uint64 {
	if size == 0 {
		return a.blockSize
	}
	return format.AlignUp(uint64(size), a.blockSize)
}

// firstFree is the block boundary at or after the end of the highest
// reservation, never below the first data block or a retired range.
func (a *tailAllocator) firstFree(stores []*Store) uint64 {
	next := a.blockSize
	for _, s := range stores {
		next = max(next, format.AlignUp(uint64(s.start)+uint64(s.reserved), a.blockSize))
	}
	return max(next, a.retired)
}

// freeTail returns the bytes between firstFree and the end of the chip.
func (a *tailAllocator) freeTail(stores []*Store) uint64 {
	next := a.firstFree(stores)
	if next >= a.byteCount {
		return 0
	}
	return a.byteCount - next
}

// place returns the start and rounded size for a new reservation of size
// bytes, or ErrOutOfSpace.
func (a *tailAllocator) place(stores []*Store, size uint32) (start, rounded uint64, err error) {
	start = a.firstFree(stores)
	rounded = a.round(size)
	if start > a.byteCount || a.byteCount-start < rounded {
		return 0, 0, fmt.Errorf("%w: need %d bytes at 0x%X, chip has 0x%X",
			ErrOutOfSpace, rounded, start, a.byteCount)
	}
	return start, rounded, nil
}

// retire records that [start, start+size) must not be reused.
func (a *tailAllocator) retire(start, size uint32) {
	a.retired = max(a.retired, format.AlignUp(uint64(start)+uint64(size), a.blockSize))
}
