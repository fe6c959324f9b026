package flash

import "fmt"

// BlockEraser erases exactly one block at a block-aligned address.
type BlockEraser interface {
	EraseBlock(addr uint32) error
}

// EraseBlocks implements Device.Erase on top of a single-block eraser. It
// validates alignment and bounds before touching the chip, then erases one
// block at a time and stops at the first failure, returning the bytes erased
// up to that point.
func EraseBlocks(e BlockEraser, g Geometry, addr, size uint32) (uint32, error) {
	if g.BlockSize == 0 {
		return 0, ErrInvalidGeometry
	}
	if addr%g.BlockSize != 0 || size%g.BlockSize != 0 {
		return 0, fmt.Errorf("%w: addr=0x%X size=0x%X block=0x%X", ErrMisaligned, addr, size, g.BlockSize)
	}
	if uint64(addr)+uint64(size) > uint64(g.ByteCount) {
		return 0, fmt.Errorf("%w: erase 0x%X+0x%X beyond 0x%X", ErrAddressOutOfRange, addr, size, g.ByteCount)
	}

	var erased uint32
	for erased < size {
		if err := e.EraseBlock(addr + erased); err != nil {
			return erased, fmt.Errorf("erase block 0x%X: %w", addr+erased, err)
		}
		erased += g.BlockSize
	}
	return erased, nil
}
