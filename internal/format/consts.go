// Package format houses the on-flash encoding of the store directory. The
// directory lives in the first erase block of the chip and is a flat table of
// fixed-size slots, one per possible store id. Nothing else in the chip carries
// framing: store regions are raw bytes.
package format

const (
	// SlotSize is the size of one directory slot in bytes: two little-endian
	// uint32 addresses.
	SlotSize = 8

	// SlotStartOffset is the offset of the start address within a slot.
	SlotStartOffset = 0x00

	// SlotEndOffset is the offset of the inclusive end address within a slot.
	SlotEndOffset = 0x04

	// FreeSentinel marks an unassigned slot. It is the erased state of NOR
	// flash, so a freshly erased directory block is a directory of free slots.
	FreeSentinel uint32 = 0xFFFFFFFF

	// ErasedByte is the value of every byte after an erase.
	ErasedByte byte = 0xFF

	// DirectoryBlock is the index of the erase block holding the directory.
	DirectoryBlock = 0
)
