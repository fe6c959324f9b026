package format

import "fmt"

// Slot is one directory record. Slot i occupies bytes [i*8, i*8+8) of the
// directory block:
//
//	Offset  Size  Field
//	0x00    4     Start address of the store (block aligned)
//	0x04    4     End address, inclusive (Start-1 while the store is empty)
//
// A slot whose start field equals FreeSentinel is unassigned; the end field of
// a free slot is ignored.
type Slot struct {
	Start uint32
	End   uint32
}

// FreeSlot returns the encoding of an unassigned slot (all bits set).
func FreeSlot() Slot {
	return Slot{Start: FreeSentinel, End: FreeSentinel}
}

// IsFree reports whether the slot is unassigned.
func (s Slot) IsFree() bool {
	return s.Start == FreeSentinel
}

// Length returns End+1-Start, the number of bytes written to the store. ok is
// false when the end lies before Start-1, which only a corrupt slot can hold.
func (s Slot) Length() (n uint64, ok bool) {
	next := uint64(s.End) + 1
	if s.End == FreeSentinel && s.Start == 0 {
		// Start-1 wrapped; an empty store at address 0.
		return 0, true
	}
	if next < uint64(s.Start) {
		return 0, false
	}
	return next - uint64(s.Start), true
}

// Encode writes the slot into dst, which must hold at least SlotSize bytes.
func (s Slot) Encode(dst []byte) {
	PutU32(dst, SlotStartOffset, s.Start)
	PutU32(dst, SlotEndOffset, s.End)
}

// Bytes returns the slot's SlotSize-byte encoding.
func (s Slot) Bytes() []byte {
	b := make([]byte, SlotSize)
	s.Encode(b)
	return b
}

// DecodeSlot parses a slot from the first SlotSize bytes of b.
func DecodeSlot(b []byte) (Slot, error) {
	if len(b) < SlotSize {
		return Slot{}, fmt.Errorf("slot: %w", ErrTruncated)
	}
	return Slot{
		Start: ReadU32(b, SlotStartOffset),
		End:   ReadU32(b, SlotEndOffset),
	}, nil
}

// SlotOffset returns the byte offset of slot id within the directory block.
func SlotOffset(id uint32) uint32 {
	return id * SlotSize
}

// Capacity returns the number of slots a directory block of blockSize bytes
// holds. It is also one more than the largest valid store id.
func Capacity(blockSize uint32) (int, error) {
	if blockSize == 0 || blockSize%SlotSize != 0 {
		return 0, fmt.Errorf("capacity: block size %d: %w", blockSize, ErrBadBlockSize)
	}
	return int(blockSize / SlotSize), nil
}

// Entry is a live slot together with its index (the store id).
type Entry struct {
	ID uint32
	Slot
}

// ParseDirectory decodes every whole slot in block and returns the assigned
// ones in slot order. Trailing bytes that do not form a whole slot are ignored.
func ParseDirectory(block []byte) []Entry {
	n := len(block) / SlotSize
	entries := make([]Entry, 0, 8)
	for i := range n {
		off := i * SlotSize
		s := Slot{
			Start: ReadU32(block, off+SlotStartOffset),
			End:   ReadU32(block, off+SlotEndOffset),
		}
		if s.IsFree() {
			continue
		}
		entries = append(entries, Entry{ID: uint32(i), Slot: s})
	}
	return entries
}
