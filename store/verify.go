package store

import (
	"errors"
	"fmt"

	"github.com/joshuapare/flashkit/internal/format"
)

// ValidationError describes one broken invariant found by Verify.
type ValidationError struct {
	Type    string // e.g. "Alignment", "Overlap", "Directory"
	Message string
	ID      int   // store id, -1 when not tied to one store
	Addr    int64 // chip address, -1 when not applicable
}

func (e *ValidationError) Error() string {
	prefix := e.Type
	if e.ID >= 0 {
		prefix = fmt.Sprintf("%s store %d", prefix, e.ID)
	}
	if e.Addr >= 0 {
		return fmt.Sprintf("%s at 0x%X: %s", prefix, e.Addr, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Verify checks the cached stores and the on-chip directory against the
// layout invariants and returns every violation joined with errors.Join, or
// nil. Unwrap the result with errors.As to reach individual
// *ValidationError values.
func (m *Manager) Verify() error {
	if err := m.ready(); err != nil {
		return err
	}
	var errs []error
	add := func(typ string, id int, addr int64, msg string, args ...any) {
		errs = append(errs, &ValidationError{Type: typ, Message: fmt.Sprintf(msg, args...), ID: id, Addr: addr})
	}

	bs := uint64(m.geo.BlockSize)
	chip := uint64(m.geo.ByteCount)
	for _, s := range m.stores {
		id, start := int(s.id), int64(s.start)
		if !format.Aligned(uint64(s.start), bs) {
			add("Alignment", id, start, "start not block aligned")
		}
		if !format.Aligned(uint64(s.reserved), bs) {
			add("Alignment", id, start, "reserved size %d not a block multiple", s.reserved)
		}
		if uint64(s.start) < bs {
			add("Bounds", id, start, "start inside the directory block")
		}
		if s.used() > uint64(s.reserved) {
			add("Bounds", id, start, "%d bytes written into %d reserved", s.used(), s.reserved)
		}
		if uint64(s.start)+uint64(s.reserved) > chip {
			add("Bounds", id, start, "reservation of %d bytes crosses chip end 0x%X", s.reserved, chip)
		}
		if s.readAddr < s.start || uint64(s.readAddr) > uint64(s.end)+1 {
			add("Cursor", id, int64(s.readAddr), "read cursor outside [0x%X, 0x%X]", s.start, uint64(s.end)+1)
		}
	}

	// Stores are sorted by start, so comparing against the furthest end seen
	// so far finds every overlap.
	var tail *Store
	for _, cur := range m.stores {
		if cur.reserved == 0 {
			continue
		}
		if tail != nil && uint64(tail.start)+uint64(tail.reserved) > uint64(cur.start) {
			add("Overlap", int(cur.id), int64(cur.start), "overlaps store %d [0x%X, 0x%X)",
				tail.id, tail.start, uint64(tail.start)+uint64(tail.reserved))
		}
		if tail == nil || uint64(cur.start)+uint64(cur.reserved) > uint64(tail.start)+uint64(tail.reserved) {
			tail = cur
		}
	}

	for _, sk := range m.skipped {
		add("Directory", int(sk.entry.ID), int64(sk.entry.Start), "unusable slot: %v", sk.err)
	}

	entries, err := m.dir.Scan()
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	onChip := make(map[ID]bool, len(entries))
	for _, e := range entries {
		onChip[e.ID] = true
		s, ok := m.byID[e.ID]
		if !ok {
			if !m.isSkipped(e.ID) {
				add("Directory", int(e.ID), int64(e.Start), "slot not loaded; call Rebuild")
			}
			continue
		}
		if e.Start != s.start {
			add("Directory", int(e.ID), int64(e.Start), "slot start differs from session start 0x%X", s.start)
		}
		if s.state == StateClosed && e.End != s.end {
			add("Directory", int(e.ID), int64(e.Start), "closed store end 0x%X, slot holds 0x%X", s.end, e.End)
		}
	}
	for _, s := range m.stores {
		if !onChip[s.id] {
			add("Directory", int(s.id), int64(s.start), "store has no directory slot")
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) isSkipped(id ID) bool {
	for _, sk := range m.skipped {
		if sk.entry.ID == id {
			return true
		}
	}
	return false
}
