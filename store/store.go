package store

import (
	"fmt"
	"io"

	"github.com/joshuapare/flashkit/internal/format"
)

// ID identifies a store. Valid ids are below the directory capacity.
type ID = uint32

// State is the lifecycle stage of a store.
type State int

const (
	StateEmpty State = iota
	StateAppending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAppending:
		return "appending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Info is a snapshot of a store's extents and cursors.
type Info struct {
	ID       ID
	Start    uint32
	End      uint32 // inclusive; Start-1 when empty
	Reserved uint32
	ReadAddr uint32
	State    State
}

// Used returns the number of bytes written.
func (i Info) Used() uint32 { return i.End + 1 - i.Start }

// Store is an append/read session on one store. Sessions are handed out by a
// Manager and stay valid across Rebuild while their directory slot still
// points at the same start address.
type Store struct {
	m        *Manager
	id       ID
	start    uint32
	end      uint32
	reserved uint32
	readAddr uint32
	state    State
	detached bool
}

func (s *Store) ready() error {
	if s == nil || s.m == nil || s.m.dev == nil {
		return ErrNotInitialized
	}
	if s.detached {
		return fmt.Errorf("%w: store %d was deleted or replaced", ErrNotFound, s.id)
	}
	return nil
}

func (s *Store) used() uint64 { return uint64(s.end) + 1 - uint64(s.start) }

// ID returns the store id.
func (s *Store) ID() ID { return s.id }

// Start returns the first address of the store.
func (s *Store) Start() uint32 { return s.start }

// End returns the inclusive address of the last written byte.
func (s *Store) End() uint32 { return s.end }

// Reserved returns the reserved size in bytes.
func (s *Store) Reserved() uint32 { return s.reserved }

// Used returns the number of bytes written.
func (s *Store) Used() uint32 { return uint32(s.used()) }

// State returns the lifecycle stage.
func (s *Store) State() State { return s.state }

// Info returns a snapshot of the session.
func (s *Store) Info() Info {
	return Info{
		ID:       s.id,
		Start:    s.start,
		End:      s.end,
		Reserved: s.reserved,
		ReadAddr: s.readAddr,
		State:    s.state,
	}
}

// Write appends p. A write that does not fit the reservation is rejected
// whole with ErrOverrun and leaves the store untouched; so is any write to a
// closed store.
func (s *Store) Write(p []byte) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if s.state == StateClosed {
		return 0, fmt.Errorf("%w: store %d is closed", ErrOverrun, s.id)
	}
	if s.used()+uint64(len(p)) > uint64(s.reserved) {
		return 0, fmt.Errorf("%w: store %d has %d of %d bytes used, write of %d",
			ErrOverrun, s.id, s.used(), s.reserved, len(p))
	}
	if len(p) == 0 {
		return 0, nil
	}
	addr := uint64(s.end) + 1
	if addr+uint64(len(p)) > uint64(s.m.geo.ByteCount) {
		return 0, fmt.Errorf("%w: store %d write at 0x%X+%d", ErrAddressOutOfRange, s.id, addr, len(p))
	}

	n, err := s.m.dev.Write(uint32(addr), p)
	s.end += uint32(n)
	if n > 0 {
		s.state = StateAppending
	}
	if err != nil {
		return n, fmt.Errorf("store %d: write at 0x%X: %w", s.id, addr, err)
	}
	return n, nil
}

// Read fills p from the read cursor, never past the last written byte. At the
// end of the data it returns 0, io.EOF.
func (s *Store) Read(p []byte) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if s.readAddr > s.end {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	avail := uint64(s.end) + 1 - uint64(s.readAddr)
	want := min(uint64(len(p)), avail)

	n, err := s.m.dev.Read(s.readAddr, p[:want])
	s.readAddr += uint32(n)
	if err != nil {
		return n, fmt.Errorf("store %d: read at 0x%X: %w", s.id, s.readAddr-uint32(n), err)
	}
	return n, nil
}

// Rewind moves the read cursor back to the start and returns it. A nil
// store returns 0.
func (s *Store) Rewind() uint32 {
	if s == nil {
		return 0
	}
	s.readAddr = s.start
	return s.readAddr
}

// Close persists the store's extents, shrinks the reservation to the
// smallest block multiple covering the data and returns it. Writes are
// rejected afterwards.
func (s *Store) Close() (uint32, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := s.m.dir.Persist(s.id, format.Slot{Start: s.start, End: s.end}); err != nil {
		return s.reserved, fmt.Errorf("store %d: close: %w", s.id, err)
	}
	if _, err := s.m.Resize(s.id, 0); err != nil {
		return s.reserved, fmt.Errorf("store %d: close: %w", s.id, err)
	}
	s.state = StateClosed
	s.m.logger().Debug("store closed", "id", s.id, "start", s.start, "end", s.end, "reserved", s.reserved)
	return s.reserved, nil
}

var (
	_ io.Reader = (*Store)(nil)
	_ io.Writer = (*Store)(nil)
)
