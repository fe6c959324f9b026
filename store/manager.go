package store

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/internal/format"
	"github.com/joshuapare/flashkit/internal/logger"
)

// Manager owns the directory cache of one chip and every store session on
// it. The zero value is unusable; its methods return ErrNotInitialized.
type Manager struct {
	dev   flash.Device
	geo   flash.Geometry
	dir   *Directory
	alloc tailAllocator
	log   *slog.Logger

	stores  []*Store // ordered by start, then id
	byID    map[ID]*Store
	skipped []skippedSlot
}

type skippedSlot struct {
	entry format.Entry
	err   error
}

// New binds a Manager to dev. It does not touch the chip; call Rebuild to
// load the directory or let the first CreateStore or OpenStore do it.
func New(dev flash.Device, opts ...Option) (*Manager, error) {
	if dev == nil {
		return nil, ErrNotInitialized
	}
	dir, err := NewDirectory(dev)
	if err != nil {
		return nil, err
	}
	geo := dev.Geometry()
	m := &Manager{
		dev:   dev,
		geo:   geo,
		dir:   dir,
		alloc: newTailAllocator(geo.BlockSize, geo.ByteCount),
		byID:  make(map[ID]*Store),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) ready() error {
	if m == nil || m.dev == nil || m.dir == nil {
		return ErrNotInitialized
	}
	return nil
}

func (m *Manager) logger() *slog.Logger {
	if m.log != nil {
		return m.log
	}
	return logger.L
}

// Geometry returns the chip geometry.
func (m *Manager) Geometry() flash.Geometry { return m.geo }

// Capacity returns the directory capacity, one more than the largest id.
func (m *Manager) Capacity() int {
	if m.ready() != nil {
		return 0
	}
	return m.dir.Capacity()
}

func (m *Manager) checkID(id ID) error {
	if int64(id) >= int64(m.dir.Capacity()) {
		return fmt.Errorf("%w: %d >= %d", ErrInvalidID, id, m.dir.Capacity())
	}
	return nil
}

// validSlot rejects slots no Manager could have written.
func (m *Manager) validSlot(e format.Entry) error {
	bs := m.geo.BlockSize
	switch {
	case e.Start%bs != 0:
		return fmt.Errorf("%w: start 0x%X not block aligned", ErrAddressOutOfRange, e.Start)
	case e.Start < bs:
		return fmt.Errorf("%w: start 0x%X inside the directory block", ErrAddressOutOfRange, e.Start)
	case e.Start >= m.geo.ByteCount:
		return fmt.Errorf("%w: start 0x%X beyond chip", ErrAddressOutOfRange, e.Start)
	}
	n, ok := e.Length()
	if !ok {
		return fmt.Errorf("%w: end 0x%X before start 0x%X", ErrAddressOutOfRange, e.End, e.Start)
	}
	if uint64(e.Start)+n > uint64(m.geo.ByteCount) {
		return fmt.Errorf("%w: end 0x%X beyond chip", ErrAddressOutOfRange, e.End)
	}
	return nil
}

// Rebuild rescans the directory and returns the number of live stores.
// Sessions whose slot still holds the same start address are kept with their
// in-memory cursors; sessions whose slot vanished are detached.
func (m *Manager) Rebuild() (int, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	entries, err := m.dir.Scan()
	if err != nil {
		return 0, err
	}

	stores := make([]*Store, 0, len(entries))
	byID := make(map[ID]*Store, len(entries))
	m.skipped = m.skipped[:0]
	for _, e := range entries {
		if err := m.validSlot(e); err != nil {
			m.logger().Warn("skipping directory slot", "id", e.ID, "start", e.Start, "end", e.End, "err", err)
			m.skipped = append(m.skipped, skippedSlot{entry: e, err: err})
			continue
		}
		if old, ok := m.byID[e.ID]; ok && old.start == e.Start {
			stores = append(stores, old)
			byID[e.ID] = old
			continue
		}
		s := m.storeFromSlot(e)
		stores = append(stores, s)
		byID[e.ID] = s
	}
	for id, old := range m.byID {
		if byID[id] != old {
			old.detached = true
		}
	}
	sortStores(stores)
	m.stores, m.byID = stores, byID
	return len(stores), nil
}

func (m *Manager) storeFromSlot(e format.Entry) *Store {
	s := &Store{
		m:        m,
		id:       e.ID,
		start:    e.Start,
		end:      e.End,
		readAddr: e.Start,
	}
	s.reserved = uint32(format.AlignUp(s.used(), uint64(m.geo.BlockSize)))
	if s.used() > 0 {
		s.state = StateClosed
	}
	return s
}

func sortStores(stores []*Store) {
	slices.SortFunc(stores, func(a, b *Store) int {
		return cmp.Or(cmp.Compare(a.start, b.start), cmp.Compare(a.id, b.id))
	})
}

func (m *Manager) insert(s *Store) {
	m.stores = append(m.stores, s)
	sortStores(m.stores)
	m.byID[s.id] = s
}

// CreateStore reserves and erases a new region for id after the current tail
// and persists its empty slot. It returns the reserved size, size rounded up
// to whole blocks. A zero size reserves one block.
func (m *Manager) CreateStore(id ID, size uint32) (uint32, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if err := m.checkID(id); err != nil {
		return 0, err
	}
	if _, err := m.Rebuild(); err != nil {
		return 0, err
	}
	if _, ok := m.byID[id]; ok {
		return 0, fmt.Errorf("%w: id %d", ErrDuplicateStore, id)
	}

	start, rounded, err := m.alloc.place(m.stores, size)
	if err != nil {
		return 0, fmt.Errorf("create store %d: %w", id, err)
	}
	s := &Store{
		m:        m,
		id:       id,
		start:    uint32(start),
		end:      uint32(start) - 1,
		reserved: uint32(rounded),
		readAddr: uint32(start),
	}

	if _, err := m.dev.Erase(s.start, s.reserved); err != nil {
		return 0, fmt.Errorf("create store %d: erase 0x%X+0x%X: %w", id, s.start, s.reserved, err)
	}
	if err := m.dir.Persist(id, format.Slot{Start: s.start, End: s.end}); err != nil {
		return 0, fmt.Errorf("create store %d: %w", id, err)
	}
	m.insert(s)
	m.logger().Debug("store created", "id", id, "start", s.start, "reserved", s.reserved)
	return s.reserved, nil
}

// OpenStore returns the session for id, creating the store when it does not
// exist and size is non-zero. An existing store is returned for any size,
// except that a store still open for appending rejects a size rounding above
// its reservation with ErrDuplicateStore. Closed and rebuilt stores are
// returned as they are; stores are never resized by OpenStore.
func (m *Manager) OpenStore(id ID, size uint32) (*Store, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if err := m.checkID(id); err != nil {
		return nil, err
	}
	if _, err := m.Rebuild(); err != nil {
		return nil, err
	}
	if s, ok := m.byID[id]; ok {
		if size != 0 && s.state != StateClosed && s.reserved > 0 && m.alloc.round(size) > uint64(s.reserved) {
			return nil, fmt.Errorf("%w: id %d holds %d bytes, open asked for %d",
				ErrDuplicateStore, id, s.reserved, m.alloc.round(size))
		}
		return s, nil
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if _, err := m.CreateStore(id, size); err != nil {
		return nil, err
	}
	return m.byID[id], nil
}

// DeleteStore erases the store's reserved range, frees its slot and returns
// the bytes erased. The range is not reused by later creates.
func (m *Manager) DeleteStore(id ID) (uint32, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if err := m.checkID(id); err != nil {
		return 0, err
	}
	if _, err := m.Rebuild(); err != nil {
		return 0, err
	}
	s, ok := m.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	var erased uint32
	if s.reserved > 0 {
		n, err := m.dev.Erase(s.start, s.reserved)
		if err != nil {
			return n, fmt.Errorf("delete store %d: erase 0x%X+0x%X: %w", id, s.start, s.reserved, err)
		}
		erased = n
	}
	if err := m.dir.Clear(id); err != nil {
		return erased, fmt.Errorf("delete store %d: %w", id, err)
	}
	m.alloc.retire(s.start, s.reserved)
	if _, err := m.Rebuild(); err != nil {
		return erased, err
	}
	m.logger().Debug("store deleted", "id", id, "start", s.start, "erased", erased)
	return erased, nil
}

// Resize changes a store's reservation to size rounded up to whole blocks,
// never below the bytes already written. Growing is only possible for the
// store at the allocation tail; the new blocks are erased first.
func (m *Manager) Resize(id ID, size uint32) (uint32, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	s, ok := m.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	bs := uint64(m.geo.BlockSize)
	want := format.AlignUp(max(uint64(size), s.used()), bs)
	have := uint64(s.reserved)
	if want <= have {
		s.reserved = uint32(want)
		return s.reserved, nil
	}

	oldEnd := format.AlignUp(uint64(s.start)+have, bs)
	if oldEnd < m.alloc.firstFree(m.stores) {
		return s.reserved, fmt.Errorf("%w: store %d is not at the allocation tail", ErrOutOfSpace, id)
	}
	newEnd := uint64(s.start) + want
	if newEnd > uint64(m.geo.ByteCount) {
		return s.reserved, fmt.Errorf("%w: store %d cannot grow to %d bytes", ErrOutOfSpace, id, want)
	}
	if _, err := m.dev.Erase(uint32(oldEnd), uint32(newEnd-oldEnd)); err != nil {
		return s.reserved, fmt.Errorf("resize store %d: %w", id, err)
	}
	s.reserved = uint32(want)
	m.logger().Debug("store resized", "id", id, "reserved", s.reserved)
	return s.reserved, nil
}

// Store returns the cached session for id without rescanning.
func (m *Manager) Store(id ID) (*Store, bool) {
	if m.ready() != nil {
		return nil, false
	}
	s, ok := m.byID[id]
	return s, ok
}

// Stores returns a snapshot of the cache ordered by start address.
func (m *Manager) Stores() []Info {
	if m.ready() != nil {
		return nil
	}
	out := make([]Info, len(m.stores))
	for i, s := range m.stores {
		out[i] = s.Info()
	}
	return out
}

// Stats summarizes chip usage.
type Stats struct {
	Stores      int
	Capacity    int    // directory slots
	Reserved    uint64 // bytes reserved across stores
	Used        uint64 // bytes written across stores
	NextFree    uint64 // address the next CreateStore would use
	FreeTail    uint64 // bytes between NextFree and the chip end
	EraseCycles uint64 // directory block erase cycles
}

// Stats reports usage from the cache.
func (m *Manager) Stats() Stats {
	if m.ready() != nil {
		return Stats{}
	}
	st := Stats{
		Stores:      len(m.stores),
		Capacity:    m.dir.Capacity(),
		NextFree:    m.alloc.firstFree(m.stores),
		FreeTail:    m.alloc.freeTail(m.stores),
		EraseCycles: m.dir.EraseCycles(),
	}
	for _, s := range m.stores {
		st.Reserved += uint64(s.reserved)
		st.Used += s.used()
	}
	return st
}
