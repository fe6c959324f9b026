// Package store manages named, append-only regions ("stores") on a raw
// serial NOR flash chip.
//
// # Overview
//
// The first erase block of the chip holds a directory: a flat table of 8-byte
// slots, one per store id, each recording the store's start address and the
// inclusive address of its last written byte. Everything after the first block
// belongs to stores. A Manager owns the directory cache and hands out *Store
// sessions:
//
//	m, err := store.New(dev)
//	if err != nil { ... }
//	s, err := m.OpenStore(5, 10000) // creates store 5 with 12288 bytes reserved
//	s.Write([]byte{1, 2, 3})
//	s.Close()                       // persists (4096, 4098), shrinks to 4096
//
// # Allocation
//
// New stores are always placed at the first block boundary after the highest
// reservation. Space released by DeleteStore is erased but never handed out
// again by the same Manager. The Manager remembers released ranges only in
// memory: after a restart, a range released at the tail of the chip can be
// handed out again. It was erased by DeleteStore, so the new store still
// starts on erased flash. Reservations are rounded up to whole blocks and
// erased at creation, so appends never need an erase.
//
// # Directory Wear
//
// A slot is programmed in place when the new value only clears bits. Anything
// else, including closing a store or deleting one, erases and rewrites the
// whole directory block. Stats reports how many such erase cycles a Manager
// has performed. Callers should close each store once.
//
// # Crash Consistency
//
// The directory is best effort. A power loss between erasing the directory
// block and rewriting it loses every slot; a power loss between a data write
// and Close leaves the slot describing the store as empty. There is no
// journal.
//
// # Thread Safety
//
// A Manager and its stores are not safe for concurrent use. Hosts serialize
// every call behind a single lock.
package store
