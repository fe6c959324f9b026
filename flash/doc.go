// Package flash defines the contract between the store layer and a physical
// serial flash chip, plus chip-independent helpers.
//
// # Overview
//
// A Device exposes byte-addressed reads, page-bounded programming that is only
// valid over erased bytes, block-granular erase, and fixed geometry:
//
//	type Device interface {
//	    Geometry() Geometry
//	    Read(addr uint32, p []byte) (int, error)
//	    Write(addr uint32, p []byte) (int, error)
//	    Erase(addr, size uint32) (uint32, error)
//	}
//
// Chip drivers live in subpackages (flash/at25, flash/at45) and talk to the
// chip through a flash/spi Bus. flash/image backs a Device with a chip image
// file, and MemDevice in this package keeps the whole chip in memory.
//
// # NOR Semantics
//
// Programming can only clear bits (1 to 0). Erase sets every bit of a block
// back to 1, so an erased byte reads 0xFF. CanProgram reports whether a write
// can be applied without an erase.
//
// # Capabilities
//
// Chip families additionally expose status polling (StatusReader) and tiered
// erase units (UnitEraser). The store layer never calls these; it only uses
// the granularity reported by Geometry.
//
// # Thread Safety
//
// Devices are not safe for concurrent use. Callers serialize access.
package flash
