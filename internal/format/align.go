package format

// Alignment helpers for erase-block arithmetic. Block sizes reported by chips
// are powers of two in practice, but nothing here depends on that.

// AlignUp returns n rounded up to the next multiple of align.
//
// Example (align = 4096):
//
//	AlignUp(0)     = 0
//	AlignUp(1)     = 4096
//	AlignUp(4096)  = 4096
//	AlignUp(10000) = 12288
//
// The computation is carried out in 64 bits so callers can detect results
// that no longer fit a 32-bit chip address.
func AlignUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return ((n + align - 1) / align) * align
}

// AlignDown returns n rounded down to a multiple of align.
func AlignDown(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n / align) * align
}

// Aligned reports whether n is a multiple of align.
func Aligned(n, align uint64) bool {
	return align != 0 && n%align == 0
}
