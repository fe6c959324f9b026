package flash

// CanProgram reports whether next can be programmed over current without an
// erase, i.e. no bit goes from 0 back to 1. The slices must have equal length.
func CanProgram(current, next []byte) bool {
	for i := range next {
		if next[i]&^current[i] != 0 {
			return false
		}
	}
	return true
}

// IsErased reports whether every byte of b is in the erased state.
func IsErased(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}

// ForEachPage splits a write of n bytes at addr into segments that never cross
// a page boundary and calls fn with each segment's chip address and the
// [lo, hi) range of the source buffer it covers. It stops at the first error.
func ForEachPage(pageSize, addr uint32, n int, fn func(addr uint32, lo, hi int) error) error {
	lo := 0
	for lo < n {
		cur := addr + uint32(lo)
		room := int(pageSize - cur%pageSize)
		hi := min(lo+room, n)
		if err := fn(cur, lo, hi); err != nil {
			return err
		}
		lo = hi
	}
	return nil
}
