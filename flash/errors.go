package flash

import "errors"

var (
	// ErrAddressOutOfRange indicates an address at or beyond the chip byte count.
	ErrAddressOutOfRange = errors.New("flash: address out of range")

	// ErrMisaligned indicates an erase address or size that is not block aligned.
	ErrMisaligned = errors.New("flash: address or size not block aligned")

	// ErrNotErased indicates a program over bytes that would need bits set back to 1.
	ErrNotErased = errors.New("flash: target not erased")

	// ErrEraseFailed indicates a block erase did not complete.
	ErrEraseFailed = errors.New("flash: erase failed")

	// ErrProgramFailed indicates the chip flagged a program error.
	ErrProgramFailed = errors.New("flash: program failed")

	// ErrWriteProtected indicates the write enable latch could not be set or the
	// target sector is protected.
	ErrWriteProtected = errors.New("flash: write protected")

	// ErrInvalidGeometry indicates a geometry that cannot describe a real chip.
	ErrInvalidGeometry = errors.New("flash: invalid geometry")

	// ErrTimeout indicates the chip stayed busy past the configured poll limit.
	ErrTimeout = errors.New("flash: timed out waiting for ready")

	// ErrUnknownChip indicates the JEDEC ID did not match the expected part.
	ErrUnknownChip = errors.New("flash: unexpected chip id")

	// ErrUnsupported indicates the device does not support the requested operation.
	ErrUnsupported = errors.New("flash: unsupported operation")
)
