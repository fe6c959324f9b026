package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadBlockSize indicates a block size that cannot hold a whole number of slots.
	ErrBadBlockSize = errors.New("format: block size not a multiple of slot size")
)
