//go:build !linux

package spi

// Dev is unavailable off Linux.
type Dev struct{}

// Open always fails with ErrUnsupported.
func Open(Config) (*Dev, error) { return nil, ErrUnsupported }

func (*Dev) Tx(w, r []byte) error { return ErrUnsupported }

func (*Dev) Close() error { return nil }

var _ Bus = (*Dev)(nil)
