// Package spi defines the bus transaction used by the chip drivers and a
// Linux spidev implementation of it.
package spi

import "errors"

// ErrUnsupported is returned by Open on platforms without spidev.
var ErrUnsupported = errors.New("spi: spidev not supported on this platform")

// Bus runs one chip-select framed transaction: every byte of w is clocked
// out, then len(r) bytes are clocked in. Chip select stays asserted for the
// whole transaction. r may be nil.
type Bus interface {
	Tx(w, r []byte) error
}

// Mode is the SPI clock polarity and phase.
type Mode uint8

const (
	Mode0 Mode = iota
	Mode1
	Mode2
	Mode3
)

// Config describes how a bus is opened.
type Config struct {
	Device      string // e.g. /dev/spidev0.0
	Mode        Mode
	SpeedHz     uint32
	BitsPerWord uint8
}

// DefaultConfig is mode 0 at 8 MHz, which both supported chip families accept.
func DefaultConfig(device string) Config {
	return Config{Device: device, Mode: Mode0, SpeedHz: 8_000_000, BitsPerWord: 8}
}

// MaxTransfer is the default spidev buffer size. Drivers split longer reads.
const MaxTransfer = 4096

// Header returns op followed by addr as a 24-bit big-endian address, the
// framing shared by every addressed command of the supported parts.
func Header(op byte, addr uint32, extra ...byte) []byte {
	h := make([]byte, 4, 4+len(extra))
	h[0] = op
	h[1] = byte(addr >> 16)
	h[2] = byte(addr >> 8)
	h[3] = byte(addr)
	return append(h, extra...)
}
