//go:build linux

package spi

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl numbers from linux/spi/spidev.h.
const (
	spiIocWrMode        = 0x40016B01
	spiIocWrBitsPerWord = 0x40016B03
	spiIocWrMaxSpeedHz  = 0x40046B04

	spiIocMagic  = 'k'
	iocWrite     = 1
	transferSize = 32
)

// spiIocTransfer mirrors struct spi_ioc_transfer.
type spiIocTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

func spiIocMessage(n int) uintptr {
	return uintptr(iocWrite<<30 | (n*transferSize)<<16 | spiIocMagic<<8)
}

// Dev is an open spidev character device.
type Dev struct {
	f   *os.File
	cfg Config
}

// Open opens and configures the spidev node named in cfg.
func Open(cfg Config) (*Dev, error) {
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spi: open %s: %w", cfg.Device, err)
	}
	d := &Dev{f: f, cfg: cfg}

	mode := uint8(cfg.Mode)
	bits := cfg.BitsPerWord
	if bits == 0 {
		bits = 8
	}
	speed := cfg.SpeedHz
	for _, set := range []struct {
		name string
		req  uintptr
		arg  unsafe.Pointer
	}{
		{"mode", spiIocWrMode, unsafe.Pointer(&mode)},
		{"bits per word", spiIocWrBitsPerWord, unsafe.Pointer(&bits)},
		{"max speed", spiIocWrMaxSpeedHz, unsafe.Pointer(&speed)},
	} {
		if err := d.ioctl(set.req, set.arg); err != nil {
			f.Close()
			return nil, fmt.Errorf("spi: set %s on %s: %w", set.name, cfg.Device, err)
		}
	}
	return d, nil
}

func (d *Dev) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Tx sends w and then reads len(r) bytes in a single two-transfer message so
// chip select is held between them.
func (d *Dev) Tx(w, r []byte) error {
	xfers := make([]spiIocTransfer, 0, 2)
	if len(w) > 0 {
		xfers = append(xfers, d.transfer(w, nil))
	}
	if len(r) > 0 {
		xfers = append(xfers, d.transfer(nil, r))
	}
	if len(xfers) == 0 {
		return nil
	}
	err := d.ioctl(spiIocMessage(len(xfers)), unsafe.Pointer(&xfers[0]))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if err != nil {
		return fmt.Errorf("spi: transfer on %s: %w", d.cfg.Device, err)
	}
	return nil
}

func (d *Dev) transfer(tx, rx []byte) spiIocTransfer {
	t := spiIocTransfer{speedHz: d.cfg.SpeedHz, bitsPerWord: d.cfg.BitsPerWord}
	if tx != nil {
		t.txBuf = uint64(uintptr(unsafe.Pointer(&tx[0])))
		t.length = uint32(len(tx))
	}
	if rx != nil {
		t.rxBuf = uint64(uintptr(unsafe.Pointer(&rx[0])))
		t.length = uint32(len(rx))
	}
	return t
}

// Close releases the device node.
func (d *Dev) Close() error { return d.f.Close() }

var _ Bus = (*Dev)(nil)
