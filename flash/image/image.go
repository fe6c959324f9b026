// Package image implements a flash.Device over a chip image file.
//
// An image holds the raw chip bytes with no header, so a dump read from real
// hardware can be opened directly and an image can be written back to a chip
// unchanged. Images are created fully erased (every byte 0xFF). Open maps the
// file and programs it with NOR semantics through a flash.MemDevice; modified
// pages are flushed on Sync and Close.
package image

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/internal/mmfile"
)

// ErrReadOnly is returned by Write and Erase on an image opened read-only.
var ErrReadOnly = errors.New("image: opened read-only")

// Image is a chip image file opened as a flash.Device.
type Image struct {
	path    string
	mapping *mmfile.Mapping
	mem     *flash.MemDevice
	dirty   *tracker
	ro      bool
}

type options struct {
	readOnly bool
	strict   bool
}

// Option configures Open.
type Option func(*options)

// ReadOnly maps the image without write access.
func ReadOnly() Option { return func(o *options) { o.readOnly = true } }

// Strict rejects programs over bytes that are not erased, as a real chip
// would silently corrupt them.
func Strict() Option { return func(o *options) { o.strict = true } }

// Create writes a fully erased image for g at path, replacing any existing
// file.
func Create(path string, g flash.Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("image: create %s: %w", path, err)
	}

	erased := make([]byte, g.BlockSize)
	for i := range erased {
		erased[i] = 0xFF
	}
	w := bufio.NewWriterSize(f, 64<<10)
	for range g.Blocks() {
		if _, err := w.Write(erased); err != nil {
			f.Close()
			return fmt.Errorf("image: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("image: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Open maps the image at path. The file size must equal g.ByteCount.
func Open(path string, g flash.Geometry, opts ...Option) (*Image, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	m, err := mmfile.Map(path, !o.readOnly)
	if err != nil {
		return nil, fmt.Errorf("image: open %s: %w", path, err)
	}

	img := &Image{path: path, mapping: m, dirty: newTracker(), ro: o.readOnly}
	memOpts := []flash.MemOption{flash.WithDirtyTracker(img.dirty)}
	if o.strict {
		memOpts = append(memOpts, flash.WithStrictProgram())
	}
	mem, err := flash.NewMemOver(g, m.Data, memOpts...)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("image: %s: %w", path, err)
	}
	img.mem = mem
	return img, nil
}

// Path returns the file the image was opened from.
func (i *Image) Path() string { return i.path }

func (i *Image) Geometry() flash.Geometry { return i.mem.Geometry() }

func (i *Image) Read(addr uint32, p []byte) (int, error) {
	return i.mem.Read(addr, p)
}

func (i *Image) Write(addr uint32, p []byte) (int, error) {
	if i.ro {
		return 0, ErrReadOnly
	}
	return i.mem.Write(addr, p)
}

func (i *Image) Erase(addr, size uint32) (uint32, error) {
	if i.ro {
		return 0, ErrReadOnly
	}
	return i.mem.Erase(addr, size)
}

// EraseUnit erases one tiered unit. Units below the block size are rejected
// with flash.ErrUnsupported.
func (i *Image) EraseUnit(addr uint32, u flash.EraseUnit) error {
	if i.ro {
		return ErrReadOnly
	}
	return i.mem.EraseUnit(addr, u)
}

// Stats returns the operation counters since Open.
func (i *Image) Stats() flash.MemStats { return i.mem.Stats() }

// Dirty reports whether modified pages are waiting for Sync.
func (i *Image) Dirty() bool { return i.dirty.pending() }

// Sync flushes modified pages to the file.
func (i *Image) Sync(ctx context.Context) error {
	if i.ro || !i.dirty.pending() {
		return nil
	}
	return i.dirty.flush(ctx, int64(len(i.mapping.Data)), i.mapping.Sync)
}

// Close flushes pending pages and unmaps the file.
func (i *Image) Close() error {
	if i.mapping == nil {
		return nil
	}
	syncErr := i.Sync(context.Background())
	closeErr := i.mapping.Close()
	i.mapping = nil
	return errors.Join(syncErr, closeErr)
}

var (
	_ flash.Device     = (*Image)(nil)
	_ flash.UnitEraser = (*Image)(nil)
)
