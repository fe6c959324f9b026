// Package mmfile maps chip image files into memory.
package mmfile

import "errors"

// ErrClosed is returned by Sync after Close.
var ErrClosed = errors.New("mmfile: mapping closed")

// Mapping is a file mapped into memory. Data aliases the file contents for a
// shared writable mapping; on platforms without mmap it is a private copy that
// Sync writes back.
type Mapping struct {
	Data []byte

	writable bool
	sync     func(off, n int) error
	release  func() error
}

// Writable reports whether the mapping was opened for writing.
func (m *Mapping) Writable() bool { return m.writable }

// Sync flushes n bytes starting at off to the file. It is a no-op for a
// read-only mapping.
func (m *Mapping) Sync(off, n int) error {
	if m.release == nil {
		return ErrClosed
	}
	if !m.writable || n <= 0 {
		return nil
	}
	if off < 0 || off+n > len(m.Data) {
		n = len(m.Data) - off
		if off < 0 || n <= 0 {
			return nil
		}
	}
	return m.sync(off, n)
}

// Close unmaps the file. Calling Close twice is a no-op.
func (m *Mapping) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.release = nil
	m.Data = nil
	return err
}
