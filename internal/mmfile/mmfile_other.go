//go:build !unix

package mmfile

import (
	"fmt"
	"os"
)

// Map reads the whole file when mmap is not available. Sync writes the
// requested range back with WriteAt.
func Map(path string, writable bool) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("mmfile: %s is empty", path)
	}
	m := &Mapping{Data: data, writable: writable}
	m.sync = func(off, n int) error {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		if _, err := f.WriteAt(data[off:off+n], int64(off)); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	m.release = func() error { return nil }
	return m, nil
}
