package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flashkit/flash"
)

// testGeometry is the 1 MiB chip with 4 KiB blocks used throughout.
var testGeometry = flash.Geometry{ByteCount: 1 << 20, PageSize: 256, BlockSize: 4096}

func newTestDevice(t testing.TB, g flash.Geometry) *flash.MemDevice {
	t.Helper()
	dev, err := flash.NewMem(g, flash.WithStrictProgram())
	require.NoError(t, err)
	return dev
}

func setupManager(t testing.TB) (*Manager, *flash.MemDevice) {
	t.Helper()
	dev := newTestDevice(t, testGeometry)
	m, err := New(dev)
	require.NoError(t, err)
	return m, dev
}

func snapshot(dev *flash.MemDevice) []byte {
	return append([]byte(nil), dev.Bytes()...)
}

func mustOpen(t testing.TB, m *Manager, id ID, size uint32) *Store {
	t.Helper()
	s, err := m.OpenStore(id, size)
	require.NoError(t, err)
	return s
}
