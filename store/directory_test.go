package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/internal/format"
)

func TestDirectory_Capacity(t *testing.T) {
	d, err := NewDirectory(newTestDevice(t, testGeometry))
	require.NoError(t, err)
	assert.Equal(t, 512, d.Capacity())
}

func TestDirectory_NilDevice(t *testing.T) {
	_, err := NewDirectory(nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestDirectory_ScanErasedChip(t *testing.T) {
	d, err := NewDirectory(newTestDevice(t, testGeometry))
	require.NoError(t, err)

	entries, err := d.Scan()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirectory_PersistInPlace(t *testing.T) {
	dev := newTestDevice(t, testGeometry)
	d, err := NewDirectory(dev)
	require.NoError(t, err)

	require.NoError(t, d.Persist(5, format.Slot{Start: 4096, End: 4095}))
	assert.Zero(t, d.EraseCycles(), "programming a free slot needs no erase")
	assert.Zero(t, dev.EraseCount(0))

	assert.Equal(t, []byte{0x00, 0x10, 0x00, 0x00, 0xFF, 0x0F, 0x00, 0x00}, dev.Bytes()[40:48])

	s, err := d.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, format.Slot{Start: 4096, End: 4095}, s)

	// Same value again is a no-op.
	require.NoError(t, d.Persist(5, format.Slot{Start: 4096, End: 4095}))
	assert.Zero(t, d.EraseCycles())
}

func TestDirectory_PersistEraseCycle(t *testing.T) {
	dev := newTestDevice(t, testGeometry)
	d, err := NewDirectory(dev)
	require.NoError(t, err)

	require.NoError(t, d.Persist(0, format.Slot{Start: 4096, End: 8191}))
	require.NoError(t, d.Persist(300, format.Slot{Start: 8192, End: 8191}))
	require.NoError(t, d.Persist(300, format.Slot{Start: 8192, End: 8194}))

	assert.Equal(t, uint64(1), d.EraseCycles())
	assert.Equal(t, uint32(1), dev.EraseCount(0))

	entries, err := d.Scan()
	require.NoError(t, err)
	assert.Equal(t, []format.Entry{
		{ID: 0, Slot: format.Slot{Start: 4096, End: 8191}},
		{ID: 300, Slot: format.Slot{Start: 8192, End: 8194}},
	}, entries, "the erase cycle rewrites every other live slot")
}

func TestDirectory_Clear(t *testing.T) {
	dev := newTestDevice(t, testGeometry)
	d, err := NewDirectory(dev)
	require.NoError(t, err)

	require.NoError(t, d.Clear(7), "clearing a free slot is a no-op")
	assert.Zero(t, d.EraseCycles())

	require.NoError(t, d.Persist(7, format.Slot{Start: 4096, End: 4100}))
	require.NoError(t, d.Clear(7))
	assert.Equal(t, uint64(1), d.EraseCycles())
	assert.True(t, flash.IsErased(dev.Bytes()[:4096]))
}

func TestDirectory_InvalidID(t *testing.T) {
	d, err := NewDirectory(newTestDevice(t, testGeometry))
	require.NoError(t, err)

	require.ErrorIs(t, d.Persist(512, format.Slot{Start: 4096, End: 4095}), ErrInvalidID)
	_, err = d.Slot(512)
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestDirectory_EraseFailure(t *testing.T) {
	dev := newTestDevice(t, testGeometry)
	d, err := NewDirectory(dev)
	require.NoError(t, err)
	require.NoError(t, d.Persist(1, format.Slot{Start: 4096, End: 4095}))

	dev.FailEraseAt(0)
	err = d.Persist(1, format.Slot{Start: 4096, End: 4200})
	require.ErrorIs(t, err, flash.ErrEraseFailed)
	assert.Zero(t, d.EraseCycles())

	s, err := d.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(4095), s.End, "slot unchanged when the erase fails")
}
