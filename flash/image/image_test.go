package image

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flashkit/flash"
)

var testGeometry = flash.Geometry{ByteCount: 64 << 10, PageSize: 256, BlockSize: 4096}

func newImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chip.img")
	require.NoError(t, Create(path, testGeometry))
	return path
}

func TestCreate_Erased(t *testing.T) {
	path := newImage(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, int(testGeometry.ByteCount))
	assert.True(t, flash.IsErased(data))
}

func TestCreate_InvalidGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.img")
	err := Create(path, flash.Geometry{ByteCount: 4096, PageSize: 256, BlockSize: 4096})
	require.ErrorIs(t, err, flash.ErrInvalidGeometry)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_WriteSyncReopen(t *testing.T) {
	path := newImage(t)

	img, err := Open(path, testGeometry, Strict())
	require.NoError(t, err)
	_, err = img.Write(8192, []byte("persisted"))
	require.NoError(t, err)
	assert.True(t, img.Dirty())
	require.NoError(t, img.Sync(context.Background()))
	assert.False(t, img.Dirty())
	require.NoError(t, img.Close())
	require.NoError(t, img.Close(), "second close is a no-op")

	img, err = Open(path, testGeometry, ReadOnly())
	require.NoError(t, err)
	defer img.Close()

	buf := make([]byte, 9)
	_, err = img.Read(8192, buf)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(buf))
}

func TestOpen_StrictRejectsReprogram(t *testing.T) {
	img, err := Open(newImage(t), testGeometry, Strict())
	require.NoError(t, err)
	defer img.Close()

	_, err = img.Write(0, []byte{0x00})
	require.NoError(t, err)
	_, err = img.Write(0, []byte{0xFF})
	require.ErrorIs(t, err, flash.ErrNotErased)

	n, err := img.Erase(0, 4096)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), n)
	_, err = img.Write(0, []byte{0x5A})
	require.NoError(t, err)
}

func TestOpen_ReadOnlyRejectsWrites(t *testing.T) {
	img, err := Open(newImage(t), testGeometry, ReadOnly())
	require.NoError(t, err)
	defer img.Close()

	_, err = img.Write(0, []byte{0})
	require.ErrorIs(t, err, ErrReadOnly)
	_, err = img.Erase(0, 4096)
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, img.EraseUnit(0, flash.Erase4K), ErrReadOnly)
}

func TestOpen_SizeMismatch(t *testing.T) {
	path := newImage(t)
	big := flash.Geometry{ByteCount: 128 << 10, PageSize: 256, BlockSize: 4096}

	_, err := Open(path, big)
	require.ErrorIs(t, err, flash.ErrInvalidGeometry)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.img"), testGeometry)
	require.ErrorIs(t, err, os.ErrNotExist)
}
