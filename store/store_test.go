package store

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateEmpty, "empty"},
		{StateAppending, "appending"},
		{StateClosed, "closed"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestStore_RoundTrip(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 1, 4096)

	payload := []byte("the quick brown fox")
	n, err := s.Write(payload[:4])
	require.NoError(t, err)
	require.Equal(t, 4, n)
	n, err = s.Write(payload[4:])
	require.NoError(t, err)
	require.Equal(t, len(payload)-4, n)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStore_OverrunIsAtomic(t *testing.T) {
	m, dev := setupManager(t)
	s := mustOpen(t, m, 1, 4096)
	before := snapshot(dev)

	n, err := s.Write(make([]byte, 4097))
	require.ErrorIs(t, err, ErrOverrun)
	assert.Zero(t, n)
	assert.Equal(t, s.Start()-1, s.End())
	assert.Equal(t, StateEmpty, s.State())
	assert.Equal(t, before, dev.Bytes())

	n, err = s.Write(make([]byte, 4096))
	require.NoError(t, err, "an exact fit is allowed")
	assert.Equal(t, 4096, n)

	_, err = s.Write([]byte{0})
	require.ErrorIs(t, err, ErrOverrun)
}

func TestStore_ChunkedRead(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 2, 8192)
	payload := bytes.Repeat([]byte("0123456789"), 500)
	_, err := s.Write(payload)
	require.NoError(t, err)

	var got []byte
	buf := make([]byte, 333)
	for {
		n, err := s.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			assert.Zero(t, n)
			break
		}
		require.NoError(t, err)
		require.Positive(t, n)
	}
	assert.Equal(t, payload, got)

	n, err := s.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF, "EOF is sticky until Rewind")
}

func TestStore_ReadEmpty(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 3, 4096)

	n, err := s.Read(make([]byte, 10))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStore_ReadInterleavedWithWrite(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 3, 4096)

	_, err := s.Write([]byte("ab"))
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))

	_, err = s.Write([]byte("cd"))
	require.NoError(t, err)
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "cd", string(buf[:n]), "reads resume after the last byte read")
}

func TestStore_Rewind(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 4, 4096)
	_, err := s.Write([]byte("rewind me"))
	require.NoError(t, err)

	first, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, s.Start(), s.Rewind())
	second, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_Close(t *testing.T) {
	m, dev := setupManager(t)
	s := mustOpen(t, m, 5, 3*4096)
	_, err := s.Write(bytes.Repeat([]byte{0x5A}, 4100))
	require.NoError(t, err)

	reserved, err := s.Close()
	require.NoError(t, err)
	assert.Equal(t, uint32(8192), reserved)
	assert.Equal(t, StateClosed, s.State())

	n, err := s.Write([]byte{1})
	require.ErrorIs(t, err, ErrOverrun)
	assert.Zero(t, n)

	slot, err := m.dir.Slot(5)
	require.NoError(t, err)
	assert.Equal(t, s.Start(), slot.Start)
	assert.Equal(t, s.End(), slot.End)

	s.Rewind()
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, dev.Bytes()[s.Start():s.Start()+4100], got)
}

func TestStore_CloseEmpty(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 6, 4096)
	cycles := m.dir.EraseCycles()

	reserved, err := s.Close()
	require.NoError(t, err)
	assert.Zero(t, reserved)
	assert.Equal(t, cycles, m.dir.EraseCycles(), "unchanged slot is not rewritten")
}

func TestStore_Info(t *testing.T) {
	m, _ := setupManager(t)
	s := mustOpen(t, m, 7, 4096)
	_, err := s.Write([]byte("xyz"))
	require.NoError(t, err)

	info := s.Info()
	assert.Equal(t, ID(7), info.ID)
	assert.Equal(t, uint32(3), info.Used())
	assert.Equal(t, s.Start(), info.ReadAddr)
	assert.Equal(t, StateAppending, info.State)
}

func TestStore_ZeroValue(t *testing.T) {
	var s Store
	_, err := s.Write([]byte{1})
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Read(make([]byte, 1))
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Close()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestStore_NilRewind(t *testing.T) {
	var s *Store
	assert.Equal(t, uint32(0), s.Rewind())

	var zero Store
	assert.Equal(t, uint32(0), zero.Rewind())
}
