package at25

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/internal/testutil/spisim"
)

func setupChip(t *testing.T, busyPolls int) (*Chip, *spisim.Chip) {
	t.Helper()
	sim := spisim.NewAT25DF641A()
	sim.BusyPolls = busyPolls
	c, err := Probe(sim)
	require.NoError(t, err)
	sim.ResetLog()
	return c, sim
}

func TestProbe(t *testing.T) {
	c, _ := setupChip(t, 0)
	assert.Equal(t, flash.Geometry{ByteCount: 8 << 20, PageSize: 256, BlockSize: 4096}, c.Geometry())
	assert.Equal(t, byte(0x1F), c.ID().Manufacturer)
}

func TestProbe_WrongManufacturer(t *testing.T) {
	sim := spisim.New(spisim.AT25, [4]byte{0xEF, 0x40, 0x17, 0x00}, 1<<20, 256)
	_, err := Probe(sim)
	require.ErrorIs(t, err, flash.ErrUnknownChip)
}

type failingBus struct{}

func (failingBus) Tx(w, r []byte) error { return errors.New("bus down") }

func TestProbe_BusError(t *testing.T) {
	_, err := Probe(failingBus{})
	require.ErrorContains(t, err, "bus down")
}

func TestWriteRead_CrossesPages(t *testing.T) {
	c, sim := setupChip(t, 3)

	data := make([]byte, 600)
	for i := range data {
		data[i] = byte(i)
	}
	n, err := c.Write(4096+200, data)
	require.NoError(t, err)
	assert.Equal(t, 600, n)
	assert.Zero(t, sim.Violations(), "driver must wait for ready before the next command")

	var programs []spisim.Command
	for _, cmd := range sim.Log() {
		if cmd.Op == opProgram {
			programs = append(programs, cmd)
		}
	}
	require.Len(t, programs, 4, "56 + 256 + 256 + 32 byte segments")
	assert.Equal(t, uint32(4096+200), programs[0].Addr)
	assert.Equal(t, uint32(4096+256), programs[1].Addr)

	got := make([]byte, 600)
	n, err = c.Read(4096+200, got)
	require.NoError(t, err)
	assert.Equal(t, 600, n)
	assert.Equal(t, data, got)
}

func TestWrite_EnablesBeforeEachPage(t *testing.T) {
	c, sim := setupChip(t, 0)

	_, err := c.Write(0, []byte{1, 2, 3})
	require.NoError(t, err)

	ops := sim.Ops()
	i := bytes.IndexByte(ops, opProgram)
	require.Positive(t, i)
	assert.Contains(t, ops[:i], byte(opWriteEnable))
}

func TestRead_SplitsLargeTransfers(t *testing.T) {
	c, sim := setupChip(t, 0)

	buf := make([]byte, 10000)
	n, err := c.Read(0, buf)
	require.NoError(t, err)
	assert.Equal(t, 10000, n)
	assert.True(t, flash.IsErased(buf))

	reads := 0
	for _, cmd := range sim.Log() {
		if cmd.Op == opFastRead {
			reads++
		}
	}
	assert.Equal(t, 3, reads)
}

func TestRead_Bounds(t *testing.T) {
	c, _ := setupChip(t, 0)
	end := c.Geometry().ByteCount

	n, err := c.Read(end, make([]byte, 1))
	require.ErrorIs(t, err, flash.ErrAddressOutOfRange)
	assert.Zero(t, n)

	n, err = c.Read(end-4, make([]byte, 8))
	require.ErrorIs(t, err, flash.ErrAddressOutOfRange)
	assert.Equal(t, 4, n)
}

func TestErase(t *testing.T) {
	c, sim := setupChip(t, 5)
	_, err := c.Write(8192, bytes.Repeat([]byte{0}, 8192))
	require.NoError(t, err)

	n, err := c.Erase(8192, 8192)
	require.NoError(t, err)
	assert.Equal(t, uint32(8192), n)
	assert.True(t, flash.IsErased(sim.Bytes()[8192:16384]))
	assert.Zero(t, sim.Violations())
}

func TestErase_FailureStopsEarly(t *testing.T) {
	c, sim := setupChip(t, 0)
	sim.FailEraseAt(4096)

	n, err := c.Erase(0, 3*4096)
	require.ErrorIs(t, err, flash.ErrEraseFailed)
	assert.Equal(t, uint32(4096), n)
}

func TestEraseUnit(t *testing.T) {
	c, sim := setupChip(t, 0)
	_, err := c.Write(64<<10, bytes.Repeat([]byte{0}, 64<<10))
	require.NoError(t, err)

	require.NoError(t, c.EraseUnit(64<<10, flash.Erase64K))
	assert.True(t, flash.IsErased(sim.Bytes()[64<<10:128<<10]))
	assert.Equal(t, byte(opErase64K), sim.Ops()[len(sim.Ops())-3], "erase, ready poll, error check")

	tests := []struct {
		name string
		addr uint32
		unit flash.EraseUnit
		want error
	}{
		{"page erase", 0, flash.ErasePage, flash.ErrUnsupported},
		{"misaligned 32K", 4096, flash.Erase32K, flash.ErrMisaligned},
		{"beyond chip", 8 << 20, flash.Erase4K, flash.ErrAddressOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, c.EraseUnit(tt.addr, tt.unit), tt.want)
		})
	}
}

func TestProtection(t *testing.T) {
	c, sim := setupChip(t, 0)

	require.NoError(t, c.Protect())
	assert.True(t, sim.Protected())
	prot, err := c.SectorProtected(0)
	require.NoError(t, err)
	assert.True(t, prot)

	_, err = c.Write(0, []byte{0})
	require.ErrorIs(t, err, flash.ErrProgramFailed)
	assert.Equal(t, byte(0xFF), sim.Bytes()[0])

	require.NoError(t, c.Unprotect())
	prot, err = c.SectorProtected(0)
	require.NoError(t, err)
	assert.False(t, prot)

	_, err = c.Write(0, []byte{0})
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), sim.Bytes()[0])
}

func TestWriteEnableDisable(t *testing.T) {
	c, _ := setupChip(t, 0)

	ok, err := c.WriteEnable()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.WriteDisable())
	s, err := c.Status()
	require.NoError(t, err)
	assert.Zero(t, s&statusWriteEnable)
}

func TestBusyTimeout(t *testing.T) {
	sim := spisim.NewAT25DF641A()
	c, err := Probe(sim, WithPollOptions(flash.PollOptions{Interval: time.Millisecond, Timeout: 10 * time.Millisecond}))
	require.NoError(t, err)

	sim.BusyPolls = 1 << 30
	n, err := c.Write(0, []byte{0})
	require.ErrorIs(t, err, flash.ErrTimeout)
	assert.Zero(t, n, "a page is only counted once the chip reports ready")
	assert.Equal(t, byte(0x00), sim.Bytes()[0], "the program itself was accepted")
}
