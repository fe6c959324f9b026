package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/flash/spi"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flashctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(""))
	require.NoError(t, err)
	assert.Equal(t, ChipAT25DF641A, cfg.Chip)
	assert.Equal(t, "/dev/spidev0.0", cfg.SPI.Device)
	assert.Equal(t, uint32(8_000_000), cfg.SPI.SpeedHz)
	assert.Equal(t, 5*time.Second, cfg.Poll.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)

	g, err := cfg.ChipGeometry()
	require.NoError(t, err)
	assert.Equal(t, flash.Geometry{ByteCount: 8 << 20, PageSize: 256, BlockSize: 4096}, g)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
chip: AT45DB321E
image: /tmp/chip.img
spi:
  device: /dev/spidev1.0
  speed_hz: 1000000
  mode: 3
poll:
  interval: 1ms
  timeout: 2s
log:
  level: debug
  json: true
`)
	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, ChipAT45DB321E, cfg.Chip, "chip names are case-insensitive")
	assert.Equal(t, "/tmp/chip.img", cfg.Image)
	assert.Equal(t, time.Millisecond, cfg.Poll.Interval)
	assert.True(t, cfg.Log.JSON)

	bus := cfg.SPIBus()
	assert.Equal(t, spi.Config{Device: "/dev/spidev1.0", Mode: spi.Mode3, SpeedHz: 1_000_000, BitsPerWord: 8}, bus)
	assert.Equal(t, flash.PollOptions{Interval: time.Millisecond, Timeout: 2 * time.Second}, cfg.PollOptions())

	g, err := cfg.ChipGeometry()
	require.NoError(t, err)
	assert.Equal(t, uint32(512), g.PageSize)
}

func TestLoad_Environment(t *testing.T) {
	path := writeConfig(t, "chip: at25df641a\n")
	t.Setenv("FLASHCTL_CHIP", "custom")
	t.Setenv("FLASHCTL_GEOMETRY_BYTE_COUNT", "65536")
	t.Setenv("FLASHCTL_GEOMETRY_PAGE_SIZE", "256")
	t.Setenv("FLASHCTL_GEOMETRY_BLOCK_SIZE", "4096")
	t.Setenv("FLASHCTL_SPI_DEVICE", "/dev/spidev2.1")

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, ChipCustom, cfg.Chip)
	assert.Equal(t, "/dev/spidev2.1", cfg.SPI.Device)

	g, err := cfg.ChipGeometry()
	require.NoError(t, err)
	assert.Equal(t, flash.Geometry{ByteCount: 65536, PageSize: 256, BlockSize: 4096}, g)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"unknown chip", "chip: w25q128\n", ErrUnknownChip},
		{"bad custom geometry", "chip: custom\ngeometry:\n  byte_count: 4096\n  page_size: 256\n  block_size: 4096\n", flash.ErrInvalidGeometry},
		{"bad spi mode", "spi:\n  mode: 4\n", ErrInvalid},
		{"negative timeout", "poll:\n  timeout: -1s\n", ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(New(writeConfig(t, tt.body)))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(New(writeConfig(t, "chip: [unclosed\n")))
	require.Error(t, err)
}

func TestChipNames(t *testing.T) {
	assert.Equal(t, []string{ChipAT25DF641A, ChipAT45DB321E, ChipCustom}, ChipNames())
}
