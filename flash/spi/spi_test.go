package spi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeader(t *testing.T) {
	assert.Equal(t, []byte{0x0B, 0x12, 0x34, 0x56, 0x00}, Header(0x0B, 0x123456, 0x00))
	assert.Equal(t, []byte{0x02, 0x00, 0x10, 0x00}, Header(0x02, 0x1000))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/spidev0.0")
	assert.Equal(t, Mode0, cfg.Mode)
	assert.Equal(t, uint8(8), cfg.BitsPerWord)
	assert.NotZero(t, cfg.SpeedHz)
}
