// Package config loads flashctl settings from a YAML file, FLASHCTL_*
// environment variables and command-line flags bound into one viper instance.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/flash/spi"
)

var (
	// ErrUnknownChip is returned for a chip name with no profile.
	ErrUnknownChip = errors.New("config: unknown chip")
	// ErrInvalid is returned when a loaded setting is out of range.
	ErrInvalid = errors.New("config: invalid setting")
)

// Chip names accepted by the chip setting.
const (
	ChipAT25DF641A = "at25df641a"
	ChipAT45DB321E = "at45db321e"
	ChipCustom     = "custom"
)

// Profiles maps chip names to their geometry. The custom chip takes its
// geometry from the geometry.* settings instead.
var Profiles = map[string]flash.Geometry{
	ChipAT25DF641A: {ByteCount: 8 << 20, PageSize: 256, BlockSize: 4096},
	ChipAT45DB321E: {ByteCount: 4 << 20, PageSize: 512, BlockSize: 4096},
}

// Config holds every flashctl setting.
type Config struct {
	Chip     string         `mapstructure:"chip"`
	Image    string         `mapstructure:"image"`
	Geometry GeometryConfig `mapstructure:"geometry"`
	SPI      SPIConfig      `mapstructure:"spi"`
	Poll     PollConfig     `mapstructure:"poll"`
	Log      LogConfig      `mapstructure:"log"`
}

// GeometryConfig describes a custom chip.
type GeometryConfig struct {
	ByteCount uint32 `mapstructure:"byte_count"`
	PageSize  uint32 `mapstructure:"page_size"`
	BlockSize uint32 `mapstructure:"block_size"`
}

// SPIConfig selects the spidev node used when no image is given.
type SPIConfig struct {
	Device  string `mapstructure:"device"`
	SpeedHz uint32 `mapstructure:"speed_hz"`
	Mode    uint8  `mapstructure:"mode"`
}

// PollConfig bounds busy polling on real chips.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LogConfig configures internal/logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	Dir   string `mapstructure:"dir"`
}

// New returns a viper instance with flashctl's search paths, environment
// binding and defaults. An explicit file, when non-empty, replaces the
// search paths.
func New(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("flashctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.flashctl")
		v.AddConfigPath("/etc/flashctl")
	}

	v.SetDefault("chip", ChipAT25DF641A)
	v.SetDefault("image", "")
	v.SetDefault("geometry.byte_count", 0)
	v.SetDefault("geometry.page_size", 0)
	v.SetDefault("geometry.block_size", 0)
	v.SetDefault("spi.device", "/dev/spidev0.0")
	v.SetDefault("spi.speed_hz", 8_000_000)
	v.SetDefault("spi.mode", 0)
	v.SetDefault("poll.interval", 100*time.Microsecond)
	v.SetDefault("poll.timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.dir", "")

	v.SetEnvPrefix("FLASHCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if one exists and decodes v into a Config. A
// missing file is not an error; defaults and environment apply.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Chip = strings.ToLower(strings.TrimSpace(cfg.Chip))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the chip name, SPI mode and polling settings.
func (c *Config) Validate() error {
	if _, err := c.ChipGeometry(); err != nil {
		return err
	}
	if c.SPI.Mode > uint8(spi.Mode3) {
		return fmt.Errorf("%w: spi.mode %d", ErrInvalid, c.SPI.Mode)
	}
	if c.Poll.Interval < 0 || c.Poll.Timeout < 0 {
		return fmt.Errorf("%w: negative poll duration", ErrInvalid)
	}
	return nil
}

// ChipGeometry resolves the configured chip to a validated geometry.
func (c *Config) ChipGeometry() (flash.Geometry, error) {
	var g flash.Geometry
	if c.Chip == ChipCustom {
		g = flash.Geometry{
			ByteCount: c.Geometry.ByteCount,
			PageSize:  c.Geometry.PageSize,
			BlockSize: c.Geometry.BlockSize,
		}
	} else {
		p, ok := Profiles[c.Chip]
		if !ok {
			return flash.Geometry{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownChip, c.Chip, strings.Join(ChipNames(), ", "))
		}
		g = p
	}
	if err := g.Validate(); err != nil {
		return flash.Geometry{}, fmt.Errorf("config: chip %s: %w", c.Chip, err)
	}
	return g, nil
}

// ChipNames lists the accepted chip names in order.
func ChipNames() []string {
	names := make([]string, 0, len(Profiles)+1)
	for name := range Profiles {
		names = append(names, name)
	}
	names = append(names, ChipCustom)
	sort.Strings(names)
	return names
}

// SPIBus returns the bus settings for spi.Open.
func (c *Config) SPIBus() spi.Config {
	cfg := spi.DefaultConfig(c.SPI.Device)
	cfg.Mode = spi.Mode(c.SPI.Mode)
	if c.SPI.SpeedHz > 0 {
		cfg.SpeedHz = c.SPI.SpeedHz
	}
	return cfg
}

// PollOptions returns the busy-wait bounds for the chip drivers.
func (c *Config) PollOptions() flash.PollOptions {
	return flash.PollOptions{Interval: c.Poll.Interval, Timeout: c.Poll.Timeout}
}
