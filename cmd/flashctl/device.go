package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/flash/at25"
	"github.com/joshuapare/flashkit/flash/at45"
	"github.com/joshuapare/flashkit/flash/image"
	"github.com/joshuapare/flashkit/flash/spi"
	"github.com/joshuapare/flashkit/internal/config"
	"github.com/joshuapare/flashkit/internal/logger"
	"github.com/joshuapare/flashkit/store"
)

// target is the device a command operates on.
type target struct {
	flash.Device
	Source string         // image path or spidev node
	ID     *flash.JEDECID // nil for images
	close  func() error
}

func (t *target) Close() error { return t.close() }

// openTarget opens the configured image, or probes the configured chip over
// spidev when no image is set.
func openTarget(ctx context.Context, readOnly bool) (*target, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	if cfg.Image != "" {
		return openImage(cfg.Image, readOnly)
	}
	return openChip(ctx, readOnly)
}

func openImage(path string, readOnly bool) (*target, error) {
	g, err := cfg.ChipGeometry()
	if err != nil {
		return nil, err
	}
	var opts []image.Option
	if readOnly {
		opts = append(opts, image.ReadOnly())
	}
	img, err := image.Open(path, g, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	printVerbose("Opened image %s (%d bytes)\n", path, g.ByteCount)
	return &target{Device: img, Source: path, close: img.Close}, nil
}

func openChip(ctx context.Context, readOnly bool) (*target, error) {
	bus, err := spi.Open(cfg.SPIBus())
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI bus: %w", err)
	}

	var (
		dev flash.Device
		id  flash.JEDECID
	)
	switch cfg.Chip {
	case config.ChipAT25DF641A:
		var c *at25.Chip
		c, err = at25.Probe(bus, at25.WithPollOptions(cfg.PollOptions()), at25.WithContext(ctx))
		if err == nil && !readOnly {
			// Parts power up with every sector protected.
			err = c.Unprotect()
		}
		if err == nil {
			dev, id = c, c.ID()
		}
	case config.ChipAT45DB321E:
		var c *at45.Chip
		c, err = at45.Probe(bus, at45.WithPollOptions(cfg.PollOptions()), at45.WithContext(ctx))
		if err == nil {
			dev, id = c, c.ID()
		}
	default:
		err = fmt.Errorf("chip %q has no SPI driver; use --image", cfg.Chip)
	}
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to probe %s: %w", cfg.SPI.Device, err)
	}
	if g, gerr := cfg.ChipGeometry(); gerr == nil && dev.Geometry() != g {
		logger.Warn("probed geometry differs from profile", "probed", dev.Geometry(), "chip", cfg.Chip)
	}
	printVerbose("Probed %s on %s\n", id, cfg.SPI.Device)
	return &target{Device: dev, Source: cfg.SPI.Device, ID: &id, close: bus.Close}, nil
}

// withManager opens the target, loads the directory and runs fn.
func withManager(readOnly bool, fn func(m *store.Manager, t *target) error) (err error) {
	ctx := context.Background()
	t, err := openTarget(ctx, readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", t.Source, cerr)
		}
	}()

	m, err := store.New(t, store.WithLogger(logger.L))
	if err != nil {
		return err
	}
	n, err := m.Rebuild()
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}
	logger.Debug("directory loaded", "source", t.Source, "stores", n)
	return fn(m, t)
}
