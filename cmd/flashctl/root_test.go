package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/flashkit/internal/config"
)

func TestRootCommand_ConfigAndFlags(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "flashctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
chip: custom
geometry:
  byte_count: 65536
  page_size: 256
  block_size: 4096
log:
  level: warn
`), 0o644))
	img := filepath.Join(dir, "chip.img")

	run := func(args ...string) (string, error) {
		rootCmd.SetArgs(append([]string{"--config", cfgPath, "--image", img, "--no-color"}, args...))
		return captureOutput(t, rootCmd.Execute)
	}

	_, err := run("mkimage", img)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, config.ChipCustom, cfg.Chip)
	assert.Equal(t, img, cfg.Image, "--image flag overrides the file")

	out, err := run("ls")
	require.NoError(t, err)
	assertContains(t, out, []string{"No stores"})

	_, err = run("--chip", "w25q128", "ls")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownChip)
}

func TestVersionCommand(t *testing.T) {
	resetFlags()
	rootCmd.SetArgs([]string{"version"})
	out, err := captureOutput(t, rootCmd.Execute)
	require.NoError(t, err)
	assertContains(t, out, []string{"flashctl dev", "commit: none"})
}
