package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/internal/config"
	"github.com/joshuapare/flashkit/internal/testutil"
)

// testGeometry is a small custom chip so tests stay fast.
var testGeometry = flash.Geometry{ByteCount: 64 << 10, PageSize: 256, BlockSize: 4096}

// resetFlags restores global flags to their defaults
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false
	noColor = true
	mkimageForce = false
	dumpLength = "256"
}

// useConfig installs a custom-chip config pointing at imagePath
func useConfig(imagePath string) {
	cfg = &config.Config{
		Chip:  config.ChipCustom,
		Image: imagePath,
		Geometry: config.GeometryConfig{
			ByteCount: testGeometry.ByteCount,
			PageSize:  testGeometry.PageSize,
			BlockSize: testGeometry.BlockSize,
		},
	}
}

// setupImage creates an erased test image and points the config at it
func setupImage(t *testing.T) string {
	t.Helper()
	resetFlags()
	path := testutil.TempImage(t, testGeometry, "chip.img")
	useConfig(path)
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	// Create a pipe to capture output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	// Redirect stdout to pipe
	os.Stdout = w

	// Run function
	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout

	// Read captured output
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
