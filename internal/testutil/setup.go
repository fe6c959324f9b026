// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/joshuapare/flashkit/flash"
	"github.com/joshuapare/flashkit/flash/image"
)

// TempImage creates an erased chip image for g in a temporary directory and
// returns its path.
//
// Example:
//
//	path := testutil.TempImage(t, g, "chip.img")
func TempImage(t testing.TB, g flash.Geometry, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := image.Create(path, g); err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	return path
}

// OpenImage opens the image at path and closes it when the test ends unless
// the test closed it first.
func OpenImage(t testing.TB, path string, g flash.Geometry, opts ...image.Option) *image.Image {
	t.Helper()
	img, err := image.Open(path, g, opts...)
	if err != nil {
		t.Fatalf("Failed to open image: %v", err)
	}
	t.Cleanup(func() { img.Close() })
	return img
}

// SetupImage creates an erased image and opens it.
//
// Example:
//
//	img, path := testutil.SetupImage(t, g)
//	m, err := store.New(img)
func SetupImage(t testing.TB, g flash.Geometry, opts ...image.Option) (*image.Image, string) {
	t.Helper()
	path := TempImage(t, g, "chip.img")
	return OpenImage(t, path, g, opts...), path
}
