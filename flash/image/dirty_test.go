package image

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_PageAlignment(t *testing.T) {
	tr := newTracker()
	tr.Add(100, 200)

	got := tr.coalesce()
	require.Len(t, got, 1)
	assert.Equal(t, Range{Off: 0, Len: 4096}, got[0])
}

func TestTracker_Coalesce(t *testing.T) {
	tests := []struct {
		name string
		adds [][2]int
		want []Range
	}{
		{"adjacent", [][2]int{{4096, 4096}, {8192, 4096}}, []Range{{4096, 8192}}},
		{"overlapping", [][2]int{{4000, 200}, {4100, 10}}, []Range{{0, 8192}}},
		{"gap", [][2]int{{0, 1}, {3 * 4096, 1}}, []Range{{0, 4096}, {3 * 4096, 4096}}},
		{"unsorted", [][2]int{{5 * 4096, 10}, {0, 10}, {4096, 10}}, []Range{{0, 8192}, {5 * 4096, 4096}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker()
			for _, a := range tt.adds {
				tr.Add(a[0], a[1])
			}
			assert.Equal(t, tt.want, tr.coalesce())
		})
	}
}

func TestTracker_IgnoresEmpty(t *testing.T) {
	tr := newTracker()
	tr.Add(10, 0)
	assert.False(t, tr.pending())
	assert.Nil(t, tr.coalesce())
}

func TestTracker_Flush(t *testing.T) {
	tr := newTracker()
	tr.Add(0, 10)
	tr.Add(9000, 10)

	var synced [][2]int
	err := tr.flush(context.Background(), 10000, func(off, n int) error {
		synced = append(synced, [2]int{off, n})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 4096}, {8192, 10000 - 8192}}, synced, "last range is clipped to the file")
	assert.False(t, tr.pending())
}

func TestTracker_FlushErrorKeepsRanges(t *testing.T) {
	tr := newTracker()
	tr.Add(0, 10)
	boom := errors.New("msync")

	err := tr.flush(context.Background(), 4096, func(int, int) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.True(t, tr.pending())
}

func TestTracker_FlushCancelled(t *testing.T) {
	tr := newTracker()
	tr.Add(0, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tr.flush(ctx, 4096, func(int, int) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, tr.pending())
}
