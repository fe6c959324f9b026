package image

import (
	"context"
	"sort"
)

const (
	defaultRangeCapacity = 64

	// flushPageSize is the granularity dirty ranges are rounded to.
	flushPageSize = 4096
)

// Range is a dirty byte range of the image file.
type Range struct {
	Off int64
	Len int64
}

// tracker accumulates ranges modified through the device and flushes them
// page-aligned and coalesced. Not safe for concurrent use.
type tracker struct {
	ranges   []Range
	pageSize int64
}

func newTracker() *tracker {
	return &tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: flushPageSize,
	}
}

// Add records a dirty range. Alignment and merging happen at flush time.
func (t *tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

func (t *tracker) pending() bool { return len(t.ranges) > 0 }

func (t *tracker) reset() { t.ranges = t.ranges[:0] }

// coalesce page-aligns the recorded ranges, sorts them and merges overlapping
// or adjacent ones.
func (t *tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = (end/t.pageSize + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	cur := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= cur.Off+cur.Len {
			cur.Len = max(cur.Off+cur.Len, next.Off+next.Len) - cur.Off
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

// flush hands every coalesced range to sync and clears the tracker once all
// of them succeeded. Ranges are clipped to size.
func (t *tracker) flush(ctx context.Context, size int64, sync func(off, n int) error) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(r.Off+r.Len, size)
		if r.Off >= end {
			continue
		}
		if err := sync(int(r.Off), int(end-r.Off)); err != nil {
			return err
		}
	}
	t.reset()
	return nil
}
