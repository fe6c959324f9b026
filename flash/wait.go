package flash

import (
	"context"
	"fmt"
	"time"
)

// BusyChecker reports whether the chip is still executing an erase or program.
type BusyChecker interface {
	Busy() (bool, error)
}

// PollOptions bounds a ready wait. A zero Timeout waits indefinitely, which is
// what the chip datasheets assume; a zero Interval polls back to back.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

// WaitReady polls c until it reports not busy. It returns ErrTimeout when the
// timeout elapses or ctx is done first.
func WaitReady(ctx context.Context, c BusyChecker, opts PollOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var ticker *time.Ticker
	if opts.Interval > 0 {
		ticker = time.NewTicker(opts.Interval)
		defer ticker.Stop()
	}

	for {
		busy, err := c.Busy()
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		if ticker == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %w", ErrTimeout, ctxErr)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
