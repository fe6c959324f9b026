package flash

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countdownChip struct {
	busyFor int
	polls   int
	err     error
}

func (c *countdownChip) Busy() (bool, error) {
	c.polls++
	if c.err != nil {
		return false, c.err
	}
	if c.busyFor > 0 {
		c.busyFor--
		return true, nil
	}
	return false, nil
}

func TestWaitReady_PollsUntilReady(t *testing.T) {
	c := &countdownChip{busyFor: 3}
	require.NoError(t, WaitReady(context.Background(), c, PollOptions{}))
	assert.Equal(t, 4, c.polls)
}

func TestWaitReady_WithInterval(t *testing.T) {
	c := &countdownChip{busyFor: 2}
	require.NoError(t, WaitReady(context.Background(), c, PollOptions{Interval: time.Millisecond}))
	assert.Equal(t, 3, c.polls)
}

func TestWaitReady_Timeout(t *testing.T) {
	c := &countdownChip{busyFor: 1 << 30}
	err := WaitReady(context.Background(), c, PollOptions{Interval: time.Millisecond, Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReady_StatusError(t *testing.T) {
	boom := errors.New("bus fault")
	err := WaitReady(context.Background(), &countdownChip{err: boom}, PollOptions{})
	require.ErrorIs(t, err, boom)
}
