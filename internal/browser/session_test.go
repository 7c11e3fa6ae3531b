package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBoundedExpiresBlockedAction(t *testing.T) {
	// An action that never resolves on its own, like a query for an
	// element that is not on the page.
	blocked := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	err := runBounded(context.Background(), 20*time.Millisecond, blocked)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second, "resolves at the bound, not at session close")
}

func TestRunBoundedPassesThroughFastResult(t *testing.T) {
	err := runBounded(context.Background(), time.Second, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok, "action context carries a deadline")
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)
		return nil
	})
	assert.NoError(t, err)
}

func TestRunBoundedPropagatesActionError(t *testing.T) {
	boom := errors.New("node not found")
	err := runBounded(context.Background(), time.Second, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunBoundedRespectsParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	err := runBounded(parent, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}
