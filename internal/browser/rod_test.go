package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointerClickBudget(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, pointerClickBudget(time.Second))
	assert.Equal(t, maxPointerClick, pointerClickBudget(30*time.Second))
}

func TestClickWithFallbackCoveredTarget(t *testing.T) {
	timeout := 400 * time.Millisecond
	var fallbackErr error
	scripted := false

	start := time.Now()
	err := clickWithFallback(context.Background(), timeout,
		// a covered element keeps the pointer click waiting until its deadline
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		func(ctx context.Context) error {
			require.NoError(t, ctx.Err())
			scripted = true
			return nil
		},
		func(err error) { fallbackErr = err },
	)

	require.NoError(t, err)
	assert.True(t, scripted)
	assert.True(t, errors.Is(fallbackErr, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), timeout)
}

func TestClickWithFallbackPointerSucceeds(t *testing.T) {
	err := clickWithFallback(context.Background(), time.Second,
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			t.Fatal("programmatic click should not run")
			return nil
		},
		nil,
	)
	require.NoError(t, err)
}

func TestClickWithFallbackCallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := clickWithFallback(ctx, time.Second,
		func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		},
		func(ctx context.Context) error {
			t.Fatal("programmatic click should not run")
			return nil
		},
		nil,
	)
	assert.True(t, errors.Is(err, context.Canceled))
}
