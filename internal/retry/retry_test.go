package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Base: time.Millisecond, Cap: 4 * time.Millisecond}
}

func TestDoFirstAttemptSucceeds(t *testing.T) {
	calls := 0

	err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return perrors.ErrAuthFailure
	})

	assert.ErrorIs(t, err, perrors.ErrAuthFailure)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return perrors.ErrTimeout
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		return perrors.NewAPIError("openai", 429, "rate limit")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoCancelledContextSkipsCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	err := Do(ctx, fastPolicy(3), func(ctx context.Context) error {
		calls++
		return perrors.ErrTimeout
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDoPlainErrorNotRetried(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0

	err := Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return perrors.ErrTimeout
	})

	assert.ErrorIs(t, err, perrors.ErrTimeout)
	assert.Equal(t, 1, calls)
}
