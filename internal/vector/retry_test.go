package vector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pkgerrors "vectorhub/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        4,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetryConnectionErrors(t *testing.T) {
	attempts := 0
	v, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, pkgerrors.Connection("search", "docs", errors.New("unavailable"), "engine call failed")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, pkgerrors.AlreadyExists("create", "docs")
	})
	assert.ErrorIs(t, err, pkgerrors.ErrCollectionExists)
	assert.Equal(t, 1, attempts)
}

func TestRetryStopsOnOutcomeUnknown(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		attempts++
		return 0, pkgerrors.Connection("insert", "docs",
			fmt.Errorf("%w: %w", pkgerrors.ErrOutcomeUnknown, context.DeadlineExceeded), "batch may be applied")
	})
	assert.ErrorIs(t, err, pkgerrors.ErrOutcomeUnknown)
	assert.Equal(t, 1, attempts)
}

func TestRetryGivesUp(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		attempts++
		return 0, pkgerrors.Connection("open", "", errors.New("refused"), "dial")
	})
	assert.ErrorIs(t, err, pkgerrors.ErrConnection)
	assert.Equal(t, 4, attempts)
}

func TestRetryOpen(t *testing.T) {
	spy := newSpy()
	spy.openErr = errors.New("connection refused")
	calls := 0
	h, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context) (*Handle, error) {
		calls++
		if calls == 2 {
			spy.openErr = nil
		}
		return Open(ctx, testConfig(), spy)
	})
	require.NoError(t, err)
	assert.NoError(t, h.Close(context.Background()))
	assert.Equal(t, 2, calls)
}
