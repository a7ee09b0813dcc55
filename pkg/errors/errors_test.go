package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := Validation("insert", "docs", ErrInvalidDimension, "expected %d, got %d", 4, 3)

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrInvalidDimension))
	assert.False(t, errors.Is(err, ErrConnection))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestErrorMessage(t *testing.T) {
	err := Connection("search", "docs", context.DeadlineExceeded, "remote call failed")
	assert.Equal(t, "search: connection [collection=docs]: remote call failed: context deadline exceeded", err.Error())

	exists := AlreadyExists("create", "docs")
	assert.Equal(t, "create: already_exists [collection=docs]", exists.Error())
}

func TestKindOfWrapped(t *testing.T) {
	inner := NotFound("drop", "docs", nil, "")
	wrapped := fmt.Errorf("cleanup: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrCollectionNotFound))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Connection("exists", "", nil, "unavailable")))
	assert.False(t, Retryable(Connection("exists", "", ErrHandleClosed, "")))
	assert.False(t, Retryable(Connection("insert", "docs", fmt.Errorf("%w: %w", ErrOutcomeUnknown, context.DeadlineExceeded), "")))
	assert.False(t, Retryable(Validation("insert", "docs", ErrEmptyBatch, "")))
	assert.False(t, Retryable(Rejected("search", "docs", nil, "not loaded")))
	assert.False(t, Retryable(nil))
}

func TestExpected(t *testing.T) {
	assert.True(t, Expected(AlreadyExists("create", "docs")))
	assert.True(t, Expected(NotFound("drop", "docs", nil, "")))
	assert.False(t, Expected(Connection("drop", "docs", nil, "")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "remote_rejected", KindRemoteRejected.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
