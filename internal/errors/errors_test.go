package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizedErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewChainError("sendTransaction", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "sendTransaction")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCategorizeWrappedError(t *testing.T) {
	inner := NewPersistenceError("ledger", stderrors.New("disk full"))
	wrapped := fmt.Errorf("commit failed: %w", inner)

	got := Categorize(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CategoryPersistence, got.Category)
	assert.Equal(t, "PERSISTENCE_ERROR", got.Code)
}

func TestCategorizeUnknownError(t *testing.T) {
	got := Categorize(stderrors.New("mystery"))
	require.NotNil(t, got)
	assert.Equal(t, CategorySystem, got.Category)

	assert.Nil(t, Categorize(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewChainError("gasPrice", stderrors.New("timeout"))))
	assert.False(t, IsRetryable(NewDispatchError("sign", stderrors.New("bad key"))))
	assert.False(t, IsRetryable(NewInvalidAddressError("0x123")))
	assert.False(t, IsRetryable(NewPersistenceError("wallets", stderrors.New("io"))))
	assert.False(t, IsRetryable(stderrors.New("unknown")))
	assert.False(t, IsRetryable(nil))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryValidation, CategoryOf(NewInvalidAddressError("x")))
	assert.Equal(t, CategoryNotification, CategoryOf(NewNotificationError("venue-1", stderrors.New("403"))))
	assert.Equal(t, CategorySystem, CategoryOf(stderrors.New("unknown")))
}
