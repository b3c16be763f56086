package bulk

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfItsKind(t *testing.T) {
	err := invalidConfig("compile", "batch size must be a positive integer, got %d", 0).WithDetail("shape", "Order")

	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, "bulk: compile: batch size must be a positive integer, got 0", err.Error())
	assert.Equal(t, "Order", err.Details["shape"])

	wrapped := fmt.Errorf("loading mapping: %w", err)
	assert.ErrorIs(t, wrapped, ErrInvalidConfiguration)
	assert.True(t, IsKind(wrapped, KindInvalidConfiguration))
	assert.False(t, IsKind(errors.New("plain"), KindInvalidConfiguration))
}

func TestWrapTransport(t *testing.T) {
	assert.NoError(t, wrapTransport("write", nil))

	err := wrapTransport("write", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "bulk: write: transport failure: context deadline exceeded", err.Error())

	inner := fmt.Errorf("batch 2: %w", ErrCursorClosed)
	assert.Same(t, inner, wrapTransport("write", inner), "already classified errors pass through")
}
