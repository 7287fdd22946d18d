package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factionwatch/internal/store"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 3
	b := NewBreaker(cfg, nil)

	calls := 0
	failing := func() error {
		calls++
		return store.Failure(errors.New("connection refused"))
	}

	for i := 0; i < 3; i++ {
		err := b.Execute(failing)
		require.Error(t, err)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, gobreaker.StateOpen.String(), b.State())

	err := b.Execute(failing)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, store.ErrStoreFailure)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	cfg := DefaultBreakerConfig("test")
	cfg.FailureThreshold = 1
	b := NewBreaker(cfg, nil)

	err := b.Execute(func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed.String(), b.State())
}

func TestBreaker_Nil(t *testing.T) {
	var b *Breaker
	called := false
	require.NoError(t, b.Execute(func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.Equal(t, "closed", b.State())
}
