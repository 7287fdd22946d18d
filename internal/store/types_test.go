package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictOriented(t *testing.T) {
	c := Conflict{Region: "Sol", FactionA: "Mother Gaia", FactionB: "Sol Workers' Party", WonDaysA: 3, WonDaysB: 1}

	same, ok := c.Oriented("mother gaia")
	assert.True(t, ok)
	assert.Equal(t, c, same)

	flipped, ok := c.Oriented("Sol Workers' Party")
	assert.True(t, ok)
	assert.Equal(t, "Sol Workers' Party", flipped.FactionA)
	assert.Equal(t, "Mother Gaia", flipped.FactionB)
	assert.Equal(t, 1, flipped.WonDaysA)
	assert.Equal(t, 3, flipped.WonDaysB)

	_, ok = c.Oriented("Canonn")
	assert.False(t, ok)
}

func TestFailure(t *testing.T) {
	assert.NoError(t, Failure(nil))

	err := Failure(errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.Contains(t, err.Error(), "connection refused")

	notFound := fmt.Errorf("presence Sol/Canonn: %w", ErrNotFound)
	assert.Same(t, notFound, Failure(notFound))
	assert.NotErrorIs(t, Failure(notFound), ErrStoreFailure)

	assert.Same(t, err, Failure(err))
}
