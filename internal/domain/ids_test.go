package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewSessionID(), NewSessionID())
	assert.NotEqual(t, NewRequestID(), NewRequestID())
}

func TestParseSessionID(t *testing.T) {
	id, err := ParseSessionID("  sess-1  ")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id.String())

	_, err = ParseSessionID("   ")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestParseRequestID(t *testing.T) {
	id, err := ParseRequestID("req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", id.String())

	_, err = ParseRequestID("")
	assert.ErrorIs(t, err, ErrEmptyID)
}
