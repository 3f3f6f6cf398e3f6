package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, logLevel("info", false))
	assert.Equal(t, zerolog.DebugLevel, logLevel("debug", false))
	assert.Equal(t, zerolog.WarnLevel, logLevel("warn", false))
	assert.Equal(t, zerolog.ErrorLevel, logLevel("error", false))

	// The --debug flag wins over any configured level.
	assert.Equal(t, zerolog.DebugLevel, logLevel("error", true))

	// Unknown or empty config values fall back to info.
	assert.Equal(t, zerolog.InfoLevel, logLevel("verbose", false))
	assert.Equal(t, zerolog.InfoLevel, logLevel("", false))
}
