package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	require.NotNil(t, logger.Logger)
	logger.Component("render").Debug("built")
}

func TestNilSafety(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.Component("tabs"))
	assert.NotNil(t, OrNop(nil))
	assert.NotNil(t, Nop().Logger)
}
