package cliutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "debug", true)
	require.NoError(t, err)

	logger.WithField("function", "TestNewLoggerJSON").Debug("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "TestNewLoggerJSON", entry["function"])
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, " warn ", false)
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}

func TestAssignments(t *testing.T) {
	a := Assignments{}

	require.NoError(t, a.Set("FFT_Size=2048"))
	require.NoError(t, a.Set("window = hann"))
	require.NoError(t, a.Set("fft_size=512"))

	assert.Equal(t, Assignments{"fft_size": "512", "window": "hann"}, a)
	assert.Equal(t, "fft_size=512,window=hann", a.String())

	assert.Error(t, a.Set("novalue"))
	assert.Error(t, a.Set("=3"))
}
