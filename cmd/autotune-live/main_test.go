package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
)

func TestParseOptionsDefaults(t *testing.T) {
	o, err := parseOptions(nil, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 48000, o.sampleRate)
	assert.Equal(t, 1, o.channels)
	assert.Equal(t, 512, o.period)
	assert.Equal(t, 3, o.periods)
	assert.Equal(t, 2*time.Second, o.statusEvery)
	assert.Empty(t, o.sets)
}

func TestParseOptionsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-channels", "0"},
		{"-period", "-1"},
		{"-status", "-1s"},
		{"-set", "oops"},
		{"-nope"},
	} {
		_, err := parseOptions(args, &bytes.Buffer{})
		assert.Error(t, err, args)
	}
}

func TestNewEngineFromOptions(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte(`{"version":1,"params":{"fft_size":512,"mix":0.5}}`), 0o644))

	o, err := parseOptions([]string{
		"-samplerate", "44100",
		"-period", "256",
		"-channels", "2",
		"-note", "G3",
		"-interp", "hermite",
		"-state-in", statePath,
		"-set", "mix=0.25",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	e, err := newEngine(o, quietLog())
	require.NoError(t, err)

	assert.True(t, e.Prepared())
	assert.Equal(t, 44100.0, e.SampleRate())
	assert.Equal(t, 256, e.MaxBlockSize())
	assert.Equal(t, 2, e.Channels())
	assert.Equal(t, 512, e.Latency())
	assert.Equal(t, 55, e.Notes().Current())

	mix, err := e.Parameter(autotune.ParamMix)
	require.NoError(t, err)
	assert.Equal(t, 0.25, mix, "flags override the loaded state")
}

func TestNewEngineRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"-interp", "sinc"},
		{"-note", "X1"},
		{"-set", "warp=2"},
		{"-state-in", filepath.Join(t.TempDir(), "missing.json")},
	} {
		o, err := parseOptions(args, &bytes.Buffer{})
		require.NoError(t, err, args)

		_, err = newEngine(o, quietLog())
		assert.Error(t, err, args)
	}
}
