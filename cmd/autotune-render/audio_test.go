package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-autotune/dsp/resample"
	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	src := newClip(44100, 2, 1000)
	copy(src.planes[0], testutil.DeterministicSine(440, 44100, 0.5, 1000))
	copy(src.planes[1], testutil.DeterministicNoise(7, 0.25, 1000))

	require.NoError(t, writeWAV(path, src, 16))

	got, err := readClip(path)
	require.NoError(t, err)

	assert.Equal(t, 44100, got.sampleRate)
	require.Equal(t, 2, got.channels())
	require.Equal(t, 1000, got.frames())

	for ch := range src.planes {
		for i, want := range src.planes[ch] {
			assert.InDelta(t, want, got.planes[ch][i], 1.0/16384, "ch %d sample %d", ch, i)
		}
	}
}

func TestWriteWAVClips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hot.wav")

	src := newClip(8000, 1, 3)
	copy(src.planes[0], []float64{2, -2, 0})

	require.NoError(t, writeWAV(path, src, 16))

	got, err := readClip(path)
	require.NoError(t, err)
	assert.InDelta(t, 32767.0/32768, got.planes[0][0], 1e-9)
	assert.InDelta(t, -32767.0/32768, got.planes[0][1], 1e-9)
	assert.Zero(t, got.planes[0][2])
}

func TestAudioFormatErrors(t *testing.T) {
	dir := t.TempDir()

	err := writeWAV(filepath.Join(dir, "x.wav"), newClip(8000, 1, 4), 8)
	assert.ErrorIs(t, err, errFormat)

	_, err = readClip(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)

	flac := filepath.Join(dir, "x.flac")
	require.NoError(t, writeWAV(filepath.Join(dir, "x.wav"), newClip(8000, 1, 4), 16))
	require.NoError(t, copyFile(filepath.Join(dir, "x.wav"), flac))

	_, err = readClip(flac)
	assert.ErrorIs(t, err, errFormat)
}

func TestOpusPacketSamples(t *testing.T) {
	cases := []struct {
		name   string
		packet []byte
		want   int
		ok     bool
	}{
		{"silk 20ms", []byte{1 << 3}, 960, true},
		{"silk 60ms two frames", []byte{3<<3 | 1}, 5760, true},
		{"hybrid 20ms", []byte{13 << 3}, 960, true},
		{"celt 2.5ms x4", []byte{16<<3 | 3, 4}, 480, true},
		{"too long", []byte{31<<3 | 3, 7}, 0, false},
		{"truncated count", []byte{16<<3 | 3}, 0, false},
		{"empty", nil, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := opusPacketSamples(tc.packet)
			if !tc.ok {
				assert.ErrorIs(t, err, errFormat)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAppendPCM16(t *testing.T) {
	got := appendPCM16(nil, []byte{0x00, 0x80, 0xff, 0x7f, 0x00, 0x40, 0x01})
	assert.Equal(t, []float32{-1, 32767.0 / 32768, 0.5}, got)
}

func TestClipResampled(t *testing.T) {
	src := newClip(44100, 2, 4410)

	same, err := src.resampled(44100, resample.QualityFast)
	require.NoError(t, err)
	assert.Same(t, src, same)

	same, err = src.resampled(0, resample.QualityFast)
	require.NoError(t, err)
	assert.Same(t, src, same)

	up, err := src.resampled(48000, resample.QualityFast)
	require.NoError(t, err)
	assert.Equal(t, 48000, up.sampleRate)
	assert.Equal(t, 2, up.channels())
	assert.Equal(t, 4800, up.frames())
}
