package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/resample"
)

var errFormat = errors.New("unsupported audio")

// clip is planar audio held in memory.
type clip struct {
	sampleRate int
	planes     [][]float64
}

func newClip(sampleRate, channels, frames int) *clip {
	c := &clip{sampleRate: sampleRate, planes: make([][]float64, channels)}
	for ch := range c.planes {
		c.planes[ch] = make([]float64, frames)
	}

	return c
}

func (c *clip) channels() int { return len(c.planes) }

func (c *clip) frames() int {
	if len(c.planes) == 0 {
		return 0
	}

	return len(c.planes[0])
}

// resampled returns c converted to rate, or c itself when no conversion is
// needed.
func (c *clip) resampled(rate int, q resample.Quality) (*clip, error) {
	if rate <= 0 || rate == c.sampleRate {
		return c, nil
	}

	r, err := resample.NewForRates(float64(c.sampleRate), float64(rate), q)
	if err != nil {
		return nil, err
	}

	return &clip{sampleRate: rate, planes: r.ConvertPlanes(c.planes)}, nil
}

// readClip loads a WAV or Ogg-Opus file, chosen by extension.
func readClip(path string) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return decodeWAV(f)
	case ".ogg", ".opus":
		return decodeOggOpus(f)
	default:
		return nil, fmt.Errorf("%w: %s", errFormat, path)
	}
}

// decodeWAV reads integer PCM and scales it into [-1, 1).
func decodeWAV(r io.ReadSeeker) (*clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: invalid WAV file", errFormat)
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, err
	}

	format := dec.Format()
	bitDepth := int(dec.SampleBitDepth())

	if bitDepth == 0 || format == nil || format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: unknown WAV layout", errFormat)
	}

	bytesPerSample := (bitDepth-1)/8 + 1
	samples := int(dec.PCMLen()) / bytesPerSample
	frames := samples / format.NumChannels

	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, frames*format.NumChannels),
		SourceBitDepth: bitDepth,
	}

	n, err := dec.PCMBuffer(buf)
	if err != nil {
		return nil, err
	}

	frames = n / format.NumChannels
	scale := 1 / math.Pow(2, float64(bitDepth-1))

	interleaved := make([]float32, frames*format.NumChannels)
	for i := range interleaved {
		interleaved[i] = float32(float64(buf.Data[i]) * scale)
	}

	c := newClip(format.SampleRate, format.NumChannels, frames)
	core.Deinterleave(c.planes, interleaved)

	return c, nil
}

// writeWAV encodes c as integer PCM, clipping to full scale.
func writeWAV(path string, c *clip, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("%w: bit depth %d", errFormat, bitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = encodeWAV(f, c, bitDepth)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	return err
}

func encodeWAV(w io.WriteSeeker, c *clip, bitDepth int) error {
	nch := c.channels()
	if nch == 0 {
		return fmt.Errorf("%w: no channels", errFormat)
	}

	interleaved := make([]float32, c.frames()*nch)
	core.Interleave(interleaved, c.planes)

	full := math.Pow(2, float64(bitDepth-1)) - 1

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: nch,
			SampleRate:  c.sampleRate,
		},
		Data:           make([]int, len(interleaved)),
		SourceBitDepth: bitDepth,
	}

	for i, x := range interleaved {
		buf.Data[i] = int(math.Round(core.Clamp(float64(x), -1, 1) * full))
	}

	enc := wav.NewEncoder(w, c.sampleRate, bitDepth, nch, 1)
	if err := enc.Write(buf); err != nil {
		return err
	}

	return enc.Close()
}
