package main

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
)

const bytesPerSample = 4

// duplex adapts the engine to malgo's interleaved F32 data callback.
type duplex struct {
	engine   autotune.Processor
	channels int
	samples  []float32
	planes   [][]float64
}

// newDuplex preallocates for callbacks of up to maxFrames frames. Longer
// callbacks grow the buffers once.
func newDuplex(engine autotune.Processor, channels, maxFrames int) *duplex {
	d := &duplex{
		engine:   engine,
		channels: channels,
		planes:   make([][]float64, channels),
	}
	d.grow(maxFrames)

	return d
}

func (d *duplex) grow(frames int) {
	if cap(d.samples) >= frames*d.channels {
		d.samples = d.samples[:cap(d.samples)]
		return
	}

	d.samples = make([]float32, frames*d.channels)
	for ch := range d.planes {
		d.planes[ch] = make([]float64, frames)
	}
}

// process is the device data callback: it reads captured frames from in,
// runs them through the engine and writes the result to out.
func (d *duplex) process(out, in []byte, frameCount uint32) {
	frames := int(frameCount)
	d.grow(frames)

	samples := d.samples[:frames*d.channels]

	got := decodeF32(samples, in)
	clear(samples[got:])

	for ch, plane := range d.planes {
		d.planes[ch] = plane[:frames]
	}

	core.Deinterleave(d.planes, samples)
	d.engine.Process(d.planes)
	core.Interleave(samples, d.planes)

	wrote := encodeF32(out, samples)
	clear(out[wrote*bytesPerSample:])
}

// decodeF32 reads little-endian float32 samples and returns how many it read.
func decodeF32(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/bytesPerSample)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*bytesPerSample:]))
	}

	return n
}

// encodeF32 writes little-endian float32 samples and returns how many it wrote.
func encodeF32(dst []byte, src []float32) int {
	n := min(len(src), len(dst)/bytesPerSample)
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*bytesPerSample:], math.Float32bits(src[i]))
	}

	return n
}
