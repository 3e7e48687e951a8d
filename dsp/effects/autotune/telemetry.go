package autotune

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
)

// Snapshot is the analysis result of the most recent block.
type Snapshot struct {
	// Frequency is the tracked pitch in Hz, 0 when undetected.
	Frequency float64
	// Probability is the YIN confidence of Frequency.
	Probability float64
	// Voice is the MIDI note nearest to Frequency.
	Voice int
	// Target is the requested note.
	Target int
	// Ratio is the applied, quantized shift ratio.
	Ratio float64
	// Blocks counts processed blocks since Prepare.
	Blocks uint64
}

// telemetry publishes a Snapshot field by field without locking. Readers
// may observe fields from two adjacent blocks.
type telemetry struct {
	frequency   atomic.Uint64
	probability atomic.Uint64
	ratio       atomic.Uint64
	voice       atomic.Int64
	target      atomic.Int64
	blocks      atomic.Uint64
}

func (t *telemetry) reset() {
	t.frequency.Store(0)
	t.probability.Store(0)
	t.ratio.Store(math.Float64bits(1))
	t.voice.Store(pitchdetect.NoNote)
	t.target.Store(pitchdetect.NoNote)
	t.blocks.Store(0)
}

func (t *telemetry) publish(s Snapshot) {
	t.frequency.Store(math.Float64bits(s.Frequency))
	t.probability.Store(math.Float64bits(s.Probability))
	t.ratio.Store(math.Float64bits(s.Ratio))
	t.voice.Store(int64(s.Voice))
	t.target.Store(int64(s.Target))
	t.blocks.Add(1)
}

func (t *telemetry) load() Snapshot {
	return Snapshot{
		Frequency:   math.Float64frombits(t.frequency.Load()),
		Probability: math.Float64frombits(t.probability.Load()),
		Voice:       int(t.voice.Load()),
		Target:      int(t.target.Load()),
		Ratio:       math.Float64frombits(t.ratio.Load()),
		Blocks:      t.blocks.Load(),
	}
}
