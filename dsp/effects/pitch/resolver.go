package pitch

import (
	"math"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
)

const (
	// MinShiftRatio is the lowest applied ratio: one octave down fills the
	// output ring exactly.
	MinShiftRatio = 0.5
	// MaxShiftRatio is the highest applied ratio.
	MaxShiftRatio = 16.0

	// shiftGuard bounds the jump between consecutive accepted ratios.
	shiftGuard = 12.0
)

// ResolveShift returns the ratio that moves trackedFrequency onto targetNote.
//
// The tracked frequency is rounded to the nearest MIDI note (the voice note)
// and the candidate ratio is 2^((target-voice)/12). previousShift is returned
// unchanged when no pitch was tracked, when targetNote is undefined, or when
// the candidate differs from previousShift by 12 or more.
func ResolveShift(trackedFrequency float64, targetNote int, previousShift float64) float64 {
	voice := pitchdetect.FrequencyToMIDI(trackedFrequency)
	if voice == pitchdetect.NoNote || targetNote < 0 {
		return previousShift
	}

	candidate := mathPower2(float64(targetNote-voice) / 12)
	if math.Abs(candidate-previousShift) < shiftGuard {
		return candidate
	}

	return previousShift
}

// QuantizeRatio rounds ratio to a multiple of 1/hopSize and clamps it to
// [MinShiftRatio, MaxShiftRatio]. Quantized ratios keep the synthesis phase
// advance ω·hop·ratio an integer multiple of ω, which preserves conjugate
// symmetry of the modified spectrum.
func QuantizeRatio(ratio float64, hopSize int) float64 {
	if hopSize <= 0 || !core.IsFinitePositive(ratio) {
		return 1
	}

	hop := float64(hopSize)

	return core.Clamp(math.Round(ratio*hop)/hop, MinShiftRatio, MaxShiftRatio)
}

// RatioSemitones returns the interval of ratio in semitones, 0 for
// non-positive or non-finite ratios.
func RatioSemitones(ratio float64) float64 {
	if !core.IsFinitePositive(ratio) {
		return 0
	}

	return 12 * mathLog2(ratio)
}

// Resolution is the outcome of one [ShiftResolver.Resolve] call.
type Resolution struct {
	// Frequency is the tracked frequency in Hz, 0 when undetected.
	Frequency float64
	// Voice is the MIDI note nearest to Frequency, or pitchdetect.NoNote.
	Voice int
	// Target is the requested note, or pitchdetect.NoNote.
	Target int
	// Detected reports whether both a voice and a target were available.
	Detected bool
	// Ratio is the held or newly accepted shift ratio.
	Ratio float64
	// Quantized is Ratio after [QuantizeRatio] for the current hop size.
	Quantized float64
	// PhaseReset reports that the (voice, target) pair changed.
	PhaseReset bool
}

// ShiftResolver tracks the current shift ratio across blocks.
type ShiftResolver struct {
	shift  float64
	voice  int
	target int
}

// NewShiftResolver returns a resolver holding the identity ratio.
func NewShiftResolver() *ShiftResolver {
	r := &ShiftResolver{}
	r.Reset()

	return r
}

// Reset returns to the identity ratio and forgets the last note pair.
func (r *ShiftResolver) Reset() {
	r.shift = 1
	r.voice = pitchdetect.NoNote
	r.target = pitchdetect.NoNote
}

// Shift returns the current unquantized ratio.
func (r *ShiftResolver) Shift() float64 { return r.shift }

// Resolve updates the ratio from a tracked frequency and a target note.
func (r *ShiftResolver) Resolve(trackedFrequency float64, targetNote, hopSize int) Resolution {
	res := Resolution{
		Frequency: trackedFrequency,
		Voice:     pitchdetect.FrequencyToMIDI(trackedFrequency),
		Target:    targetNote,
	}

	if targetNote < 0 {
		res.Target = pitchdetect.NoNote
	}

	if res.Voice != pitchdetect.NoNote && res.Target != pitchdetect.NoNote {
		res.Detected = true
		r.shift = ResolveShift(trackedFrequency, res.Target, r.shift)

		if res.Voice != r.voice || res.Target != r.target {
			res.PhaseReset = true
			r.voice = res.Voice
			r.target = res.Target
		}
	}

	res.Ratio = r.shift
	res.Quantized = QuantizeRatio(r.shift, hopSize)

	return res
}
