package pitch

import (
	"fmt"
	"math"
)

const twoPi = 2 * math.Pi

// WrapPhase maps x onto its principal argument in (-π, π].
//
// Non-negative inputs are reduced with a positive 2π modulus and negative
// inputs with a negative one, both as floored modulo, so the two half-lines
// wrap symmetrically.
func WrapPhase(x float64) float64 {
	var r float64
	if x >= 0 {
		r = floorMod(x+math.Pi, twoPi) - math.Pi
	} else {
		r = floorMod(x+math.Pi, -twoPi) + math.Pi
	}

	// Rounding at the interval ends.
	if r <= -math.Pi {
		r += twoPi
	} else if r > math.Pi {
		r -= twoPi
	}

	return r
}

// floorMod returns a - b*floor(a/b); the result takes the sign of b.
func floorMod(a, b float64) float64 {
	return a - b*math.Floor(a/b)
}

// PhaseVocoder propagates bin phases from frame to frame so that a spectrum
// analysed at one hop can be resynthesised as if played back ratio times
// faster.
//
// The phase tables may be longer than the number of processed bins; only
// bins [0, fftSize) are touched. A PhaseVocoder is not safe for concurrent
// use.
type PhaseVocoder struct {
	fftSize int
	hopSize int

	// omegaHop[k] is the expected phase advance of bin k over one hop.
	omegaHop []float64

	inputPhase  []float64
	outputPhase []float64

	resetPending bool
}

// NewPhaseVocoder creates a vocoder for fftSize bins advanced by hopSize
// samples per frame. tableLength sizes the phase tables and must be at least
// fftSize.
func NewPhaseVocoder(fftSize, hopSize, tableLength int) (*PhaseVocoder, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("phase vocoder fft size must be > 0: %d", fftSize)
	}

	if hopSize <= 0 || hopSize > fftSize {
		return nil, fmt.Errorf("phase vocoder hop size must be in [1, %d]: %d", fftSize, hopSize)
	}

	if tableLength < fftSize {
		return nil, fmt.Errorf("phase vocoder table length must be >= %d: %d", fftSize, tableLength)
	}

	p := &PhaseVocoder{
		fftSize:     fftSize,
		hopSize:     hopSize,
		omegaHop:    make([]float64, fftSize),
		inputPhase:  make([]float64, tableLength),
		outputPhase: make([]float64, tableLength),
	}

	for k := range p.omegaHop {
		p.omegaHop[k] = twoPi * float64(k) / float64(fftSize) * float64(hopSize)
	}

	return p, nil
}

// FFTSize returns the number of processed bins.
func (p *PhaseVocoder) FFTSize() int { return p.fftSize }

// HopSize returns the analysis hop in samples.
func (p *PhaseVocoder) HopSize() int { return p.hopSize }

// TableLength returns the length of each phase table.
func (p *PhaseVocoder) TableLength() int { return len(p.inputPhase) }

// RequestReset schedules both phase tables to be cleared before the next
// call to [PhaseVocoder.Modify].
func (p *PhaseVocoder) RequestReset() { p.resetPending = true }

// ResetPending reports whether a reset is scheduled.
func (p *PhaseVocoder) ResetPending() bool { return p.resetPending }

// Reset clears both phase tables immediately.
func (p *PhaseVocoder) Reset() {
	clear(p.inputPhase)
	clear(p.outputPhase)
	p.resetPending = false
}

// IsZero reports whether both phase tables are entirely zero.
func (p *PhaseVocoder) IsZero() bool {
	for i := range p.inputPhase {
		if p.inputPhase[i] != 0 || p.outputPhase[i] != 0 {
			return false
		}
	}

	return true
}

// Modify rewrites the first fftSize bins of spectrum in place. Magnitudes are
// kept; each bin's phase becomes the accumulated output phase advanced by
// the bin's true frequency times ratio.
func (p *PhaseVocoder) Modify(spectrum []complex128, ratio float64) {
	if p.resetPending {
		p.Reset()
	}

	n := min(p.fftSize, len(spectrum))
	for k := range n {
		re, im := real(spectrum[k]), imag(spectrum[k])
		magnitude := math.Hypot(re, im)
		phase := math.Atan2(im, re)

		deviation := phase - p.inputPhase[k] - p.omegaHop[k]
		increment := p.omegaHop[k] + WrapPhase(deviation)

		out := WrapPhase(p.outputPhase[k] + increment*ratio)
		p.outputPhase[k] = out
		p.inputPhase[k] = phase

		sin, cos := math.Sincos(out)
		spectrum[k] = complex(magnitude*cos, magnitude*sin)
	}
}
