package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}

// Mix returns the element-wise sum of the given signals over their
// shortest length.
func Mix(signals ...[]float64) []float64 {
	if len(signals) == 0 {
		return nil
	}
	n := len(signals[0])
	for _, x := range signals[1:] {
		n = min(n, len(x))
	}
	out := make([]float64, n)
	for _, x := range signals {
		for i := range out {
			out[i] += x[i]
		}
	}
	return out
}

// Delay returns x delayed by n samples, zero-padded at the start and
// truncated to len(x).
func Delay(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	if n < len(x) {
		copy(out[n:], x)
	}
	return out
}
