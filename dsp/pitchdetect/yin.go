package pitchdetect

import (
	"fmt"
	"math"
)

const (
	// DefaultThreshold is the absolute YIN threshold used when none is given.
	DefaultThreshold = 0.15

	// minAnalysisLength is the shortest block that can produce a period:
	// the scan starts at lag 5 and inspects lag period+1.
	minAnalysisLength = 6
)

// YIN estimates the fundamental frequency of a monophonic block using the
// cumulative mean normalized difference function with an absolute threshold.
//
// Scratch storage is sized once by [NewYIN] or [YIN.Resize]; [YIN.Period]
// and [YIN.Estimate] never allocate. A YIN is not safe for concurrent use.
type YIN struct {
	threshold  float64
	normalized []float64

	// Running accumulators of the current analysis. They are cleared at the
	// start of every block and whenever the threshold changes.
	difference    float64
	cumulativeSum float64

	probability float64
}

// NewYIN creates an estimator able to analyse blocks of up to maxBlockSize
// samples. threshold must lie in (0, 1).
func NewYIN(maxBlockSize int, threshold float64) (*YIN, error) {
	y := &YIN{}

	err := y.SetThreshold(threshold)
	if err != nil {
		return nil, err
	}

	err = y.Resize(maxBlockSize)
	if err != nil {
		return nil, err
	}

	return y, nil
}

// Resize reallocates the normalized-difference scratch for blocks of up to
// maxBlockSize samples.
func (y *YIN) Resize(maxBlockSize int) error {
	if maxBlockSize <= 0 {
		return fmt.Errorf("yin block size must be > 0: %d", maxBlockSize)
	}

	y.normalized = make([]float64, maxBlockSize)
	y.Reset()

	return nil
}

// MaxBlockSize returns the longest block that is analysed in full. Longer
// blocks are analysed on their first MaxBlockSize samples.
func (y *YIN) MaxBlockSize() int { return len(y.normalized) }

// Threshold returns the absolute threshold.
func (y *YIN) Threshold() float64 { return y.threshold }

// SetThreshold updates the absolute threshold and clears the running
// normalization state so no scaling from the previous threshold survives.
func (y *YIN) SetThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold >= 1 {
		return fmt.Errorf("yin threshold must be in (0, 1): %f", threshold)
	}

	y.threshold = threshold
	y.Reset()

	return nil
}

// Reset clears the running accumulators and the last probability.
func (y *YIN) Reset() {
	y.difference = 0
	y.cumulativeSum = 0
	y.probability = 0
}

// Probability returns 1 - d'(period) of the last successful detection, or 0
// when the last block was undetected.
func (y *YIN) Probability() float64 { return y.probability }

// Estimate returns the fundamental frequency of samples in Hz, or 0 when no
// period was detected.
func (y *YIN) Estimate(samples []float64, sampleRate float64) float64 {
	period := y.Period(samples)
	if period <= 0 || sampleRate <= 0 {
		return 0
	}

	return sampleRate / period
}

// Period returns the detected period of samples in (fractional) samples, or
// -1 when no lag satisfies the threshold criterion.
//
// Lags are scanned in increasing order. Once lag tau exceeds 4, the candidate
// period tau-3 is accepted as soon as its normalized difference is below the
// threshold and below its right neighbour.
//
// Each lag's squared difference is computed afresh, and the running sum is
// seeded by the first lag's difference, so d' depends only on the waveform
// shape and not on its level.
func (y *YIN) Period(samples []float64) float64 {
	n := min(len(samples), len(y.normalized))

	y.Reset()

	if n < minAnalysisLength {
		return -1
	}

	x := samples[:n]
	d := y.normalized[:n]
	d[0] = 1

	for tau := 1; tau < n; tau++ {
		y.difference = 0
		for i := 0; i+tau < n; i++ {
			delta := x[i] - x[i+tau]
			y.difference += delta * delta
		}

		y.cumulativeSum += y.difference
		if y.cumulativeSum == 0 {
			d[tau] = 1
		} else {
			d[tau] = y.difference * float64(tau) / y.cumulativeSum
		}

		if tau <= 4 {
			continue
		}

		period := tau - 3
		if d[period] < y.threshold && d[period] < d[period+1] {
			y.probability = 1 - d[period]
			return QuadraticPeakPosition(d[:tau+1], period)
		}
	}

	return -1
}

// QuadraticPeakPosition refines the integer position pos of an extremum in
// data to sub-sample precision by fitting a parabola through pos and its two
// neighbours.
//
// Positions on or outside the buffer boundaries (pos 0 or len(data)-1) are
// returned unchanged, which also covers a missing neighbour. A flat
// neighbourhood has no parabola vertex (the denominator is zero); it returns
// the lower-valued of pos and its neighbours instead of dividing by zero.
func QuadraticPeakPosition(data []float64, pos int) float64 {
	n := len(data)
	if pos <= 0 || pos >= n-1 {
		return float64(pos)
	}

	s0, s1, s2 := data[pos-1], data[pos], data[pos+1]

	den := s0 - 2*s1 + s2
	if den == 0 {
		best := pos
		if s0 < data[best] {
			best = pos - 1
		}

		if s2 < data[best] {
			best = pos + 1
		}

		return float64(best)
	}

	return float64(pos) + 0.5*(s0-s2)/den
}
