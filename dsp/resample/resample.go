package resample

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidRatio indicates a non-positive up or down factor.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates a non-positive or non-finite sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality selects the anti-aliasing filter.
type Quality int

const (
	// QualityFast uses the shortest filter.
	QualityFast Quality = iota
	// QualityBalanced is the default.
	QualityBalanced
	// QualityBest uses the longest, steepest filter.
	QualityBest
)

// String returns the lower-case quality name.
func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityBalanced:
		return "balanced"
	case QualityBest:
		return "best"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// ParseQuality resolves "fast", "balanced" or "best". The empty string
// selects QualityBalanced.
func ParseQuality(name string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fast":
		return QualityFast, nil
	case "balanced", "":
		return QualityBalanced, nil
	case "best":
		return QualityBest, nil
	default:
		return QualityBalanced, fmt.Errorf("unknown resample quality %q", name)
	}
}

// profile holds the filter design parameters of a quality mode.
type profile struct {
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
}

func (q Quality) profile() profile {
	switch q {
	case QualityFast:
		return profile{tapsPerPhase: 16, cutoffScale: 0.88, kaiserBeta: 5}
	case QualityBest:
		return profile{tapsPerPhase: 64, cutoffScale: 0.96, kaiserBeta: 9}
	default:
		return profile{tapsPerPhase: 32, cutoffScale: 0.92, kaiserBeta: 7.5}
	}
}

// maxDenominator bounds the rational approximation of a rate ratio.
const maxDenominator = 4096

// Resampler converts by the rational factor up/down.
type Resampler struct {
	up, down int
	quality  Quality
	center   int
	phases   [][]float64
}

// New returns a resampler for the factor up/down, reduced to lowest terms.
func New(up, down int, q Quality) (*Resampler, error) {
	if up <= 0 || down <= 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, up, down)
	}

	g := gcd(up, down)
	r := &Resampler{up: up / g, down: down / g, quality: q}

	if r.up == 1 && r.down == 1 {
		return r, nil
	}

	taps := designLowpass(r.up, r.down, q.profile())
	r.center = (len(taps) - 1) / 2
	r.phases = splitPhases(taps, r.up)

	return r, nil
}

// NewForRates returns a resampler from inRate to outRate.
func NewForRates(inRate, outRate float64, q Quality) (*Resampler, error) {
	if !(inRate > 0) || !(outRate > 0) || math.IsInf(inRate, 0) || math.IsInf(outRate, 0) {
		return nil, fmt.Errorf("%w: %v -> %v", ErrInvalidRate, inRate, outRate)
	}

	up, down := Ratio(outRate/inRate, maxDenominator)

	return New(up, down, q)
}

// Factors returns the reduced up and down factors.
func (r *Resampler) Factors() (up, down int) { return r.up, r.down }

// Quality returns the filter quality.
func (r *Resampler) Quality() Quality { return r.quality }

// TapsPerPhase returns the length of the longest polyphase branch, 0 for
// the identity.
func (r *Resampler) TapsPerPhase() int {
	longest := 0
	for _, p := range r.phases {
		longest = max(longest, len(p))
	}

	return longest
}

// OutputLen returns the converted length of n input samples.
func (r *Resampler) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}

	return (n*r.up + r.down - 1) / r.down
}

// Convert returns src at the new rate. Samples beyond either end of src
// are treated as zero.
func (r *Resampler) Convert(src []float64) []float64 {
	out := make([]float64, r.OutputLen(len(src)))

	if len(r.phases) == 0 {
		copy(out, src)
		return out
	}

	for m := range out {
		pos := m*r.down + r.center
		base := pos / r.up

		var y float64

		for i, h := range r.phases[pos%r.up] {
			j := base - i
			if j < 0 {
				break
			}

			if j < len(src) {
				y += h * src[j]
			}
		}

		out[m] = y
	}

	return out
}

// ConvertPlanes converts every channel of a planar signal.
func (r *Resampler) ConvertPlanes(planes [][]float64) [][]float64 {
	out := make([][]float64, len(planes))
	for ch, p := range planes {
		out[ch] = r.Convert(p)
	}

	return out
}
