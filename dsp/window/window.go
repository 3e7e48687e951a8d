package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeBartlett Type = iota
	TypeHann
	TypeHamming
)

// Metadata holds spectral properties of a window type.
type Metadata struct {
	Name            string
	ENBW            float64
	HighestSidelobe float64
	CoherentGain    float64
}

var metadataByType = map[Type]Metadata{
	TypeBartlett: {Name: "Bartlett", ENBW: 1.3333, HighestSidelobe: -26.5, CoherentGain: 0.5},
	TypeHann:     {Name: "Hann", ENBW: 1.5, HighestSidelobe: -31.5, CoherentGain: 0.5},
	TypeHamming:  {Name: "Hamming", ENBW: 1.3628, HighestSidelobe: -42.7, CoherentGain: 0.54},
}

var (
	hannCoeffs    = []float64{0.5, -0.5}
	hammingCoeffs = []float64{0.54, -0.46}
)

// Types lists every supported window type in parameter order.
func Types() []Type {
	return []Type{TypeBartlett, TypeHann, TypeHamming}
}

// String returns the lower-case window name.
func (t Type) String() string {
	if m, ok := metadataByType[t]; ok {
		return strings.ToLower(m.Name)
	}

	return fmt.Sprintf("window(%d)", int(t))
}

// Valid reports whether t names a supported window.
func (t Type) Valid() bool {
	_, ok := metadataByType[t]
	return ok
}

// ParseType resolves a window name such as "hann" or "Hamming".
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bartlett", "triangle":
		return TypeBartlett, nil
	case "hann", "hanning":
		return TypeHann, nil
	case "hamming":
		return TypeHamming, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownType, name)
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
//
// The symmetric form divides by L-1, the periodic form by L. Periodic Hann and
// Bartlett overlap-add to a constant at hops of L/2, L/4 and L/8.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	out := make([]float64, length)
	Fill(t, out, opts...)

	return out
}

// Fill writes the coefficients for len(dst) samples into dst.
// It never allocates and is safe to call from a real-time path.
func Fill(t Type, dst []float64, opts ...Option) {
	var cfg config

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	for i := range dst {
		dst[i] = evalWindow(t, samplePosition(i, len(dst), cfg.periodic))
	}
}

// At evaluates a single coefficient n of a window of the given length.
func At(t Type, n, length int, opts ...Option) float64 {
	var cfg config

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return evalWindow(t, samplePosition(n, length, cfg.periodic))
}

// Apply multiplies buf in-place by the selected window.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// Info returns static metadata for a window type.
func Info(t Type) Metadata {
	if m, ok := metadataByType[t]; ok {
		return m
	}

	return Metadata{}
}

// Sum returns the sum of all coefficients.
func Sum(coeffs []float64) float64 {
	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	return sum
}

// SqrtInPlace replaces every coefficient by its square root.
// Negative coefficients are clamped to zero first.
func SqrtInPlace(coeffs []float64) {
	for i, c := range coeffs {
		if c <= 0 {
			coeffs[i] = 0
			continue
		}

		coeffs[i] = math.Sqrt(c)
	}
}

// EquivalentNoiseBandwidth returns the ENBW in bins for a window.
func EquivalentNoiseBandwidth(coeffs []float64) (float64, error) {
	if len(coeffs) == 0 {
		return 0, errEmptyCoeffs
	}

	sum := 0.0
	sumSquares := 0.0

	for _, c := range coeffs {
		sum += c
		sumSquares += c * c
	}

	if sum == 0 {
		return 0, errZeroCoherentGain
	}

	return float64(len(coeffs)) * sumSquares / (sum * sum), nil
}

// OverlapAddRipple returns the peak deviation of the hop-shifted window sum
// from its mean, relative to that mean. Zero means the window overlap-adds to
// a constant at this hop.
func OverlapAddRipple(coeffs []float64, hop int) (float64, error) {
	if len(coeffs) == 0 {
		return 0, errEmptyCoeffs
	}

	if hop <= 0 || hop > len(coeffs) {
		return 0, fmt.Errorf("window hop must be in [1, %d]: %d", len(coeffs), hop)
	}

	lo, hi, mean := math.Inf(1), math.Inf(-1), 0.0

	for n := range hop {
		s := 0.0
		for i := n; i < len(coeffs); i += hop {
			s += coeffs[i]
		}

		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
		mean += s
	}

	mean /= float64(hop)
	if mean == 0 {
		return 0, errZeroCoherentGain
	}

	return math.Max(hi-mean, mean-lo) / mean, nil
}

// ApplyCoefficientsInPlace multiplies samples with coefficients in place.
func ApplyCoefficientsInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errMismatchedLength
	}

	vecmath.MulBlockInPlace(samples, coeffs)

	return nil
}

func evalWindow(t Type, x float64) float64 {
	if x < 0 {
		x = 0
	}

	if x > 1 {
		x = 1
	}

	switch t {
	case TypeBartlett:
		return 1 - math.Abs(2*x-1)
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeHamming:
		return cosineFromCoeffs(x, hammingCoeffs)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
