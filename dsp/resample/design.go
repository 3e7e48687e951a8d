package resample

import "math"

// designLowpass returns an odd-length Kaiser-windowed sinc for the
// upsampled rate, scaled so every polyphase branch has unity DC gain.
func designLowpass(up, down int, p profile) []float64 {
	n := p.tapsPerPhase*up + 1
	cutoff := 0.5 / float64(max(up, down)) * p.cutoffScale
	center := float64(n-1) / 2
	norm := besselI0(p.kaiserBeta)

	taps := make([]float64, n)
	sum := 0.0

	for i := range taps {
		x := float64(i) - center
		t := x / center
		w := besselI0(p.kaiserBeta*math.Sqrt(math.Max(0, 1-t*t))) / norm

		taps[i] = 2 * cutoff * sinc(2*cutoff*x) * w
		sum += taps[i]
	}

	scale := float64(up) / sum
	for i := range taps {
		taps[i] *= scale
	}

	return taps
}

// splitPhases arranges taps so that phase p holds taps[p], taps[p+up], ...
func splitPhases(taps []float64, up int) [][]float64 {
	phases := make([][]float64, up)
	for p := range phases {
		for i := p; i < len(taps); i += up {
			phases[p] = append(phases[p], taps[i])
		}
	}

	return phases
}

// Ratio approximates v by num/den with den <= maxDen using continued
// fractions. Invalid input yields 1/1.
func Ratio(v float64, maxDen int) (num, den int) {
	if !(v > 0) || math.IsInf(v, 0) || maxDen <= 0 {
		return 1, 1
	}

	// Convergents h/k, starting from the integer part.
	hPrev, kPrev := 1.0, 0.0
	h, k := math.Floor(v), 1.0

	for x := v; ; {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)

		hNext, kNext := a*h+hPrev, a*k+kPrev
		if kNext > float64(maxDen) {
			break
		}

		hPrev, kPrev, h, k = h, k, hNext, kNext
	}

	num, den = int(math.Round(h)), int(math.Round(k))
	if num <= 0 || den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	if a < 0 {
		return -a
	}

	return max(a, 1)
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// besselI0 is the zeroth-order modified Bessel function of the first kind.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	q := x * x / 4

	for k := 1; k < 64; k++ {
		term *= q / float64(k*k)
		sum += term

		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
