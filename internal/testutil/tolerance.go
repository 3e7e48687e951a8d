package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// their largest element difference exceeds eps. The failure names the worst
// index rather than the first.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	worst, err := MaxAbsDiff(got, want)
	if err != nil {
		t.Fatal(err)
	}

	if worst <= eps {
		return
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) == worst {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], worst, eps)
		}
	}

	t.Fatalf("max diff %v > eps %v", worst, eps)
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireRelativeError fails t if got deviates from want by more than rel,
// measured relative to |want|.
func RequireRelativeError(t *testing.T, label string, got, want, rel float64) {
	t.Helper()

	if e := RelativeError(got, want); !(e <= rel) {
		t.Fatalf("%s: got %v, want %v within %.3g%% (off by %.3g%%)", label, got, want, 100*rel, 100*e)
	}
}

// RelativeError returns |got-want|/|want|. A zero want compares absolutely.
func RelativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}

	return math.Abs(got-want) / math.Abs(want)
}

// MaxAbsDiff returns the largest absolute element difference of a and b, or
// an error if their lengths differ.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}

	worst := 0.0
	for i := range a {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}

	return worst, nil
}

// RMS returns the root-mean-square level of x, or 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(x)))
}

// ErrorDB returns the level of got-want relative to want in dB over their
// common length. Identical slices return -Inf, a silent reference +Inf.
func ErrorDB(got, want []float64) float64 {
	n := min(len(got), len(want))
	if n == 0 {
		return math.Inf(-1)
	}

	var errPow, refPow float64
	for i := range n {
		d := got[i] - want[i]
		errPow += d * d
		refPow += want[i] * want[i]
	}

	if errPow == 0 {
		return math.Inf(-1)
	}

	if refPow == 0 {
		return math.Inf(1)
	}

	return 10 * math.Log10(errPow/refPow)
}
