package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	for _, tc := range [][2]int{{0, 1}, {1, 0}, {-2, 3}} {
		if _, err := New(tc[0], tc[1], QualityBalanced); !errors.Is(err, ErrInvalidRatio) {
			t.Fatalf("New(%d, %d): got %v want ErrInvalidRatio", tc[0], tc[1], err)
		}
	}

	for _, tc := range [][2]float64{{0, 48000}, {44100, -1}, {math.NaN(), 48000}, {44100, math.Inf(1)}} {
		if _, err := NewForRates(tc[0], tc[1], QualityBalanced); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("NewForRates(%v, %v): got %v want ErrInvalidRate", tc[0], tc[1], err)
		}
	}
}

func TestFactorsReduced(t *testing.T) {
	r, err := New(320, 294, QualityFast)
	if err != nil {
		t.Fatal(err)
	}

	if up, down := r.Factors(); up != 160 || down != 147 {
		t.Fatalf("factors = %d/%d, want 160/147", up, down)
	}

	if got := r.TapsPerPhase(); got != 17 {
		t.Fatalf("taps per phase = %d, want 17", got)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		v        float64
		num, den int
	}{
		{48000.0 / 44100.0, 160, 147},
		{44100.0 / 48000.0, 147, 160},
		{2, 2, 1},
		{0.5, 1, 2},
		{1, 1, 1},
		{0, 1, 1},
		{math.NaN(), 1, 1},
	}

	for _, tc := range tests {
		num, den := Ratio(tc.v, maxDenominator)
		if num != tc.num || den != tc.den {
			t.Errorf("Ratio(%v) = %d/%d, want %d/%d", tc.v, num, den, tc.num, tc.den)
		}
	}
}

func TestOutputLen(t *testing.T) {
	r, err := NewForRates(44100, 48000, QualityFast)
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{0, 1, 147, 148, 44100} {
		want := int(math.Ceil(float64(n) * 160 / 147))
		if got := r.OutputLen(n); got != want {
			t.Errorf("OutputLen(%d) = %d, want %d", n, got, want)
		}

		if got := len(r.Convert(make([]float64, n))); got != r.OutputLen(n) {
			t.Errorf("len(Convert(%d)) = %d", n, got)
		}
	}
}

func TestIdentityCopies(t *testing.T) {
	r, err := NewForRates(48000, 48000, QualityBest)
	if err != nil {
		t.Fatal(err)
	}

	if r.TapsPerPhase() != 0 {
		t.Fatalf("identity should not filter, got %d taps", r.TapsPerPhase())
	}

	src := testutil.DeterministicNoise(5, 1, 100)
	out := r.Convert(src)
	testutil.RequireSliceNearlyEqual(t, out, src, 0)

	out[0] = 42
	if src[0] == 42 {
		t.Fatal("Convert must not alias its input")
	}
}

func TestConvertPreservesDC(t *testing.T) {
	for _, q := range []Quality{QualityFast, QualityBalanced, QualityBest} {
		r, err := NewForRates(44100, 48000, q)
		if err != nil {
			t.Fatal(err)
		}

		out := r.Convert(testutil.DC(1, 4000))
		edge := 2 * r.TapsPerPhase()

		for i := edge; i < len(out)-edge; i++ {
			if math.Abs(out[i]-1) > 5e-3 {
				t.Fatalf("%s: out[%d] = %.6f", q, i, out[i])
			}
		}
	}
}

func TestConvertIsDelayCompensated(t *testing.T) {
	tests := []struct{ in, out float64 }{
		{44100, 48000},
		{48000, 44100},
		{48000, 96000},
		{96000, 48000},
	}

	for _, tc := range tests {
		r, err := NewForRates(tc.in, tc.out, QualityBalanced)
		if err != nil {
			t.Fatal(err)
		}

		src := testutil.DeterministicSine(1000, tc.in, 0.5, 8192)
		want := testutil.DeterministicSine(1000, tc.out, 0.5, r.OutputLen(len(src)))
		got := r.Convert(src)
		edge := 4 * r.TapsPerPhase()

		diff, err := testutil.MaxAbsDiff(got[edge:len(got)-edge], want[edge:len(want)-edge])
		if err != nil {
			t.Fatal(err)
		}

		if diff > 2e-3 {
			t.Errorf("%v -> %v: max deviation %.2e", tc.in, tc.out, diff)
		}
	}
}

func TestConvertPlanes(t *testing.T) {
	r, err := New(2, 1, QualityFast)
	if err != nil {
		t.Fatal(err)
	}

	out := r.ConvertPlanes([][]float64{testutil.Ones(10), testutil.Ones(10)})
	if len(out) != 2 || len(out[0]) != 20 || len(out[1]) != 20 {
		t.Fatalf("unexpected shape %d x %d", len(out), len(out[0]))
	}
}

func TestParseQuality(t *testing.T) {
	for name, want := range map[string]Quality{"": QualityBalanced, "FAST": QualityFast, "best": QualityBest} {
		got, err := ParseQuality(name)
		if err != nil || got != want {
			t.Errorf("ParseQuality(%q) = %v, %v", name, got, err)
		}
	}

	if _, err := ParseQuality("sinc"); err == nil {
		t.Error("expected error")
	}

	if QualityBest.String() != "best" {
		t.Errorf("String() = %q", QualityBest.String())
	}
}
