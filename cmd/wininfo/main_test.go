package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cwbudde/algo-autotune/dsp/window"
)

func TestAnalyzePeriodicHann(t *testing.T) {
	rows, err := analyze(window.TypeHann, 1024, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 3 {
		t.Fatalf("rows: got %d want 3", len(rows))
	}

	wantScale := map[int]float64{2: 1, 4: 0.5, 8: 0.25}
	for _, r := range rows {
		if r.ripple > 1e-12 {
			t.Errorf("divisor %d: ripple %g", r.divisor, r.ripple)
		}

		if d := r.scale - wantScale[r.divisor]; d > 1e-12 || d < -1e-12 {
			t.Errorf("divisor %d: scale %g want %g", r.divisor, r.scale, wantScale[r.divisor])
		}

		if d := r.enbw - 1.5; d > 1e-9 || d < -1e-9 {
			t.Errorf("enbw %g want 1.5", r.enbw)
		}
	}
}

func TestAnalyzeSymmetricHasRipple(t *testing.T) {
	rows, err := analyze(window.TypeHann, 64, false)
	if err != nil {
		t.Fatal(err)
	}

	if rows[0].ripple == 0 {
		t.Fatal("symmetric Hann should not overlap-add exactly")
	}
}

func TestResolveTypes(t *testing.T) {
	all, err := resolveTypes(nil)
	if err != nil || len(all) != len(window.Types()) {
		t.Fatalf("all types: %v %v", all, err)
	}

	got, err := resolveTypes([]string{"Hamming", "bartlett"})
	if err != nil {
		t.Fatal(err)
	}

	if got[0] != window.TypeHamming || got[1] != window.TypeBartlett {
		t.Fatalf("got %v", got)
	}

	if _, err := resolveTypes([]string{"kaiser"}); err == nil {
		t.Fatal("expected error for unknown window")
	}
}

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	if err := printAnalysis(&buf, window.Types(), 256, true); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"bartlett", "hann", "hamming", "periodic", "128 (1/2)", "32 (1/8)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	if lines := strings.Count(out, "\n"); lines != 2+3*3 {
		t.Errorf("got %d lines", lines)
	}
}
