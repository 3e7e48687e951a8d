package buffer

import "testing"

func TestNewRingValidates(t *testing.T) {
	if _, err := NewRing(0); err == nil {
		t.Fatal("expected error for zero capacity")
	}

	r, err := NewRing(4)
	if err != nil {
		t.Fatalf("NewRing(4) error = %v", err)
	}

	if r.Len() != 4 || !r.IsZero() {
		t.Fatalf("Len()=%d IsZero()=%v", r.Len(), r.IsZero())
	}
}

func TestRingPushPopWraps(t *testing.T) {
	r, _ := NewRing(3)

	for i := 1; i <= 3; i++ {
		r.Push(float64(i))
	}

	if r.WritePos() != 0 {
		t.Fatalf("WritePos()=%d, want 0 after wrap", r.WritePos())
	}

	for i := 1; i <= 3; i++ {
		if got := r.Pop(); got != float64(i) {
			t.Fatalf("Pop()=%v, want %v", got, i)
		}
	}

	if !r.IsZero() {
		t.Fatal("Pop should zero consumed slots")
	}

	if r.ReadPos() != 0 {
		t.Fatalf("ReadPos()=%d, want 0 after wrap", r.ReadPos())
	}
}

func TestRingCopyLatestOldestFirst(t *testing.T) {
	r, _ := NewRing(4)
	for i := 1; i <= 6; i++ {
		r.Push(float64(i))
	}

	got := make([]float64, 4)
	r.CopyLatest(got)

	want := []float64{3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CopyLatest=%v, want %v", got, want)
		}
	}

	short := make([]float64, 2)
	r.CopyLatest(short)

	if short[0] != 5 || short[1] != 6 {
		t.Fatalf("CopyLatest(2)=%v, want [5 6]", short)
	}
}

func TestRingAccumulateWraps(t *testing.T) {
	r, _ := NewRing(5)
	r.SetCursors(0, 3)

	r.Accumulate([]float64{1, 1, 1, 1})
	r.Accumulate([]float64{1})

	// Slots 3,4,0,1 got one contribution, slot 3 got two.
	want := []float64{1, 1, 0, 2, 1}
	for i := range want {
		if got := r.At(i); got != want[i] {
			t.Fatalf("At(%d)=%v, want %v", i, got, want[i])
		}
	}

	r.AdvanceWrite(4)

	if r.WritePos() != 2 {
		t.Fatalf("WritePos()=%d, want 2", r.WritePos())
	}
}

func TestRingSetCursorsWrapsNegative(t *testing.T) {
	r, _ := NewRing(8)
	r.SetCursors(-1, 17)

	if r.ReadPos() != 7 || r.WritePos() != 1 {
		t.Fatalf("cursors=(%d,%d), want (7,1)", r.ReadPos(), r.WritePos())
	}
}

func TestRingReset(t *testing.T) {
	r, _ := NewRing(4)
	r.Push(1)
	r.Push(2)
	r.Pop()
	r.Reset()

	if !r.IsZero() || r.ReadPos() != 0 || r.WritePos() != 0 {
		t.Fatal("Reset should zero samples and rewind cursors")
	}
}

func TestRingDelayLine(t *testing.T) {
	// Pop-before-Push on a ring with both cursors together is a pure delay of
	// Len() samples.
	r, _ := NewRing(3)
	in := []float64{1, 2, 3, 4, 5, 6}
	want := []float64{0, 0, 0, 1, 2, 3}

	for i, v := range in {
		got := r.Pop()
		r.Push(v)

		if got != want[i] {
			t.Fatalf("sample %d: got %v want %v", i, got, want[i])
		}
	}
}
