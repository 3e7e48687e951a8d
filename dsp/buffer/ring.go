package buffer

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Ring is a fixed-capacity circular sample store with independent read and
// write cursors. Both cursors wrap modulo the capacity.
//
// A Ring is owned by exactly one channel of one processor; it is not safe
// for concurrent use.
type Ring struct {
	samples []float64
	read    int
	write   int
}

// NewRing returns a zero-filled ring of the given capacity.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be > 0: %d", capacity)
	}

	return &Ring{samples: make([]float64, capacity)}, nil
}

// Len returns the ring capacity.
func (r *Ring) Len() int {
	return len(r.samples)
}

// ReadPos returns the read cursor.
func (r *Ring) ReadPos() int {
	return r.read
}

// WritePos returns the write cursor.
func (r *Ring) WritePos() int {
	return r.write
}

// SetCursors places both cursors. Positions are reduced modulo the capacity.
func (r *Ring) SetCursors(read, write int) {
	r.read = r.wrap(read)
	r.write = r.wrap(write)
}

// Push stores v at the write cursor and advances it by one.
func (r *Ring) Push(v float64) {
	r.samples[r.write] = v

	r.write++
	if r.write == len(r.samples) {
		r.write = 0
	}
}

// Pop returns the sample at the read cursor, zeroes that slot and advances
// the read cursor by one.
func (r *Ring) Pop() float64 {
	v := r.samples[r.read]
	r.samples[r.read] = 0

	r.read++
	if r.read == len(r.samples) {
		r.read = 0
	}

	return v
}

// At returns the sample offset positions after the read cursor.
func (r *Ring) At(offset int) float64 {
	return r.samples[r.wrap(r.read+offset)]
}

// CopyLatest copies the last len(dst) pushed samples into dst, oldest first.
// len(dst) must not exceed the capacity.
func (r *Ring) CopyLatest(dst []float64) {
	n := len(r.samples)
	start := r.write - len(dst)

	if start < 0 {
		start += n
	}

	first := copy(dst, r.samples[start:])
	if first < len(dst) {
		copy(dst[first:], r.samples)
	}
}

// Accumulate adds src into the ring starting at the write cursor, wrapping
// around the end. The write cursor does not move. len(src) must not exceed
// the capacity.
func (r *Ring) Accumulate(src []float64) {
	tail := r.samples[r.write:]
	if len(src) <= len(tail) {
		vecmath.AddBlockInPlace(tail[:len(src)], src)
		return
	}

	vecmath.AddBlockInPlace(tail, src[:len(tail)])
	vecmath.AddBlockInPlace(r.samples[:len(src)-len(tail)], src[len(tail):])
}

// AdvanceWrite moves the write cursor forward by n samples.
func (r *Ring) AdvanceWrite(n int) {
	r.write = r.wrap(r.write + n)
}

// Reset zeroes all samples and rewinds both cursors.
func (r *Ring) Reset() {
	for i := range r.samples {
		r.samples[i] = 0
	}

	r.read = 0
	r.write = 0
}

// IsZero reports whether every stored sample is exactly zero.
func (r *Ring) IsZero() bool {
	for _, v := range r.samples {
		if v != 0 {
			return false
		}
	}

	return true
}

func (r *Ring) wrap(pos int) int {
	n := len(r.samples)

	pos %= n
	if pos < 0 {
		pos += n
	}

	return pos
}
