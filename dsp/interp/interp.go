package interp

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects an interpolation kernel.
type Mode int

const (
	// ModeLinear uses [Linear2].
	ModeLinear Mode = iota
	// ModeHermite uses [Hermite4].
	ModeHermite
)

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case ModeLinear:
		return "linear"
	case ModeHermite:
		return "hermite"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m names a known kernel.
func (m Mode) Valid() bool { return m == ModeLinear || m == ModeHermite }

// ParseMode parses a mode name as produced by [Mode.String].
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear", "":
		return ModeLinear, nil
	case "hermite", "cubic":
		return ModeHermite, nil
	default:
		return ModeLinear, fmt.Errorf("unknown interpolation mode %q", name)
	}
}

// Linear2 interpolates from x0 to x1 at t in [0,1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)

	return ((c3*t+c2)*t+c1)*t + c0
}

// Periodic evaluates table at fractional position pos, treating table as one
// period of a periodic signal. Neighbour indices wrap modulo len(table).
func Periodic(mode Mode, table []float64, pos float64) float64 {
	n := len(table)
	if n == 0 {
		return 0
	}

	pos = math.Mod(pos, float64(n))
	if pos < 0 {
		pos += float64(n)
	}

	ix := int(pos)
	if ix >= n {
		ix = n - 1
	}

	dx := pos - float64(ix)
	x0 := table[ix]
	x1 := table[(ix+1)%n]

	if mode != ModeHermite {
		return Linear2(dx, x0, x1)
	}

	xm1 := table[(ix+n-1)%n]
	x2 := table[(ix+2)%n]

	return Hermite4(dx, xm1, x0, x1, x2)
}
