//go:build !fastmath

package pitch

import "math"

// mathLog2 computes log2(x) using standard library math.
func mathLog2(x float64) float64 {
	return math.Log2(x)
}

// mathPower2 computes 2^x using standard library math.
func mathPower2(x float64) float64 {
	return math.Exp2(x)
}

// mathSqrt computes sqrt(x) using standard library math.
func mathSqrt(x float64) float64 {
	return math.Sqrt(x)
}
