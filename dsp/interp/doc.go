// Package interp provides the fractional interpolation kernels used by the
// resynthesis stage of the pitch shifter.
//
// Available methods, from cheapest to highest quality:
//
//   - [Linear2]:  2-point linear interpolation (the default)
//   - [Hermite4]: 4-point cubic Hermite
//
// [Periodic] reads a table as one period of a periodic signal, which is how
// an inverse-FFT frame is resampled.
package interp
