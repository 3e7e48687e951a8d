package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	clear(buf)
}

// Deinterleave splits interleaved float32 frames into per-channel planes.
// It returns the number of frames written, bounded by the shortest plane.
func Deinterleave(dst [][]float64, src []float32) int {
	channels := len(dst)
	if channels == 0 {
		return 0
	}

	frames := len(src) / channels
	for _, plane := range dst {
		frames = min(frames, len(plane))
	}

	for i := range frames {
		base := i * channels
		for ch, plane := range dst {
			plane[i] = float64(src[base+ch])
		}
	}

	return frames
}

// Interleave packs per-channel planes into interleaved float32 frames.
// It returns the number of frames written, bounded by the shortest plane.
func Interleave(dst []float32, src [][]float64) int {
	channels := len(src)
	if channels == 0 {
		return 0
	}

	frames := len(dst) / channels
	for _, plane := range src {
		frames = min(frames, len(plane))
	}

	for i := range frames {
		base := i * channels
		for ch, plane := range src {
			dst[base+ch] = float32(plane[i])
		}
	}

	return frames
}
