// Package pitchdetect provides monophonic fundamental-frequency estimation.
//
// [YIN] implements the YIN estimator (de Cheveigné & Kawahara 2002) with the
// cumulative mean normalized difference function, an absolute threshold with
// early exit on the first local minimum, and parabolic refinement of the
// detected lag. The package also converts between frequencies, MIDI note
// numbers and note names.
package pitchdetect
