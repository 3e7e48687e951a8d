// Package resample converts whole signals between sample rates with a
// Kaiser-windowed sinc polyphase filter.
//
// The conversion is delay compensated: output sample m lies at input time
// m·down/up, so a converted clip stays aligned with its source. This is the
// offline counterpart of the shifter's per-frame interpolation and is used
// to bring render inputs to the processing rate.
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
package resample
