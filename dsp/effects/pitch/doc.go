// Package pitch provides the phase-vocoder pitch shifter behind the autotune
// engine.
//
// Included pieces:
//   - Shifter: multi-channel STFT frame engine with overlap-add resynthesis.
//   - PhaseVocoder: per-bin phase propagation for a shift ratio.
//   - ShiftResolver: maps a tracked frequency and a target note to a ratio.
//   - PitchProcessor: the interface the engine drives the shifter through.
//
// Build with the fastmath tag to route the resolver's exp2 and the synthesis
// window square roots through algo-approx.
package pitch
