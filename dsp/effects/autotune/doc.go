// Package autotune composes pitch tracking and phase-vocoder shifting into a
// real-time monophonic pitch-correction engine.
//
// An [Engine] is driven by a host: [Engine.Prepare] sizes every buffer,
// [Engine.Process] corrects one block of audio in place, and parameter,
// state and reset calls may arrive from other goroutines. All of them share
// one mutex, so configuration never changes while a block is being
// processed. Target notes arrive through a [NoteSource]; the lock-free
// [NoteLatch] lets a MIDI or UI goroutine publish notes without touching the
// mutex.
package autotune
