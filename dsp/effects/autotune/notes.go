package autotune

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
)

// NoteSource supplies target notes to the engine. TakeNote is called once
// per block from the audio goroutine and must not block. fresh reports
// whether note was published since the previous call; a fresh
// pitchdetect.NoNote releases the target.
type NoteSource interface {
	TakeNote() (note int, fresh bool)
}

// NoteSourceFunc adapts a function to [NoteSource].
type NoteSourceFunc func() (int, bool)

// TakeNote calls f.
func (f NoteSourceFunc) TakeNote() (int, bool) { return f() }

const (
	latchPending = uint64(1) << 63
	latchNote    = uint64(0xff)
)

// NoteLatch holds the most recently published note. Publishing and taking
// are lock-free, so any goroutine may call NoteOn while the audio goroutine
// takes notes. Notes published between two takes collapse to the latest.
type NoteLatch struct {
	// note+1 in the low byte, latchPending while untaken.
	state atomic.Uint64
}

// NoteOn publishes note as the new target.
func (l *NoteLatch) NoteOn(note int) error {
	if note < 0 || note > pitchdetect.MaxNote {
		return fmt.Errorf("%w: note %d out of range [0, %d]", ErrInvalidValue, note, pitchdetect.MaxNote)
	}

	l.state.Store(uint64(note+1) | latchPending)

	return nil
}

// Release publishes pitchdetect.NoNote, after which the engine holds its
// current ratio until the next NoteOn.
func (l *NoteLatch) Release() {
	l.state.Store(latchPending)
}

// Current returns the latest published note without consuming it.
func (l *NoteLatch) Current() int {
	return int(l.state.Load()&latchNote) - 1
}

// TakeNote returns the latest note and clears its pending flag.
func (l *NoteLatch) TakeNote() (int, bool) {
	prev := l.state.And(^latchPending)

	return int(prev&latchNote) - 1, prev&latchPending != 0
}
