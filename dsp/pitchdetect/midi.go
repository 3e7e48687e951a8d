package pitchdetect

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// ReferenceFrequency is the tuning of MIDI note 69 (A4) in Hz.
	ReferenceFrequency = 440.0
	// ReferenceNote is the MIDI note number of A4.
	ReferenceNote = 69

	// NoNote marks an undefined note, e.g. for an undetected pitch.
	NoNote = -1

	// MaxNote is the highest MIDI note number.
	MaxNote = 127
)

// ErrInvalidNote is returned by ParseNoteName for unparsable input.
var ErrInvalidNote = errors.New("invalid note")

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var pitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// FrequencyToMIDI returns the nearest MIDI note of frequency, or [NoNote]
// when frequency is not a positive finite value.
func FrequencyToMIDI(frequency float64) int {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return NoNote
	}

	return int(math.Round(12*math.Log2(frequency/ReferenceFrequency) + ReferenceNote))
}

// MIDIToFrequency returns the equal-tempered frequency of note in Hz.
func MIDIToFrequency(note int) float64 {
	return ReferenceFrequency * math.Exp2(float64(note-ReferenceNote)/12)
}

// NoteName formats note in scientific pitch notation, e.g. 69 -> "A4".
func NoteName(note int) string {
	if note < 0 {
		return "-"
	}

	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// ParseNoteName parses a MIDI note given either as a number ("69") or in
// scientific pitch notation with optional accidental ("A4", "c#3", "Eb-1").
func ParseNoteName(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoNote, fmt.Errorf("%w: empty", ErrInvalidNote)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > MaxNote {
			return NoNote, fmt.Errorf("%w: %d out of range [0, %d]", ErrInvalidNote, n, MaxNote)
		}

		return n, nil
	}

	class, ok := pitchClasses[strings.ToUpper(s[:1])[0]]
	if !ok {
		return NoNote, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		class++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		class--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return NoNote, fmt.Errorf("%w: %q", ErrInvalidNote, s)
	}

	note := (octave+1)*12 + class
	if note < 0 || note > MaxNote {
		return NoNote, fmt.Errorf("%w: %q out of range", ErrInvalidNote, s)
	}

	return note, nil
}
