package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
	"github.com/cwbudde/algo-autotune/dsp/interp"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
	"github.com/cwbudde/algo-autotune/dsp/resample"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

var errSession = errors.New("invalid session")

// Session describes one offline render.
//
//	input: take.wav
//	output: tuned.wav
//	block_size: 512
//	sample_rate: 44100
//	interpolation: hermite
//	params:
//	  fft_size: 2048
//	  window: hann
//	notes:
//	  - {at: 0.0, note: A3}
//	  - {at: 1.5, note: "off"}
type Session struct {
	Input             string            `yaml:"input"`
	Output            string            `yaml:"output"`
	BlockSize         int               `yaml:"block_size"`
	SampleRate        int               `yaml:"sample_rate"`
	ResampleQuality   string            `yaml:"resample_quality"`
	BitDepth          int               `yaml:"bit_depth"`
	Interpolation     string            `yaml:"interpolation"`
	CompensateLatency bool              `yaml:"compensate_latency"`
	State             string            `yaml:"state"`
	Params            map[string]string `yaml:"params"`
	Notes             []NoteCue         `yaml:"notes"`
}

// NoteCue sets the target note from At seconds on. "off" releases the note.
type NoteCue struct {
	At   float64 `yaml:"at"`
	Note string  `yaml:"note"`
}

// LoadSession reads and parses a YAML session file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	return ParseSession(data)
}

// ParseSession parses a YAML session document.
func ParseSession(data []byte) (*Session, error) {
	var s Session

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", errSession, err)
	}

	if s.BlockSize < 0 {
		return nil, fmt.Errorf("%w: block_size must be >= 0: %d", errSession, s.BlockSize)
	}

	if s.SampleRate < 0 {
		return nil, fmt.Errorf("%w: sample_rate must be >= 0: %d", errSession, s.SampleRate)
	}

	if _, err := resample.ParseQuality(s.ResampleQuality); err != nil {
		return nil, fmt.Errorf("%w: %v", errSession, err)
	}

	if _, err := interp.ParseMode(s.Interpolation); err != nil {
		return nil, fmt.Errorf("%w: %v", errSession, err)
	}

	if _, err := s.ParamValues(); err != nil {
		return nil, err
	}

	if _, err := s.Schedule(); err != nil {
		return nil, err
	}

	return &s, nil
}

// ParamValue is one parsed engine parameter.
type ParamValue struct {
	ID    autotune.ParamID
	Value float64
}

// ParamValues resolves the params map in parameter order. Windows may be
// given by name.
func (s *Session) ParamValues() ([]ParamValue, error) {
	out := make([]ParamValue, 0, len(s.Params))

	for name, raw := range s.Params {
		id, err := autotune.ParseParamID(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errSession, err)
		}

		v, err := parseParamValue(id, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errSession, name, err)
		}

		out = append(out, ParamValue{ID: id, Value: v})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func parseParamValue(id autotune.ParamID, raw string) (float64, error) {
	if id == autotune.ParamWindowType {
		if t, err := window.ParseType(raw); err == nil {
			return float64(t), nil
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite: %q", raw)
	}

	return v, nil
}

// Cue is a resolved note change.
type Cue struct {
	At   float64
	Note int
}

// Schedule is a time-ordered list of note changes.
type Schedule []Cue

// Schedule resolves the note cues. Cues are stable-sorted by time.
func (s *Session) Schedule() (Schedule, error) {
	out := make(Schedule, 0, len(s.Notes))

	for i, c := range s.Notes {
		if c.At < 0 || math.IsNaN(c.At) || math.IsInf(c.At, 0) {
			return nil, fmt.Errorf("%w: note %d: time must be finite and >= 0: %v", errSession, i, c.At)
		}

		note, err := parseCueNote(c.Note)
		if err != nil {
			return nil, fmt.Errorf("%w: note %d: %v", errSession, i, err)
		}

		out = append(out, Cue{At: c.At, Note: note})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })

	return out, nil
}

func parseCueNote(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "-":
		return pitchdetect.NoNote, nil
	}

	return pitchdetect.ParseNoteName(s)
}

// NoteAt returns the note in effect at time t, or false before the first cue.
func (s Schedule) NoteAt(t float64) (int, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].At > t })
	if i == 0 {
		return pitchdetect.NoNote, false
	}

	return s[i-1].Note, true
}

// cursor walks a schedule forward in time.
type cursor struct {
	schedule Schedule
	next     int
}

// due returns the latest cue at or before t that has not been returned yet.
// Cues passed over in between are skipped.
func (c *cursor) due(t float64) (Cue, bool) {
	found := false

	var cue Cue

	for c.next < len(c.schedule) && c.schedule[c.next].At <= t {
		cue = c.schedule[c.next]
		found = true
		c.next++
	}

	return cue, found
}
