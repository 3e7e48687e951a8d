package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
	"github.com/cwbudde/algo-autotune/dsp/interp"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
)

// renderStats summarizes one render.
type renderStats struct {
	Blocks      int
	VoicedFrac  float64
	Latency     int
	Cues        int
	Compensated bool
	// State is the engine state after the render.
	State []byte
}

// renderClip runs the engine over in block by block and returns the
// corrected audio. The input is left untouched. state, when non-empty, is
// applied before the session parameters.
func renderClip(in *clip, s *Session, state []byte, log *logrus.Entry) (*clip, renderStats, error) {
	var stats renderStats

	if in.channels() == 0 {
		return nil, stats, fmt.Errorf("%w: no channels", errFormat)
	}

	mode, err := interp.ParseMode(s.Interpolation)
	if err != nil {
		return nil, stats, err
	}

	params, err := s.ParamValues()
	if err != nil {
		return nil, stats, err
	}

	schedule, err := s.Schedule()
	if err != nil {
		return nil, stats, err
	}

	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(float64(in.sampleRate)),
		core.WithBlockSize(s.BlockSize),
		core.WithChannels(in.channels()),
	)

	engine, err := autotune.NewEngine(cfg.Channels,
		autotune.WithLogger(log),
		autotune.WithInterpolation(mode),
	)
	if err != nil {
		return nil, stats, err
	}

	if len(state) > 0 {
		if err := engine.SetState(state); err != nil {
			return nil, stats, err
		}
	}

	for _, p := range params {
		if err := engine.SetParameter(p.ID, p.Value); err != nil {
			return nil, stats, err
		}
	}

	if err := engine.Prepare(cfg.SampleRate, cfg.BlockSize); err != nil {
		return nil, stats, err
	}

	latency := engine.Latency()
	tail := 0

	if s.CompensateLatency {
		tail = latency
	}

	frames := in.frames()
	out := newClip(in.sampleRate, in.channels(), frames+tail)

	for ch, plane := range in.planes {
		copy(out.planes[ch], plane)
	}

	cues := cursor{schedule: schedule}
	block := make([][]float64, out.channels())
	voiced := 0
	started := time.Now()

	for start := 0; start < out.frames(); start += cfg.BlockSize {
		end := min(start+cfg.BlockSize, out.frames())

		if cue, ok := cues.due(float64(start) / cfg.SampleRate); ok {
			stats.Cues++

			if cue.Note == pitchdetect.NoNote {
				engine.Notes().Release()
			} else if err := engine.Notes().NoteOn(cue.Note); err != nil {
				return nil, stats, err
			}
		}

		for ch := range block {
			block[ch] = out.planes[ch][start:end]
		}

		engine.Process(block)

		if engine.Snapshot().Voice != pitchdetect.NoNote {
			voiced++
		}

		stats.Blocks++
	}

	if tail > 0 {
		for ch, plane := range out.planes {
			out.planes[ch] = plane[tail:]
		}
	}

	stats.Latency = latency

	stats.State, err = engine.State()
	if err != nil {
		return nil, stats, err
	}

	stats.Compensated = tail > 0

	if stats.Blocks > 0 {
		stats.VoicedFrac = float64(voiced) / float64(stats.Blocks)
	}

	log.WithFields(logrus.Fields{
		"function":    "renderClip",
		"frames":      frames,
		"blocks":      stats.Blocks,
		"cues":        stats.Cues,
		"latency":     latency,
		"voiced":      fmt.Sprintf("%.1f%%", 100*stats.VoicedFrac),
		"elapsed_sec": time.Since(started).Seconds(),
	}).Info("Render finished")

	return out, stats, nil
}
