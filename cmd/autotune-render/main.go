// Command autotune-render pitch-corrects an audio file offline.
//
// Usage:
//
//	autotune-render [flags]
//
// The render is described by an optional YAML session (see -session); flags
// given on the command line override it. Input may be WAV or Ogg-Opus, the
// output is always WAV.
//
// Examples:
//
//	autotune-render -in take.wav -out tuned.wav -note A3
//	autotune-render -session verse.yaml -set fft_size=2048 -set window=hamming
//	autotune-render -in take.opus -out tuned.wav -rate 44100 -note C4 -state-out preset.json
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
	"github.com/cwbudde/algo-autotune/dsp/resample"
	"github.com/cwbudde/algo-autotune/internal/cliutil"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("autotune-render", flag.ContinueOnError)
	fs.SetOutput(stderr)

	sessionPath := fs.String("session", "", "YAML session file")
	in := fs.String("in", "", "input file (.wav, .ogg, .opus)")
	out := fs.String("out", "", "output WAV file")
	note := fs.String("note", "", "constant target note (e.g. A3 or 57) when the session has no notes")
	blockSize := fs.Int("block", 0, "processing block size in samples (default 512)")
	rate := fs.Int("rate", 0, "processing and output sample rate; the input is resampled if it differs")
	quality := fs.String("resample-quality", "", "resampling filter: fast, balanced or best")
	bitDepth := fs.Int("bits", 0, "output bit depth, 16 or 24 (default 16)")
	compensate := fs.Bool("compensate", false, "remove the processing latency from the output")
	interpolation := fs.String("interp", "", "resampling interpolation: linear or hermite")
	stateIn := fs.String("state-in", "", "engine state file to load before the session parameters")
	stateOut := fs.String("state-out", "", "write the engine state to this file after rendering")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	logJSON := fs.Bool("log-json", false, "log as JSON")
	listParams := fs.Bool("list-params", false, "list engine parameters and exit")

	sets := cliutil.Assignments{}
	fs.Var(sets, "set", "engine parameter name=value (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: autotune-render [flags]\n\n")
		fmt.Fprintf(stderr, "Pitch-corrects a WAV or Ogg-Opus file towards scheduled target notes.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *listParams {
		return printParams(os.Stdout)
	}

	logger, err := cliutil.NewLogger(stderr, *logLevel, *logJSON)
	if err != nil {
		return err
	}

	log := logger.WithField("component", "autotune-render")

	session := &Session{}
	if *sessionPath != "" {
		session, err = LoadSession(*sessionPath)
		if err != nil {
			return err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			session.Input = *in
		case "out":
			session.Output = *out
		case "block":
			session.BlockSize = *blockSize
		case "rate":
			session.SampleRate = *rate
		case "resample-quality":
			session.ResampleQuality = *quality
		case "bits":
			session.BitDepth = *bitDepth
		case "compensate":
			session.CompensateLatency = *compensate
		case "interp":
			session.Interpolation = *interpolation
		case "state-in":
			session.State = *stateIn
		}
	})

	if err := mergeOverrides(session, sets, *note); err != nil {
		return err
	}

	if session.Input == "" || session.Output == "" {
		fs.Usage()
		return fmt.Errorf("input and output are required")
	}

	if session.BitDepth == 0 {
		session.BitDepth = 16
	}

	var state []byte
	if session.State != "" {
		state, err = os.ReadFile(session.State)
		if err != nil {
			return fmt.Errorf("read state: %w", err)
		}
	}

	src, err := readClip(session.Input)
	if err != nil {
		return err
	}

	q, err := resample.ParseQuality(session.ResampleQuality)
	if err != nil {
		return err
	}

	if session.SampleRate > 0 && session.SampleRate != src.sampleRate {
		log.WithFields(logrus.Fields{
			"function": "run",
			"from":     src.sampleRate,
			"to":       session.SampleRate,
			"quality":  q.String(),
		}).Info("Resampling input")

		src, err = src.resampled(session.SampleRate, q)
		if err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"function":    "run",
		"input":       session.Input,
		"sample_rate": src.sampleRate,
		"channels":    src.channels(),
		"frames":      src.frames(),
	}).Info("Input loaded")

	dst, stats, err := renderClip(src, session, state, log)
	if err != nil {
		return err
	}

	if err := writeWAV(session.Output, dst, session.BitDepth); err != nil {
		return err
	}

	if *stateOut != "" {
		if err := os.WriteFile(*stateOut, stats.State, 0o644); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"function":    "run",
		"output":      session.Output,
		"bit_depth":   session.BitDepth,
		"compensated": stats.Compensated,
	}).Info("Output written")

	return nil
}

// mergeOverrides folds -set assignments and a constant -note into s.
func mergeOverrides(s *Session, sets cliutil.Assignments, note string) error {
	params := make(map[string]string, len(s.Params)+len(sets))
	for k, v := range s.Params {
		params[strings.ToLower(strings.TrimSpace(k))] = v
	}

	for k, v := range sets {
		params[k] = v
	}

	s.Params = params

	if note != "" && len(s.Notes) == 0 {
		s.Notes = []NoteCue{{At: 0, Note: note}}
	}

	// Re-validate the merged session.
	if _, err := s.ParamValues(); err != nil {
		return err
	}

	_, err := s.Schedule()

	return err
}

func printParams(w io.Writer) error {
	for _, p := range autotune.Params() {
		if _, err := fmt.Fprintf(w, "%-12s min=%-8g max=%-8g default=%-8g %s\n",
			p.Name, p.Min, p.Max, p.Default, p.Unit); err != nil {
			return err
		}
	}

	return nil
}
