// Command autotune-live pitch-corrects a live input device in real time.
//
// Target notes are typed on stdin, one per line ("A4", "C#3", "57", "off").
// Parameters can be changed while running with "set <name> <value>".
//
// Examples:
//
//	autotune-live -note A3
//	autotune-live -samplerate 44100 -period 256 -set fft_size=2048
//	autotune-live -channels 2 -state-in preset.json -state-out preset.json
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
	"github.com/cwbudde/algo-autotune/dsp/interp"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
	"github.com/cwbudde/algo-autotune/internal/cliutil"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command-line settings.
type options struct {
	sampleRate    int
	channels      int
	period        int
	periods       int
	note          string
	interpolation string
	stateIn       string
	stateOut      string
	statusEvery   time.Duration
	logLevel      string
	logJSON       bool
	sets          cliutil.Assignments
}

func parseOptions(args []string, stderr io.Writer) (*options, error) {
	o := &options{sets: cliutil.Assignments{}}

	fs := flag.NewFlagSet("autotune-live", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&o.sampleRate, "samplerate", 48000, "audio sample rate")
	fs.IntVar(&o.channels, "channels", 1, "channels to capture and play; pitch is tracked on the first")
	fs.IntVar(&o.period, "period", 512, "device period size in frames")
	fs.IntVar(&o.periods, "periods", 3, "device period count")
	fs.StringVar(&o.note, "note", "", "initial target note (e.g. A3 or 57)")
	fs.StringVar(&o.interpolation, "interp", "linear", "resampling interpolation: linear or hermite")
	fs.StringVar(&o.stateIn, "state-in", "", "engine state file to load at start")
	fs.StringVar(&o.stateOut, "state-out", "", "write the engine state to this file on exit")
	fs.DurationVar(&o.statusEvery, "status", 2*time.Second, "telemetry log interval, 0 disables")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.BoolVar(&o.logJSON, "log-json", false, "log as JSON")
	fs.Var(o.sets, "set", "engine parameter name=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.sampleRate <= 0 || o.channels <= 0 || o.period <= 0 || o.periods <= 0 {
		return nil, fmt.Errorf("samplerate, channels, period and periods must be positive")
	}

	if o.statusEvery < 0 {
		return nil, fmt.Errorf("status interval must be >= 0: %v", o.statusEvery)
	}

	return o, nil
}

// newEngine builds and prepares the engine described by o.
func newEngine(o *options, log *logrus.Entry) (*autotune.Engine, error) {
	mode, err := interp.ParseMode(o.interpolation)
	if err != nil {
		return nil, err
	}

	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(float64(o.sampleRate)),
		core.WithBlockSize(o.period),
		core.WithChannels(o.channels),
	)

	engine, err := autotune.NewEngine(cfg.Channels,
		autotune.WithLogger(log),
		autotune.WithInterpolation(mode),
	)
	if err != nil {
		return nil, err
	}

	if o.stateIn != "" {
		data, err := os.ReadFile(o.stateIn)
		if err != nil {
			return nil, fmt.Errorf("read state: %w", err)
		}

		if err := engine.SetState(data); err != nil {
			return nil, err
		}
	}

	for name, raw := range o.sets {
		cmd, err := parseSet(name, raw)
		if err != nil {
			return nil, err
		}

		if err := engine.SetParameter(cmd.param, cmd.value); err != nil {
			return nil, err
		}
	}

	if o.note != "" {
		note, err := pitchdetect.ParseNoteName(o.note)
		if err != nil {
			return nil, err
		}

		if err := engine.Notes().NoteOn(note); err != nil {
			return nil, err
		}
	}

	if err := engine.Prepare(cfg.SampleRate, cfg.BlockSize); err != nil {
		return nil, err
	}

	return engine, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}

	logger, err := cliutil.NewLogger(stderr, o.logLevel, o.logJSON)
	if err != nil {
		return err
	}

	log := logger.WithField("component", "autotune-live")

	engine, err := newEngine(o, log)
	if err != nil {
		return err
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.WithField("function", "malgo").Debug(message)
	})
	if err != nil {
		return fmt.Errorf("audio context: %w", err)
	}

	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.PerformanceProfile = malgo.LowLatency
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(o.channels)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(o.channels)
	deviceConfig.SampleRate = uint32(o.sampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(o.period)
	deviceConfig.Periods = uint32(o.periods)
	deviceConfig.NoClip = 1

	host := newDuplex(engine, o.channels, o.period)

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: host.process,
	})
	if err != nil {
		return fmt.Errorf("audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}

	log.WithFields(logrus.Fields{
		"function":    "run",
		"sample_rate": o.sampleRate,
		"channels":    o.channels,
		"period":      o.period,
		"periods":     o.periods,
		"latency_ms":  1000 * float64(engine.Latency()) / float64(o.sampleRate),
	}).Info("Audio running")

	fmt.Fprintln(stdout, "Type a note (A4, C#3, 57), \"off\", \"help\" or \"quit\". Ctrl-C exits.")

	done := make(chan error, 1)

	go func() {
		con := &console{engine: engine, out: stdout, log: log}
		done <- con.run(stdin)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	var tick <-chan time.Time

	if o.statusEvery > 0 {
		ticker := time.NewTicker(o.statusEvery)
		defer ticker.Stop()

		tick = ticker.C
	}

	for running := true; running; {
		select {
		case <-interrupt:
			running = false
		case err := <-done:
			if err != nil {
				log.WithFields(logrus.Fields{
					"function": "run",
					"error":    err.Error(),
				}).Warn("Console input failed")
			}

			running = false
		case <-tick:
			snap := engine.Snapshot()
			log.WithFields(logrus.Fields{
				"function":  "run",
				"frequency": snap.Frequency,
				"voice":     snap.Voice,
				"target":    snap.Target,
				"ratio":     snap.Ratio,
				"blocks":    snap.Blocks,
			}).Info(formatSnapshot(snap))
		}
	}

	if err := device.Stop(); err != nil {
		log.WithField("error", err.Error()).Warn("Stopping device failed")
	}

	if o.stateOut != "" {
		data, err := engine.State()
		if err != nil {
			return err
		}

		if err := os.WriteFile(o.stateOut, data, 0o644); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
	}

	log.WithField("function", "run").Info("Stopped")

	return nil
}
