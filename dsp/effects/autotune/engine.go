package autotune

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-vecmath"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-autotune/dsp/buffer"
	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/effects/pitch"
	"github.com/cwbudde/algo-autotune/dsp/interp"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

// Processor is the host-facing surface of the engine.
type Processor interface {
	Prepare(sampleRate float64, maxBlockSize int) error
	Process(channels [][]float64)
	SetParameter(id ParamID, value float64) error
	Parameter(id ParamID) (float64, error)
	State() ([]byte, error)
	SetState(data []byte) error
	Latency() int
	Reset()
}

var _ Processor = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Reconfiguration is logged; Process never logs.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithNoteSource sets where target notes come from. The default is the
// engine's own [NoteLatch], reachable through [Engine.Notes].
func WithNoteSource(src NoteSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.notes = src
		}
	}
}

// WithInterpolation selects the resampling kernel of the shifter.
func WithInterpolation(mode interp.Mode) Option {
	return func(e *Engine) {
		e.interpolation = mode
	}
}

// Engine is a monophonic pitch-correction processor.
//
// Every block, the pitch of channel 0 is tracked with YIN, the most recent
// target note is taken from the note source, and all channels are shifted by
// the resulting ratio. The output is delayed by one frame (see
// [Engine.Latency]); the dry signal is delayed by the same amount before
// mixing.
type Engine struct {
	mu sync.Mutex

	log           *logrus.Entry
	latch         NoteLatch
	notes         NoteSource
	interpolation interp.Mode

	params [paramCount]float64

	channels   int
	sampleRate float64
	maxBlock   int
	prepared   bool

	tracker  *pitchdetect.YIN
	resolver *pitch.ShiftResolver
	shifter  *pitch.Shifter
	target   int

	dry  []*buffer.Ring
	mix  ramp
	gain ramp

	telemetry telemetry
}

// NewEngine creates an engine for the given number of channels with default
// parameters. It must be prepared before it alters audio.
func NewEngine(channels int, opts ...Option) (*Engine, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("autotune channel count must be > 0: %d", channels)
	}

	e := &Engine{
		log:      logrus.WithField("component", "autotune"),
		channels: channels,
		params:   defaultParams(),
		resolver: pitch.NewShiftResolver(),
		target:   pitchdetect.NoNote,
	}
	e.notes = &e.latch

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	shifter, err := pitch.NewShifter(channels)
	if err != nil {
		return nil, err
	}

	err = shifter.SetInterpolation(e.interpolation)
	if err != nil {
		return nil, err
	}

	e.shifter = shifter
	e.mix.jump(e.params[ParamMix])
	e.gain.jump(core.DBToLinear(e.params[ParamOutputGain]))
	e.telemetry.reset()

	return e, nil
}

// Notes returns the engine's built-in note latch. It is only consulted when
// no other source was given with [WithNoteSource].
func (e *Engine) Notes() *NoteLatch { return &e.latch }

// Channels returns the channel count.
func (e *Engine) Channels() int { return e.channels }

// Snapshot returns the analysis of the most recent block. It never blocks.
func (e *Engine) Snapshot() Snapshot { return e.telemetry.load() }

// Prepare sizes all processing storage for blocks of up to maxBlockSize
// samples at sampleRate and clears all audio state.
func (e *Engine) Prepare(sampleRate float64, maxBlockSize int) error {
	if !core.IsFinitePositive(sampleRate) {
		return fmt.Errorf("autotune sample rate must be positive and finite: %f", sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("autotune block size must be > 0: %d", maxBlockSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tracker, err := pitchdetect.NewYIN(maxBlockSize, e.params[ParamThreshold])
	if err != nil {
		return err
	}

	e.tracker = tracker
	e.sampleRate = sampleRate
	e.maxBlock = maxBlockSize

	err = e.applyShifterParamsLocked()
	if err != nil {
		return err
	}

	err = e.rebuildDryLocked()
	if err != nil {
		return err
	}

	e.resetLocked()
	e.prepared = true

	e.log.WithFields(logrus.Fields{
		"function":    "Prepare",
		"sample_rate": sampleRate,
		"block_size":  maxBlockSize,
		"channels":    e.channels,
		"latency":     e.shifter.Latency(),
	}).Info("Engine prepared")

	return nil
}

// SampleRate returns the sample rate given to Prepare, or 0.
func (e *Engine) SampleRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sampleRate
}

// MaxBlockSize returns the block size given to Prepare, or 0. Longer blocks
// are still processed; pitch is tracked on their first MaxBlockSize samples.
func (e *Engine) MaxBlockSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.maxBlock
}

// Prepared reports whether Prepare has succeeded.
func (e *Engine) Prepared() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.prepared
}

// Latency returns the processing delay in samples.
func (e *Engine) Latency() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.shifter.Latency()
}

// Reset clears buffered audio, phase state and the resolved ratio without
// reallocating.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.shifter.Reset()
	_ = e.shifter.SetRatio(1)
	e.resolver.Reset()

	if e.tracker != nil {
		e.tracker.Reset()
	}

	for _, d := range e.dry {
		d.Reset()
	}

	e.mix.jump(e.params[ParamMix])
	e.gain.jump(core.DBToLinear(e.params[ParamOutputGain]))
	e.telemetry.reset()
}

// Process corrects one block in place. channels holds one slice per channel;
// extra channels are left untouched and all slices are processed up to the
// shortest length. Before Prepare the block passes through unchanged.
func (e *Engine) Process(channels [][]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.prepared || len(channels) == 0 {
		return
	}

	active := min(len(channels), e.channels)

	n := len(channels[0])
	for _, ch := range channels[:active] {
		n = min(n, len(ch))
	}

	if n == 0 {
		return
	}

	if note, fresh := e.notes.TakeNote(); fresh {
		e.target = note
	}

	frequency := e.tracker.Estimate(channels[0][:n], e.sampleRate)
	res := e.resolver.Resolve(frequency, e.target, e.shifter.HopSize())

	if res.PhaseReset {
		e.shifter.RequestPhaseReset()
	}

	_ = e.shifter.SetRatio(res.Quantized)

	for ch := range active {
		e.processChannelLocked(ch, channels[ch][:n])
	}

	e.mix.advance()
	e.gain.advance()

	e.telemetry.publish(Snapshot{
		Frequency:   frequency,
		Probability: e.tracker.Probability(),
		Voice:       res.Voice,
		Target:      res.Target,
		Ratio:       e.shifter.Ratio(),
	})
}

func (e *Engine) processChannelLocked(ch int, buf []float64) {
	n := len(buf)
	dry := e.dry[ch]

	for i, x := range buf {
		wet := e.shifter.ProcessSample(ch, x)

		delayed := dry.Pop()
		dry.Push(x)

		mix := e.mix.at(i, n)
		buf[i] = mix*wet + (1-mix)*delayed
	}

	if e.gain.settled() {
		if e.gain.target != 1 {
			vecmath.ScaleBlock(buf, buf, e.gain.target)
		}

		return
	}

	for i := range buf {
		buf[i] *= e.gain.at(i, n)
	}
}

// Parameter returns the normalized value of id.
func (e *Engine) Parameter(id ParamID) (float64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownParameter, int(id))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.params[id], nil
}

// SetParameter normalizes value and applies it. Frame size and hop changes
// reallocate and clear the shifter; the window type only rebuilds window
// tables. Mix and gain changes are ramped over the next block.
func (e *Engine) SetParameter(id ParamID, value float64) error {
	v, err := Normalize(id, value)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setParameterLocked(id, v)
}

func (e *Engine) setParameterLocked(id ParamID, v float64) error {
	prev := e.params[id]
	e.params[id] = v

	switch id {
	case ParamFFTSize, ParamHopDivisor:
		if prev == v {
			return nil
		}

		err := e.applyShifterParamsLocked()
		if err != nil {
			e.params[id] = prev
			return err
		}

		if e.prepared {
			err = e.rebuildDryLocked()
			if err != nil {
				return err
			}
		}

		e.log.WithFields(logrus.Fields{
			"function": "SetParameter",
			"param":    id.String(),
			"fft_size": e.shifter.FFTSize(),
			"hop_size": e.shifter.HopSize(),
			"latency":  e.shifter.Latency(),
		}).Info("Shifter reconfigured")
	case ParamWindowType:
		err := e.shifter.SetWindowType(window.Type(int(v)))
		if err != nil {
			e.params[id] = prev
			return err
		}

		e.log.WithFields(logrus.Fields{
			"function": "SetParameter",
			"window":   window.Type(int(v)).String(),
		}).Debug("Window changed")
	case ParamThreshold:
		if e.tracker != nil {
			err := e.tracker.SetThreshold(v)
			if err != nil {
				e.params[id] = prev
				return err
			}
		}
	case ParamMix:
		if e.prepared {
			e.mix.target = v
		} else {
			e.mix.jump(v)
		}
	case ParamOutputGain:
		if e.prepared {
			e.gain.target = core.DBToLinear(v)
		} else {
			e.gain.jump(core.DBToLinear(v))
		}
	}

	return nil
}

// applyShifterParamsLocked pushes the frame size, hop divisor and window
// type parameters into the shifter.
func (e *Engine) applyShifterParamsLocked() error {
	err := e.shifter.SetFFTSize(int(e.params[ParamFFTSize]))
	if err != nil {
		return err
	}

	err = e.shifter.SetHopDivisor(int(e.params[ParamHopDivisor]))
	if err != nil {
		return err
	}

	return e.shifter.SetWindowType(window.Type(int(e.params[ParamWindowType])))
}

// rebuildDryLocked sizes the dry delay lines to the shifter latency.
func (e *Engine) rebuildDryLocked() error {
	latency := e.shifter.Latency()

	e.dry = make([]*buffer.Ring, e.channels)
	for ch := range e.dry {
		ring, err := buffer.NewRing(latency)
		if err != nil {
			return err
		}

		e.dry[ch] = ring
	}

	return nil
}
