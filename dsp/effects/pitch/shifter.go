package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-autotune/dsp/buffer"
	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/interp"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

const (
	// MinFFTSize is the smallest supported frame size.
	MinFFTSize = 32
	// MaxFFTSize is the largest supported frame size.
	MaxFFTSize = 8192

	// DefaultFFTSize is the frame size of a new Shifter.
	DefaultFFTSize = 1024
	// DefaultHopDivisor is the overlap factor of a new Shifter.
	DefaultHopDivisor = 4

	// outputSpan is the output ring length in frames: a full frame stretched
	// by 1/MinShiftRatio must fit.
	outputSpan = 2
)

// FrameState is the per-channel position in the hop cycle.
type FrameState int

const (
	// Accumulating means samples are being collected towards the next hop.
	Accumulating FrameState = iota
	// FrameReady means a hop boundary was reached and the frame is being
	// transformed.
	FrameReady
)

func (s FrameState) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case FrameReady:
		return "frame-ready"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// HopDivisors returns the supported overlap factors.
func HopDivisors() []int { return []int{2, 4, 8} }

// ValidHopDivisor reports whether divisor is a supported overlap factor.
func ValidHopDivisor(divisor int) bool {
	return divisor == 2 || divisor == 4 || divisor == 8
}

type channelState struct {
	input      *buffer.Ring
	output     *buffer.Ring
	hopCounter int
	state      FrameState
	vocoder    *PhaseVocoder
}

// Shifter is a multi-channel phase-vocoder pitch shifter with a fixed
// latency of one frame.
//
// Each channel buffers its input in a ring of fftSize samples. Every hopSize
// samples the latest frame is windowed, transformed, phase-modified for the
// current ratio, transformed back, resampled to fftSize/ratio samples and
// overlap-added into the channel's output ring. Processing never allocates;
// all storage is (re)allocated by the setters.
//
// A Shifter is not safe for concurrent use.
type Shifter struct {
	fftSize    int
	hopDivisor int
	hopSize    int
	windowType window.Type
	mode       interp.Mode
	ratio      float64

	plan *algofft.Plan[complex128]

	analysisWindow []float64
	windowSum      float64
	scaleFactor    float64

	frame     []float64
	spectrum  []complex128
	timeFrame []complex128

	// Synthesis storage holds up to outputSpan frames.
	synthWindow []float64
	resampled   []float64
	synthLength int

	channels    []*channelState
	frameErrors int
}

// NewShifter creates a shifter for the given number of channels with the
// default frame size, hop divisor and a Hann window.
func NewShifter(channels int) (*Shifter, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("shifter channel count must be > 0: %d", channels)
	}

	s := &Shifter{
		fftSize:    DefaultFFTSize,
		hopDivisor: DefaultHopDivisor,
		windowType: window.TypeHann,
		mode:       interp.ModeLinear,
		ratio:      1,
		channels:   make([]*channelState, channels),
	}

	err := s.rebuild()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// FFTSize returns the frame size.
func (s *Shifter) FFTSize() int { return s.fftSize }

// HopDivisor returns the overlap factor.
func (s *Shifter) HopDivisor() int { return s.hopDivisor }

// HopSize returns the hop in samples.
func (s *Shifter) HopSize() int { return s.hopSize }

// WindowType returns the analysis and synthesis window kind.
func (s *Shifter) WindowType() window.Type { return s.windowType }

// Interpolation returns the resampling kernel.
func (s *Shifter) Interpolation() interp.Mode { return s.mode }

// Channels returns the number of channels.
func (s *Shifter) Channels() int { return len(s.channels) }

// Latency returns the input-to-output delay in samples.
func (s *Shifter) Latency() int { return s.fftSize }

// InputBufferLength returns the per-channel input ring length.
func (s *Shifter) InputBufferLength() int { return s.fftSize }

// OutputBufferLength returns the per-channel output ring length.
func (s *Shifter) OutputBufferLength() int { return outputSpan * s.fftSize }

// PhaseTableLength returns the length of each per-channel phase table.
func (s *Shifter) PhaseTableLength() int { return s.OutputBufferLength() }

// WindowScaleFactor returns fftSize/(overlap·windowSum), the gain that makes
// the analysis/synthesis window pair overlap-add to unity, or 0 when the
// window sum or the overlap is 0.
func (s *Shifter) WindowScaleFactor() float64 { return s.scaleFactor }

// ResampledLength returns floor(fftSize/ratio) for the current ratio.
func (s *Shifter) ResampledLength() int {
	return resampledLength(s.fftSize, s.ratio)
}

// FrameErrors returns the number of frames dropped by transform failures.
func (s *Shifter) FrameErrors() int { return s.frameErrors }

// FrameState returns the hop-cycle state of channel ch.
func (s *Shifter) FrameState(ch int) FrameState {
	if ch < 0 || ch >= len(s.channels) {
		return Accumulating
	}

	return s.channels[ch].state
}

// PhaseStateZero reports whether every channel's phase tables are zero.
func (s *Shifter) PhaseStateZero() bool {
	for _, cs := range s.channels {
		if !cs.vocoder.IsZero() {
			return false
		}
	}

	return true
}

// SetFFTSize reconfigures the frame size. size must be a power of two in
// [MinFFTSize, MaxFFTSize]. All buffers and phase tables are reallocated and
// zeroed.
func (s *Shifter) SetFFTSize(size int) error {
	if !core.IsPowerOfTwo(size) || size < MinFFTSize || size > MaxFFTSize {
		return fmt.Errorf("shifter fft size must be a power of two in [%d, %d]: %d", MinFFTSize, MaxFFTSize, size)
	}

	if size == s.fftSize {
		return nil
	}

	prev := s.fftSize
	s.fftSize = size

	err := s.rebuild()
	if err != nil {
		s.fftSize = prev
		return err
	}

	return nil
}

// SetHopDivisor reconfigures the overlap factor (2, 4 or 8). All buffers and
// phase tables are reallocated and zeroed.
func (s *Shifter) SetHopDivisor(divisor int) error {
	if !ValidHopDivisor(divisor) {
		return fmt.Errorf("shifter hop divisor must be 2, 4 or 8: %d", divisor)
	}

	if divisor == s.hopDivisor {
		return nil
	}

	prev := s.hopDivisor
	s.hopDivisor = divisor

	err := s.rebuild()
	if err != nil {
		s.hopDivisor = prev
		return err
	}

	return nil
}

// SetWindowType switches the analysis and synthesis window kind. The window
// tables and the scale factor are recomputed; buffers are kept.
func (s *Shifter) SetWindowType(t window.Type) error {
	if !t.Valid() {
		return fmt.Errorf("shifter window type invalid: %v", t)
	}

	s.windowType = t
	s.rebuildWindows()

	return nil
}

// SetInterpolation selects the resampling kernel.
func (s *Shifter) SetInterpolation(mode interp.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("shifter interpolation mode invalid: %v", mode)
	}

	s.mode = mode

	return nil
}

// SetChannels changes the channel count. Channel state is reallocated and
// zeroed.
func (s *Shifter) SetChannels(channels int) error {
	if channels <= 0 {
		return fmt.Errorf("shifter channel count must be > 0: %d", channels)
	}

	if channels == len(s.channels) {
		return nil
	}

	s.channels = make([]*channelState, channels)

	return s.rebuildChannels()
}

// Ratio returns the applied shift ratio.
func (s *Shifter) Ratio() float64 { return s.ratio }

// SetRatio sets the applied shift ratio, clamped to [MinShiftRatio,
// MaxShiftRatio]. Callers are expected to pass ratios quantized with
// [QuantizeRatio] for the current hop size.
func (s *Shifter) SetRatio(ratio float64) error {
	if !core.IsFinitePositive(ratio) {
		return fmt.Errorf("shifter ratio must be positive and finite: %f", ratio)
	}

	s.ratio = core.Clamp(ratio, MinShiftRatio, MaxShiftRatio)

	return nil
}

// RequestPhaseReset schedules every channel's phase tables to be cleared
// before their next frame.
func (s *Shifter) RequestPhaseReset() {
	for _, cs := range s.channels {
		cs.vocoder.RequestReset()
	}
}

// Reset clears all buffered audio and phase state without reallocating.
func (s *Shifter) Reset() {
	for _, cs := range s.channels {
		s.resetChannel(cs)
	}
}

// ProcessSample pushes x into channel ch and returns the output sample that
// is due, one frame later.
func (s *Shifter) ProcessSample(ch int, x float64) float64 {
	cs := s.channels[ch]

	cs.input.Push(x)
	y := cs.output.Pop()

	cs.hopCounter++
	if cs.hopCounter >= s.hopSize {
		cs.hopCounter = 0
		cs.state = FrameReady
		s.processFrame(cs)
		cs.output.AdvanceWrite(s.hopSize)
		cs.state = Accumulating
	}

	return y
}

// ProcessChannel shifts buf in place on channel ch.
func (s *Shifter) ProcessChannel(ch int, buf []float64) {
	if ch < 0 || ch >= len(s.channels) {
		return
	}

	for i, x := range buf {
		buf[i] = s.ProcessSample(ch, x)
	}
}

func (s *Shifter) processFrame(cs *channelState) {
	cs.input.CopyLatest(s.frame)
	vecmath.MulBlockInPlace(s.frame, s.analysisWindow)

	for i, v := range s.frame {
		s.spectrum[i] = complex(v, 0)
	}

	err := s.plan.Forward(s.spectrum, s.spectrum)
	if err != nil {
		s.frameErrors++
		return
	}

	cs.vocoder.Modify(s.spectrum, s.ratio)

	err = s.plan.Inverse(s.timeFrame, s.spectrum)
	if err != nil {
		s.frameErrors++
		return
	}

	for i, v := range s.timeFrame {
		s.frame[i] = real(v)
	}

	n := s.resample()
	cs.output.Accumulate(s.resampled[:n])
}

// resample stretches the real frame to floor(fftSize/ratio) samples and
// applies the synthesis window and the scale factor.
func (s *Shifter) resample() int {
	n := s.ResampledLength()
	if n != s.synthLength {
		s.fillSynthesisWindow(n)
	}

	out := s.resampled[:n]
	step := float64(s.fftSize) / float64(n)

	for i := range out {
		out[i] = interp.Periodic(s.mode, s.frame, float64(i)*step)
	}

	vecmath.MulBlockInPlace(out, s.synthWindow[:n])
	vecmath.ScaleBlock(out, out, s.scaleFactor)

	return n
}

func (s *Shifter) fillSynthesisWindow(n int) {
	w := s.synthWindow[:n]
	window.Fill(s.windowType, w, window.WithPeriodic())

	for i, v := range w {
		if v > 0 {
			w[i] = mathSqrt(v)
		} else {
			w[i] = 0
		}
	}

	s.synthLength = n
}

func resampledLength(fftSize int, ratio float64) int {
	n := int(math.Floor(float64(fftSize) / ratio))

	return max(1, min(outputSpan*fftSize, n))
}

func (s *Shifter) rebuild() error {
	hop := s.fftSize / s.hopDivisor
	if hop <= 0 {
		return fmt.Errorf("shifter hop size must be > 0: fft size %d, divisor %d", s.fftSize, s.hopDivisor)
	}

	plan, err := algofft.NewPlan64(s.fftSize)
	if err != nil {
		return fmt.Errorf("shifter fft plan: %w", err)
	}

	s.hopSize = hop
	s.plan = plan
	s.frame = make([]float64, s.fftSize)
	s.spectrum = make([]complex128, s.fftSize)
	s.timeFrame = make([]complex128, s.fftSize)
	s.analysisWindow = make([]float64, s.fftSize)
	s.synthWindow = make([]float64, outputSpan*s.fftSize)
	s.resampled = make([]float64, outputSpan*s.fftSize)

	s.rebuildWindows()

	return s.rebuildChannels()
}

func (s *Shifter) rebuildWindows() {
	window.Fill(s.windowType, s.analysisWindow, window.WithPeriodic())
	s.windowSum = window.Sum(s.analysisWindow)
	window.SqrtInPlace(s.analysisWindow)

	s.scaleFactor = 0
	if s.hopDivisor > 0 && s.windowSum != 0 {
		s.scaleFactor = float64(s.fftSize) / (float64(s.hopDivisor) * s.windowSum)
	}

	// Forces a refill on the next frame.
	s.synthLength = 0
}

func (s *Shifter) rebuildChannels() error {
	for i := range s.channels {
		input, err := buffer.NewRing(s.fftSize)
		if err != nil {
			return err
		}

		output, err := buffer.NewRing(outputSpan * s.fftSize)
		if err != nil {
			return err
		}

		vocoder, err := NewPhaseVocoder(s.fftSize, s.hopSize, outputSpan*s.fftSize)
		if err != nil {
			return err
		}

		cs := &channelState{input: input, output: output, vocoder: vocoder}
		s.resetChannel(cs)
		s.channels[i] = cs
	}

	return nil
}

func (s *Shifter) resetChannel(cs *channelState) {
	cs.input.Reset()
	cs.output.Reset()
	cs.output.SetCursors(0, s.hopSize)
	cs.hopCounter = 0
	cs.state = Accumulating
	cs.vocoder.Reset()
}
