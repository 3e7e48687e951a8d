package autotune

import (
	"bytes"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
	"github.com/cwbudde/algo-autotune/internal/testutil"
)

const (
	testSampleRate = 44100.0
	testBlock      = 512
)

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	return logrus.NewEntry(logger)
}

func newPreparedEngine(t *testing.T, channels int, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithLogger(quietLogger())}, opts...)

	e, err := NewEngine(channels, opts...)
	require.NoError(t, err)
	require.NoError(t, e.Prepare(testSampleRate, testBlock))

	return e
}

// processMono runs x through e block by block and returns the output.
func processMono(e *Engine, x []float64, block int) []float64 {
	out := append([]float64(nil), x...)
	for start := 0; start < len(out); start += block {
		end := min(start+block, len(out))
		e.Process([][]float64{out[start:end]})
	}

	return out
}

func TestNewEngineValidates(t *testing.T) {
	_, err := NewEngine(0)
	require.Error(t, err)

	e, err := NewEngine(1, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Error(t, e.Prepare(0, testBlock))
	assert.Error(t, e.Prepare(math.NaN(), testBlock))
	assert.Error(t, e.Prepare(testSampleRate, 0))
	assert.False(t, e.Prepared())

	require.NoError(t, e.Prepare(testSampleRate, testBlock))
	assert.True(t, e.Prepared())
	assert.Equal(t, testSampleRate, e.SampleRate())
	assert.Equal(t, testBlock, e.MaxBlockSize())
	assert.Equal(t, 1024, e.Latency())
}

func TestEngineLogsPrepare(t *testing.T) {
	var logs bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&logs)
	logger.SetFormatter(&logrus.JSONFormatter{})

	e, err := NewEngine(2, WithLogger(logrus.NewEntry(logger)))
	require.NoError(t, err)
	require.NoError(t, e.Prepare(48000, 256))

	assert.Contains(t, logs.String(), "Engine prepared")
	assert.Contains(t, logs.String(), `"channels":2`)
}

func TestEnginePassThroughBeforePrepare(t *testing.T) {
	e, err := NewEngine(1, WithLogger(quietLogger()))
	require.NoError(t, err)

	x := testutil.DeterministicSine(220, testSampleRate, 0.5, testBlock)
	buf := append([]float64(nil), x...)

	e.Process([][]float64{buf})

	assert.Equal(t, x, buf)
	assert.Zero(t, e.Snapshot().Blocks)
}

func TestEngineCorrectsToTargetNote(t *testing.T) {
	e := newPreparedEngine(t, 1)

	require.NoError(t, e.SetParameter(ParamFFTSize, 512))
	require.NoError(t, e.SetParameter(ParamHopDivisor, 8))
	require.NoError(t, e.SetParameter(ParamWindowType, 1))
	require.NoError(t, e.Notes().NoteOn(69))

	x := testutil.DeterministicSine(220, testSampleRate, 0.8, 44100)
	out := processMono(e, x, testBlock)
	testutil.RequireFinite(t, out)

	snap := e.Snapshot()
	assert.InDelta(t, 220, snap.Frequency, 2.2)
	assert.Equal(t, 57, snap.Voice)
	assert.Equal(t, 69, snap.Target)
	assert.Equal(t, 2.0, snap.Ratio)
	assert.Greater(t, snap.Probability, 0.5)

	segment := out[len(out)-4096 : len(out)-2048]

	yin, err := pitchdetect.NewYIN(len(segment), pitchdetect.DefaultThreshold)
	require.NoError(t, err)

	assert.InEpsilon(t, 440, yin.Estimate(segment, testSampleRate), 0.03)
}

func TestEngineSilenceStaysSilent(t *testing.T) {
	e := newPreparedEngine(t, 1)
	require.NoError(t, e.Notes().NoteOn(60))

	out := processMono(e, make([]float64, 8*testBlock), testBlock)

	for i, v := range out {
		require.Zerof(t, v, "sample %d", i)
	}

	snap := e.Snapshot()
	assert.Zero(t, snap.Frequency)
	assert.Equal(t, pitchdetect.NoNote, snap.Voice)
	assert.Equal(t, 1.0, snap.Ratio)
	assert.Equal(t, uint64(8), snap.Blocks)
}

func TestEngineDryMixIsDelayedInput(t *testing.T) {
	e := newPreparedEngine(t, 1)
	require.NoError(t, e.SetParameter(ParamMix, 0))
	require.NoError(t, e.Notes().NoteOn(72))

	x := testutil.DeterministicSine(220, testSampleRate, 0.5, 16*testBlock)
	out := processMono(e, x, testBlock)
	want := testutil.Delay(x, e.Latency())

	// The first block ramps from wet to dry.
	testutil.RequireSliceNearlyEqual(t, out[testBlock:], want[testBlock:], 0)
}

func TestEngineOutputGain(t *testing.T) {
	e, err := NewEngine(1, WithLogger(quietLogger()))
	require.NoError(t, err)

	require.NoError(t, e.SetParameter(ParamMix, 0))
	require.NoError(t, e.SetParameter(ParamOutputGain, -6))
	require.NoError(t, e.Prepare(testSampleRate, testBlock))

	x := testutil.DeterministicNoise(3, 0.5, 8*testBlock)
	out := processMono(e, x, testBlock)

	want := testutil.Delay(x, e.Latency())
	for i := range want {
		want[i] *= core.DBToLinear(-6)
	}

	testutil.RequireSliceNearlyEqual(t, out, want, 1e-12)
}

func TestEngineThresholdChangeMidStream(t *testing.T) {
	e := newPreparedEngine(t, 1)
	require.NoError(t, e.Notes().NoteOn(69))

	x := testutil.DeterministicSine(330, testSampleRate, 0.5, 16*testBlock)

	processMono(e, x[:8*testBlock], testBlock)
	require.NoError(t, e.SetParameter(ParamThreshold, 0.3))

	out := processMono(e, x[8*testBlock:], testBlock)
	testutil.RequireFinite(t, out)

	v, err := e.Parameter(ParamThreshold)
	require.NoError(t, err)
	assert.Equal(t, 0.3, v)
	assert.InDelta(t, 330, e.Snapshot().Frequency, 3.3)
}

func TestEngineReconfigurationResizes(t *testing.T) {
	e := newPreparedEngine(t, 2)

	require.NoError(t, e.SetParameter(ParamFFTSize, 2500))
	assert.Equal(t, 2048, e.Latency())
	assert.Equal(t, 4096, e.shifter.OutputBufferLength())
	assert.Equal(t, 2048, e.dry[1].Len())

	require.NoError(t, e.SetParameter(ParamHopDivisor, 8))
	assert.Equal(t, 256, e.shifter.HopSize())
	assert.True(t, e.shifter.PhaseStateZero())
}

func TestEngineStateRoundTrip(t *testing.T) {
	a := newPreparedEngine(t, 1)

	settings := map[ParamID]float64{
		ParamFFTSize:    2048,
		ParamHopDivisor: 8,
		ParamWindowType: 2,
		ParamThreshold:  0.2,
		ParamMix:        0.5,
		ParamOutputGain: -3,
	}
	for id, v := range settings {
		require.NoError(t, a.SetParameter(id, v))
	}

	data, err := a.State()
	require.NoError(t, err)

	b := newPreparedEngine(t, 1)
	require.NoError(t, b.SetState(data))

	for id := range paramCount {
		want, _ := a.Parameter(id)
		got, _ := b.Parameter(id)
		assert.Equalf(t, want, got, "parameter %s", id)
	}

	assert.Equal(t, a.Latency(), b.Latency())
	assert.Equal(t, a.shifter.HopSize(), b.shifter.HopSize())
	assert.Equal(t, a.shifter.OutputBufferLength(), b.shifter.OutputBufferLength())
	assert.Equal(t, a.shifter.WindowScaleFactor(), b.shifter.WindowScaleFactor())
	assert.Equal(t, a.dry[0].Len(), b.dry[0].Len())
}

func TestEngineSetStateErrors(t *testing.T) {
	e := newPreparedEngine(t, 1)

	assert.ErrorIs(t, e.SetState([]byte("{")), ErrInvalidState)
	assert.ErrorIs(t, e.SetState([]byte(`{"version":99,"params":{}}`)), ErrInvalidState)
	assert.ErrorIs(t, e.SetState([]byte(`{"params":{}}`)), ErrInvalidState)

	require.NoError(t, e.SetState([]byte(`{"version":1,"params":{"mix":0.25,"unknown":3}}`)))

	v, err := e.Parameter(ParamMix)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	fft, _ := e.Parameter(ParamFFTSize)
	assert.Equal(t, 1024.0, fft, "missing parameters keep their value")
}

func TestEngineSetParameterErrors(t *testing.T) {
	e := newPreparedEngine(t, 1)

	assert.ErrorIs(t, e.SetParameter(ParamID(99), 1), ErrUnknownParameter)
	assert.ErrorIs(t, e.SetParameter(ParamMix, math.NaN()), ErrInvalidValue)
	assert.ErrorIs(t, e.SetParameter(ParamFFTSize, math.Inf(1)), ErrInvalidValue)

	_, err := e.Parameter(ParamID(-1))
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestEngineConcurrentParameterChanges(t *testing.T) {
	e := newPreparedEngine(t, 2)
	require.NoError(t, e.Notes().NoteOn(64))

	stop := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		sizes := []float64{256, 512, 1024}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			_ = e.SetParameter(ParamFFTSize, sizes[i%len(sizes)])
			_ = e.SetParameter(ParamWindowType, float64(i%3))
			_ = e.SetParameter(ParamMix, float64(i%2))
			_ = e.SetParameter(ParamThreshold, 0.1+0.05*float64(i%3))
		}
	}()

	go func() {
		defer wg.Done()

		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			_ = e.Notes().NoteOn(60 + i%12)
			_ = e.Snapshot()
		}
	}()

	left := testutil.DeterministicSine(196, testSampleRate, 0.5, testBlock)
	right := testutil.DeterministicSine(392, testSampleRate, 0.5, testBlock)

	for range 200 {
		l := append([]float64(nil), left...)
		r := append([]float64(nil), right...)
		e.Process([][]float64{l, r})
		testutil.RequireFinite(t, l)
		testutil.RequireFinite(t, r)
	}

	close(stop)
	wg.Wait()

	assert.Equal(t, uint64(200), e.Snapshot().Blocks)
}

func TestEngineChannelHandling(t *testing.T) {
	e := newPreparedEngine(t, 1)

	extra := testutil.Ones(testBlock)
	first := testutil.Ones(testBlock)

	e.Process([][]float64{first, extra})

	assert.Equal(t, testutil.Ones(testBlock), extra, "channels beyond the engine's count are untouched")

	e.Process(nil)
	e.Process([][]float64{{}})
	assert.Equal(t, uint64(1), e.Snapshot().Blocks)
}

func TestEngineReset(t *testing.T) {
	e := newPreparedEngine(t, 1)
	require.NoError(t, e.Notes().NoteOn(69))

	processMono(e, testutil.DeterministicSine(220, testSampleRate, 0.5, 8*testBlock), testBlock)
	require.Equal(t, 2.0, e.Snapshot().Ratio)

	e.Reset()

	snap := e.Snapshot()
	assert.Equal(t, 1.0, snap.Ratio)
	assert.Zero(t, snap.Blocks)
	assert.True(t, e.shifter.PhaseStateZero())

	out := processMono(e, make([]float64, 4*testBlock), testBlock)
	assert.Zero(t, testutil.RMS(out))
}

func TestEngineCustomNoteSource(t *testing.T) {
	calls := 0
	src := NoteSourceFunc(func() (int, bool) {
		calls++
		return 62, calls == 1
	})

	e := newPreparedEngine(t, 1, WithNoteSource(src))

	processMono(e, testutil.DeterministicSine(220, testSampleRate, 0.5, 4*testBlock), testBlock)

	assert.Equal(t, 4, calls)
	assert.Equal(t, 62, e.Snapshot().Target)
}
