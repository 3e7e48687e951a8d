package autotune

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/effects/pitch"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

// ParamID identifies an engine parameter.
type ParamID int

const (
	// ParamFFTSize is the frame size, snapped to a power of two in [32, 8192].
	ParamFFTSize ParamID = iota
	// ParamHopDivisor is the overlap factor, snapped to 2, 4 or 8.
	ParamHopDivisor
	// ParamWindowType selects the window: 0 Bartlett, 1 Hann, 2 Hamming.
	ParamWindowType
	// ParamThreshold is the YIN absolute threshold, clamped into (0, 1).
	ParamThreshold
	// ParamMix is the dry/wet balance, 0 dry to 1 wet.
	ParamMix
	// ParamOutputGain is the output gain in dB.
	ParamOutputGain

	paramCount
)

const (
	minThreshold = 0.001
	maxThreshold = 0.999

	minOutputGainDB = -60.0
	maxOutputGainDB = 12.0
)

// ParamInfo describes the range and default of a parameter.
type ParamInfo struct {
	ID      ParamID
	Name    string
	Min     float64
	Max     float64
	Default float64
	Unit    string
}

var paramInfos = [paramCount]ParamInfo{
	ParamFFTSize: {
		ID: ParamFFTSize, Name: "fft_size",
		Min: pitch.MinFFTSize, Max: pitch.MaxFFTSize, Default: pitch.DefaultFFTSize, Unit: "samples",
	},
	ParamHopDivisor: {
		ID: ParamHopDivisor, Name: "hop_divisor",
		Min: 2, Max: 8, Default: pitch.DefaultHopDivisor,
	},
	ParamWindowType: {
		ID: ParamWindowType, Name: "window",
		Min: float64(window.TypeBartlett), Max: float64(window.TypeHamming), Default: float64(window.TypeHann),
	},
	ParamThreshold: {
		ID: ParamThreshold, Name: "threshold",
		Min: minThreshold, Max: maxThreshold, Default: pitchdetect.DefaultThreshold,
	},
	ParamMix: {
		ID: ParamMix, Name: "mix",
		Min: 0, Max: 1, Default: 1,
	},
	ParamOutputGain: {
		ID: ParamOutputGain, Name: "output_gain",
		Min: minOutputGainDB, Max: maxOutputGainDB, Default: 0, Unit: "dB",
	},
}

// Params returns the descriptions of all parameters in ID order.
func Params() []ParamInfo {
	out := make([]ParamInfo, len(paramInfos))
	copy(out, paramInfos[:])

	return out
}

// Info returns the description of id.
func (id ParamID) Info() (ParamInfo, error) {
	if !id.Valid() {
		return ParamInfo{}, fmt.Errorf("%w: %d", ErrUnknownParameter, int(id))
	}

	return paramInfos[id], nil
}

// Valid reports whether id names a parameter.
func (id ParamID) Valid() bool { return id >= 0 && id < paramCount }

func (id ParamID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("ParamID(%d)", int(id))
	}

	return paramInfos[id].Name
}

// ParseParamID looks a parameter up by its name.
func ParseParamID(name string) (ParamID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, info := range paramInfos {
		if info.Name == key {
			return info.ID, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// Normalize maps a raw host value onto the value the engine will use:
// sizes are snapped, choices rounded and ranges clamped.
func Normalize(id ParamID, value float64) (float64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownParameter, int(id))
	}

	if !core.IsFinite(value) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidValue, id, value)
	}

	info := paramInfos[id]

	switch id {
	case ParamFFTSize:
		return float64(core.SnapPowerOfTwo(value, pitch.MinFFTSize, pitch.MaxFFTSize)), nil
	case ParamHopDivisor:
		return float64(snapHopDivisor(value)), nil
	case ParamWindowType:
		return core.Clamp(math.Round(value), info.Min, info.Max), nil
	default:
		return core.Clamp(value, info.Min, info.Max), nil
	}
}

// snapHopDivisor picks the supported divisor nearest to value on a log scale.
func snapHopDivisor(value float64) int {
	best := pitch.HopDivisors()[0]
	if value <= 0 {
		return best
	}

	bestDist := math.Inf(1)
	for _, d := range pitch.HopDivisors() {
		dist := math.Abs(math.Log2(value) - math.Log2(float64(d)))
		if dist < bestDist {
			best, bestDist = d, dist
		}
	}

	return best
}

func defaultParams() [paramCount]float64 {
	var p [paramCount]float64
	for i, info := range paramInfos {
		p[i] = info.Default
	}

	return p
}
