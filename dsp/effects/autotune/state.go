package autotune

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// StateVersion is the version written by [Engine.State].
const StateVersion = 1

// stateDocument is the persisted form of the engine parameters.
type stateDocument struct {
	Version int                `json:"version"`
	Params  map[string]float64 `json:"params"`
}

// State serializes the parameter values. Audio, phase and tracking state
// are not persisted.
func (e *Engine) State() ([]byte, error) {
	e.mu.Lock()
	doc := stateDocument{
		Version: StateVersion,
		Params:  make(map[string]float64, paramCount),
	}

	for id := range paramCount {
		doc.Params[id.String()] = e.params[id]
	}
	e.mu.Unlock()

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	return data, nil
}

// SetState restores parameters written by [Engine.State]. Values are
// replayed through the same path as [Engine.SetParameter], so a round trip
// reproduces buffer sizes and window tables. Missing parameters keep their
// current value; unknown ones are skipped.
func (e *Engine) SetState(data []byte) error {
	var doc stateDocument

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	if doc.Version < 1 || doc.Version > StateVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidState, doc.Version)
	}

	values := make(map[ParamID]float64, len(doc.Params))

	for name, raw := range doc.Params {
		id, err := ParseParamID(name)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"function": "SetState",
				"param":    name,
			}).Warn("Skipping unknown parameter")

			continue
		}

		v, err := Normalize(id, raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}

		values[id] = v
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range paramCount {
		v, ok := values[id]
		if !ok {
			continue
		}

		err = e.setParameterLocked(id, v)
		if err != nil {
			return err
		}
	}

	e.log.WithFields(logrus.Fields{
		"function": "SetState",
		"params":   len(values),
	}).Info("State restored")

	return nil
}
