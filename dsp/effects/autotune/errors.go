package autotune

import "errors"

var (
	// ErrUnknownParameter is returned for a parameter ID or name the engine
	// does not define.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrInvalidValue is returned for non-finite parameter values.
	ErrInvalidValue = errors.New("invalid parameter value")
	// ErrInvalidState is returned when persisted state cannot be decoded.
	ErrInvalidState = errors.New("invalid state")
)
