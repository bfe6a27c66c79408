package params

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTimeframe  = errors.New("unknown timeframe")
	ErrUnknownFlag       = errors.New("unknown flag")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidInteger    = errors.New("invalid integer")
	ErrUnknownParameter  = errors.New("unknown parameter")
	ErrRepeatedParameter = errors.New("parameter given more than once")
)

// FieldError names the parameter that failed to resolve.
type FieldError struct {
	Field Key
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v %q", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Reason returns a stable machine-readable code for the failure.
func (e *FieldError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrUnknownTimeframe):
		return "unknown_timeframe"
	case errors.Is(e.Err, ErrUnknownFlag):
		return "unknown_flag"
	case errors.Is(e.Err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(e.Err, ErrInvalidInteger):
		return "invalid_integer"
	case errors.Is(e.Err, ErrUnknownParameter):
		return "unknown_parameter"
	case errors.Is(e.Err, ErrRepeatedParameter):
		return "repeated_parameter"
	default:
		return "invalid_parameter"
	}
}
