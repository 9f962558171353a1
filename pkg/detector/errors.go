package detector

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig   = errors.New("invalid detector configuration")
	ErrUnsupportedMode = errors.New("unsupported operating mode")
	ErrUnknownSerial   = errors.New("unknown detector serial number")
)

// A ConfigError says which field of the configuration is unusable, and
// why. It always wraps one of the sentinel errors above, so callers
// can use errors.Is to find the category.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%v: %s", e.Err, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func invalid(field string, val interface{}, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: val, Reason: reason, Err: ErrInvalidConfig}
}
