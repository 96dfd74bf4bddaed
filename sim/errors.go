package sim

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ConfigurationError.
var (
	ErrNonPositiveBudget = errors.New("budget must be positive")
	ErrScheduleTooShort  = errors.New("threshold schedule shorter than number of selection rounds")
	ErrEmptyGuessDomain  = errors.New("guess domain is empty")
	ErrInvalidEpsilon    = errors.New("epsilon must be a finite positive number")
)

// ConfigurationError reports an experiment setting that makes selection
// impossible. It is fatal and surfaced before any round executes.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// configError builds a ConfigurationError whose message carries detail
// while still matching the sentinel through errors.Is.
func configError(field string, sentinel error, format string, args ...any) error {
	if format == "" {
		return &ConfigurationError{Field: field, Err: sentinel}
	}
	return &ConfigurationError{Field: field, Err: fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func errNonFinite(idx int, val float64) error {
	return fmt.Errorf("entry %d must be a finite number, got %v", idx, val)
}
