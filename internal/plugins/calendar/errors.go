package calendar

import (
	"errors"
	"fmt"
)

// Sentinel errors for the calendar engine. Callers match them with errors.Is;
// the typed errors below unwrap to ErrConfig and ErrInvalidDate.
var (
	ErrConfig            = errors.New("invalid calendar configuration")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMoonConfig = errors.New("invalid moon configuration")
	ErrOverflow          = errors.New("calendar arithmetic overflow")
	ErrNotFound          = errors.New("calendar not found")
)

// ConfigError describes why a configuration could not be built into a
// definition. The previously active definition is left untouched.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("calendar config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvalidDateError reports a DateTimeParts field that is out of range for the
// active definition.
type InvalidDateError struct {
	Field  string
	Value  int
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date: %s=%d: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

func invalidDate(field string, value int, format string, args ...any) *InvalidDateError {
	return &InvalidDateError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}
