package schema

import (
	"errors"
	"fmt"
)

// ConfigurationError reports malformed declarative metadata: a missing or
// duplicated primary key, an unsupported field type, or an identifier that
// fails validation. It surfaces at first use of the type and is not
// recoverable by retry.
type ConfigurationError struct {
	Type   string // entity type name
	Reason string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Type, e.Reason)
}

// NewConfigurationError returns a new ConfigurationError for the given type.
func NewConfigurationError(typ, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Type: typ, Reason: fmt.Sprintf(format, args...)}
}

// IsConfiguration returns true if the error is a ConfigurationError.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// MappingError reports a row shape that did not match the descriptor, or a
// value that could not be converted to its field.
type MappingError struct {
	Type   string // entity type name
	Column string // offending column, if known
	Err    error
}

// Error returns the error string.
func (e *MappingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema: mapping %s column %q: %v", e.Type, e.Column, e.Err)
	}
	return fmt.Sprintf("schema: mapping %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// NewMappingError returns a new MappingError.
func NewMappingError(typ, column string, err error) *MappingError {
	return &MappingError{Type: typ, Column: column, Err: err}
}

// IsMapping returns true if the error is a MappingError.
func IsMapping(err error) bool {
	if err == nil {
		return false
	}
	var e *MappingError
	return errors.As(err, &e)
}
