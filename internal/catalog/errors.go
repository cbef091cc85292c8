package catalog

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed caller input. It is raised before any
// query executes and is never retried.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %q: %v (%s)", e.Field, e.Value, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateRange returns a ValidationError unless min <= v <= max.
func ValidateRange(field string, v, min, max int) error {
	if v < min || v > max {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return nil
}

// ConstraintError reports a write rejected by the storage engine due to a
// uniqueness or foreign-key violation. The wrapped error carries the driver
// detail.
type ConstraintError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q violated on %s: %v", e.Constraint, e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is a ConstraintError.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// ConfigurationError reports process-wide configuration state that makes an
// operation impossible (missing or out-of-range vector dimension). Fatal to
// embedding operations until resolved.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %q: %s", e.Key, e.Reason)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
