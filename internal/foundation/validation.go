// Package foundation holds small validation helpers shared by configuration code.
package foundation

import (
	"cmp"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/apierror/internal/foundation/errors"
)

// Validator represents a validation function.
type Validator[T any] func(T) ValidationResult

// ValidationResult contains the result of a validation operation.
type ValidationResult struct {
	Valid  bool
	Errors []FieldError
}

// FieldError represents a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface.
func (fe FieldError) Error() string {
	if fe.Field != "" {
		return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return fe.Message
}

// Valid creates a successful validation result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid creates a failed validation result with errors.
func Invalid(errs ...FieldError) ValidationResult {
	return ValidationResult{Errors: errs}
}

// NewFieldError creates a field error.
func NewFieldError(field, code, message string, value any) FieldError {
	return FieldError{Field: field, Code: code, Message: message, Value: value}
}

// Combine merges multiple validation results.
func (vr ValidationResult) Combine(others ...ValidationResult) ValidationResult {
	out := vr
	out.Errors = append([]FieldError(nil), vr.Errors...)
	for _, o := range others {
		if !o.Valid {
			out.Valid = false
			out.Errors = append(out.Errors, o.Errors...)
		}
	}
	return out
}

// ToError converts an invalid result into a configuration error listing every problem.
func (vr ValidationResult) ToError(message string) error {
	if vr.Valid {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	for _, fe := range vr.Errors {
		messages = append(messages, fe.Error())
	}
	return errors.ConfigError(message+": "+strings.Join(messages, "; ")).
		WithContext("problems", len(vr.Errors)).
		Build()
}

// Check wraps a bare error from another validator as a field failure.
func Check(field string, err error) ValidationResult {
	if err == nil {
		return Valid()
	}
	return Invalid(NewFieldError(field, "invalid", err.Error(), nil))
}

// Equal validates that a value matches the expected one.
func Equal[T comparable](field string, want T) Validator[T] {
	return func(v T) ValidationResult {
		if v != want {
			return Invalid(NewFieldError(field, "equal",
				fmt.Sprintf("unsupported value %v (expected %v)", v, want), v))
		}
		return Valid()
	}
}

// NonNegative validates that a number is zero or greater.
func NonNegative[T cmp.Ordered](field string) Validator[T] {
	var zero T
	return func(v T) ValidationResult {
		if v < zero {
			return Invalid(NewFieldError(field, "non_negative", "cannot be negative", v))
		}
		return Valid()
	}
}

// AtLeast validates that a value is not below min.
func AtLeast[T cmp.Ordered](field string, minimum T) Validator[T] {
	return func(v T) ValidationResult {
		if v < minimum {
			return Invalid(NewFieldError(field, "at_least",
				fmt.Sprintf("must be at least %v", minimum), v))
		}
		return Valid()
	}
}
