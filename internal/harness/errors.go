package harness

import (
	"errors"
	"fmt"
)

// ConfigError reports a defect in the test's declared configuration that
// prevents planning. No process is spawned when planning fails.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Test is the affected test identifier.
	Test string

	// Variant names the offending variant, if any.
	Variant string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeMissingPlaceholder indicates a variant without a backend placeholder.
	ErrCodeMissingPlaceholder ConfigErrorCode = "MISSING_PLACEHOLDER"

	// ErrCodeDuplicatePlaceholder indicates a variant with several placeholders.
	ErrCodeDuplicatePlaceholder ConfigErrorCode = "DUPLICATE_PLACEHOLDER"

	// ErrCodeNoBackends indicates an empty backend list.
	ErrCodeNoBackends ConfigErrorCode = "NO_BACKENDS"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Variant != "" {
		return fmt.Sprintf("%s: %s (test=%s, variant=%s)", e.Code, e.Message, e.Test, e.Variant)
	}
	if e.Test != "" {
		return fmt.Sprintf("%s: %s (test=%s)", e.Code, e.Message, e.Test)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
