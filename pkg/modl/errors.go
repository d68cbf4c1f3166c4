package modl

import (
	"fmt"
)

// ErrorType represents different categories of interpreter errors.
type ErrorType string

const (
	// VersionMismatchError indicates a *VERSION directive that does not match
	// the version this interpreter was configured for.
	VersionMismatchError ErrorType = "version_mismatch"

	// UnrecognisedInstructionError indicates a top-level *-prefixed key that is
	// not a known directive.
	UnrecognisedInstructionError ErrorType = "unrecognised_instruction"

	// ImmutableRedefinitionError indicates an attempt to rebind an
	// upper-case-only (immutable) pair name.
	ImmutableRedefinitionError ErrorType = "immutable_redefinition"

	// ImportLimitExceededError indicates that the import-restart protocol ran
	// past the configured maximum number of restarts.
	ImportLimitExceededError ErrorType = "import_limit_exceeded"

	// InvalidClassDefinitionError indicates a *class definition without an id,
	// or one that derives from a reserved class.
	InvalidClassDefinitionError ErrorType = "invalid_class_definition"

	// InvalidReferenceError indicates a nested reference segment that resolves
	// to nothing in a standalone reference.
	InvalidReferenceError ErrorType = "invalid_reference"

	// LoadError indicates a failure in the import loader collaborator.
	LoadError ErrorType = "load_error"

	// MalformedInputError indicates a node the evaluator cannot classify.
	MalformedInputError ErrorType = "malformed_input"

	// SyntaxError indicates input text the parser could not parse.
	SyntaxError ErrorType = "syntax_error"
)

// ModlError is the base error type for all interpreter operations.
type ModlError struct {
	Type    ErrorType
	Message string
	Key     string
	Cause   error
}

func (e *ModlError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s at '%s': %s", e.Type, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ModlError) Unwrap() error {
	return e.Cause
}

// NewVersionMismatchError creates a new version mismatch error
func NewVersionMismatchError(got string, want int) *ModlError {
	return &ModlError{
		Type:    VersionMismatchError,
		Message: fmt.Sprintf("can't handle MODL version '%s', requires '%d'", got, want),
	}
}

// NewUnrecognisedInstructionError creates a new unrecognised instruction error
func NewUnrecognisedInstructionError(key string) *ModlError {
	return &ModlError{
		Type:    UnrecognisedInstructionError,
		Message: "unrecognised instruction",
		Key:     key,
	}
}

// NewImmutableRedefinitionError creates a new immutable redefinition error
func NewImmutableRedefinitionError(key string) *ModlError {
	return &ModlError{
		Type:    ImmutableRedefinitionError,
		Message: "cannot be redefined, upper-case keys are immutable",
		Key:     key,
	}
}

// NewImportLimitExceededError creates a new import limit error
func NewImportLimitExceededError(max int) *ModlError {
	return &ModlError{
		Type:    ImportLimitExceededError,
		Message: fmt.Sprintf("more than %d import restarts", max),
	}
}

// NewInvalidClassDefinitionError creates a new class definition error
func NewInvalidClassDefinitionError(message string, key string) *ModlError {
	return &ModlError{
		Type:    InvalidClassDefinitionError,
		Message: message,
		Key:     key,
	}
}

// NewInvalidReferenceError creates a new invalid reference error
func NewInvalidReferenceError(segment string) *ModlError {
	return &ModlError{
		Type:    InvalidReferenceError,
		Message: "invalid object reference",
		Key:     segment,
	}
}

// NewLoadError wraps a loader failure
func NewLoadError(location string, cause error) *ModlError {
	return &ModlError{
		Type:    LoadError,
		Message: cause.Error(),
		Key:     location,
		Cause:   cause,
	}
}

// NewMalformedInputError creates a new malformed input error
func NewMalformedInputError(message string) *ModlError {
	return &ModlError{
		Type:    MalformedInputError,
		Message: message,
	}
}

// IsModlError checks if an error is a ModlError
func IsModlError(err error) bool {
	_, ok := err.(*ModlError)
	return ok
}

// GetErrorType returns the error type if it's a ModlError, empty string otherwise
func GetErrorType(err error) ErrorType {
	if modlErr, ok := err.(*ModlError); ok {
		return modlErr.Type
	}
	return ""
}
