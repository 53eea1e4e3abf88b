// Package errors provides structured error types for ffshim operations.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindEnvironment represents a missing native library or symbol.
	KindEnvironment ErrorKind = iota
	// KindInput represents unusable input media.
	KindInput
	// KindNative represents a failing native call.
	KindNative
	// KindArgument represents invalid command arguments or parameters.
	KindArgument
	// KindIO represents filesystem errors outside the native layer.
	KindIO
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindOperationFailed represents general operation failures.
	KindOperationFailed
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindEnvironment:
		return "Native runtime unavailable"
	case KindInput:
		return "Input error"
	case KindNative:
		return "FFmpeg error"
	case KindArgument:
		return "Argument error"
	case KindIO:
		return "I/O error"
	case KindConfig:
		return "Configuration error"
	case KindOperationFailed:
		return "Operation failed"
	default:
		return "Unknown error"
	}
}

// CoreError is the main error type for ffshim operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewEnvironmentError wraps a native runtime load failure.
func NewEnvironmentError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindEnvironment, Message: message, Underlying: underlying}
}

// NewInputError creates an error for unusable input media.
func NewInputError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindInput, Message: message, Underlying: underlying}
}

// NewNativeError creates an error for a failing native call.
func NewNativeError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindNative, Message: message, Underlying: underlying}
}

// NewArgumentError creates an argument validation error.
func NewArgumentError(message string) *CoreError {
	return &CoreError{Kind: KindArgument, Message: message}
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewOperationFailedError creates a new general operation failure error.
func NewOperationFailedError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindOperationFailed, Message: message, Underlying: underlying}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsEnvironment checks if the error means the native runtime is unavailable.
func IsEnvironment(err error) bool {
	return IsKind(err, KindEnvironment)
}

// Message returns the innermost human-readable message of err. CoreError
// prefixes are stripped so command output matches what the tools print.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		if coreErr.Underlying != nil {
			return fmt.Sprintf("%s: %s", coreErr.Message, Message(coreErr.Underlying))
		}
		return coreErr.Message
	}
	return err.Error()
}
