// Package config provides configuration types and defaults for ffshim.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidFormat indicates an unknown default export format.
	ErrInvalidFormat = errors.New("invalid export format")

	// ErrLibraryDirMissing indicates the configured library directory does not exist.
	ErrLibraryDirMissing = errors.New("library directory not found")
)
