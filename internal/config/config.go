package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tubetape/ffshim/internal/audio"
	"github.com/tubetape/ffshim/internal/logging"
)

// Environment variables read by LoadFromEnv.
const (
	EnvLibraryDir    = "FFSHIM_FFMPEG_DIR"
	EnvLegacyLibrary = "FFSHIM_FFMPEG_LIB"
	EnvLogLevel      = "FFSHIM_LOG_LEVEL"
	EnvDefaultFormat = "FFSHIM_DEFAULT_FORMAT"
	EnvOverwrite     = "FFSHIM_OVERWRITE"
)

// Default values.
const (
	DefaultLogLevel     = "warn"
	DefaultExportFormat = "mp3"
	DefaultOverwrite    = false
)

// Config holds runtime configuration for the native binding and the CLI.
type Config struct {
	// Directory holding avutil, swresample, avcodec and avformat.
	LibraryDir string
	// Optional monolithic libffmpeg used by the legacy runner.
	LegacyLibraryPath string

	LogLevel string
	LogDir   string // Optional, enables a log file

	// DefaultFormat names the export format used when the output extension
	// is not recognized.
	DefaultFormat string
	Overwrite     bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		LogLevel:      DefaultLogLevel,
		DefaultFormat: DefaultExportFormat,
		Overwrite:     DefaultOverwrite,
	}
}

// LoadFromEnv overlays values present in the environment onto c.
func (c *Config) LoadFromEnv() {
	c.LibraryDir = envStr(EnvLibraryDir, c.LibraryDir)
	c.LegacyLibraryPath = envStr(EnvLegacyLibrary, c.LegacyLibraryPath)
	c.LogLevel = envStr(EnvLogLevel, c.LogLevel)
	c.DefaultFormat = envStr(EnvDefaultFormat, c.DefaultFormat)
	c.Overwrite = envBool(EnvOverwrite, c.Overwrite)
}

// LibraryDirFromEnv returns FFSHIM_FFMPEG_DIR, or "" when it is unset.
func LibraryDirFromEnv() string {
	return envStr(EnvLibraryDir, "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	if _, ok := audio.FormatFromExtension(c.DefaultFormat); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.DefaultFormat)
	}

	if c.LibraryDir != "" {
		info, err := os.Stat(c.LibraryDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrLibraryDirMissing, c.LibraryDir)
		}
	}

	return nil
}

// ExportFormat returns the parsed default export format.
func (c *Config) ExportFormat() audio.Format {
	f, ok := audio.FormatFromExtension(c.DefaultFormat)
	if !ok {
		return audio.FormatMP3
	}
	return f
}

func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}
