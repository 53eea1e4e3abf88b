package ffmpeg

import (
	"bytes"
	"fmt"
)

// LoadErrorKind classifies a failed library load.
type LoadErrorKind int

const (
	DirectoryNotSet LoadErrorKind = iota
	LibraryLoadFailed
	SymbolNotFound
)

// LoadError reports why the FFmpeg libraries could not be loaded.
type LoadError struct {
	Kind LoadErrorKind
	// Name is the library (LibraryLoadFailed) or symbol (SymbolNotFound).
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case DirectoryNotSet:
		return "library directory not set"
	case LibraryLoadFailed:
		return fmt.Sprintf("failed to load %s: %v", e.Name, e.Err)
	case SymbolNotFound:
		return fmt.Sprintf("symbol not found: %s", e.Name)
	default:
		return "failed to load FFmpeg"
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// AVError is a negative return code from an FFmpeg call.
type AVError struct {
	Op   string
	Code int32
	Text string
}

func (e *AVError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Text, e.Code)
	}
	return fmt.Sprintf("%s: error %d", e.Op, e.Code)
}

// IsEOF reports whether the code is AVERROR_EOF.
func (e *AVError) IsEOF() bool {
	return e.Code == averrorEOF
}

func (l *Library) avError(op string, code int32) *AVError {
	buf := make([]byte, 256)
	text := ""
	if l.fn.avStrerror(code, &buf[0], uintptr(len(buf))) == 0 {
		if n := bytes.IndexByte(buf, 0); n >= 0 {
			buf = buf[:n]
		}
		text = string(buf)
	}
	return &AVError{Op: op, Code: code, Text: text}
}
