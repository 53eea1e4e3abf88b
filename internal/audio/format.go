// Package audio holds the value types shared by the native runtime and the
// command emulator: output formats, codec selections and timebase math.
package audio

import (
	"path/filepath"
	"strings"
)

// SampleFormat mirrors FFmpeg's AVSampleFormat numbering.
type SampleFormat int32

const (
	SampleFmtNone SampleFormat = -1
	SampleFmtU8   SampleFormat = 0
	SampleFmtS16  SampleFormat = 1
	SampleFmtS32  SampleFormat = 2
	SampleFmtFLT  SampleFormat = 3
	SampleFmtDBL  SampleFormat = 4
	SampleFmtU8P  SampleFormat = 5
	SampleFmtS16P SampleFormat = 6
	SampleFmtS32P SampleFormat = 7
	SampleFmtFLTP SampleFormat = 8
	SampleFmtDBLP SampleFormat = 9
)

// Format is the target container/codec family of an export.
type Format int

const (
	FormatMP3 Format = iota
	FormatAAC
	FormatFLAC
	FormatWAV
	// FormatCopy is only produced by the command emulator.
	FormatCopy
)

// String returns a short lowercase name.
func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatAAC:
		return "aac"
	case FormatFLAC:
		return "flac"
	case FormatWAV:
		return "wav"
	case FormatCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// EncoderName returns the FFmpeg encoder used for the format.
func (f Format) EncoderName() string {
	switch f {
	case FormatMP3:
		return "libmp3lame"
	case FormatAAC:
		return "aac"
	case FormatFLAC:
		return "flac"
	case FormatWAV:
		return "pcm_s16le"
	default:
		return "copy"
	}
}

// MuxerName returns the FFmpeg output format name.
func (f Format) MuxerName() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatAAC:
		return "adts"
	case FormatFLAC:
		return "flac"
	case FormatWAV:
		return "wav"
	default:
		return ""
	}
}

// SampleFormat returns the sample layout handed to the encoder.
func (f Format) SampleFormat() SampleFormat {
	switch f {
	case FormatMP3:
		return SampleFmtS16P
	case FormatAAC:
		return SampleFmtFLTP
	case FormatFLAC, FormatWAV:
		return SampleFmtS16
	default:
		return SampleFmtNone
	}
}

// FormatFromExtension maps a file extension, with or without the leading
// dot, to a Format. Matching is case-insensitive.
func FormatFromExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp3":
		return FormatMP3, true
	case "aac", "m4a":
		return FormatAAC, true
	case "flac":
		return FormatFLAC, true
	case "wav":
		return FormatWAV, true
	default:
		return FormatCopy, false
	}
}

// FormatFromPath maps the extension of path to a Format, falling back to MP3.
func FormatFromPath(path string) Format {
	if f, ok := FormatFromExtension(filepath.Ext(path)); ok {
		return f
	}
	return FormatMP3
}
