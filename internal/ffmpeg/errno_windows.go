//go:build windows

package ffmpeg

// FFmpeg builds for Windows use the MSVC errno table, where EAGAIN is 11.
var errAgain = averror(11)
