// Package ffmpeg binds the FFmpeg shared libraries at run time and builds
// audio open, clip export and stream-copy remux on top of them.
//
// The four libraries (avutil, swresample, avcodec, avformat) are opened with
// purego from a directory chosen at run time. cgo is only used for the struct
// layouts in the FFmpeg headers; nothing links against FFmpeg at build time.
package ffmpeg

/*
#cgo CFLAGS: -I/usr/local/include -I/usr/include/ffmpeg
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/audio_fifo.h>
#include <libavutil/channel_layout.h>
#include <libswresample/swresample.h>
*/
import "C"

import (
	"unsafe"

	"github.com/tubetape/ffshim/internal/audio"
)

const (
	avTimeBase              = audio.TimeBase
	avseekFlagBackward      = 1
	avioFlagWrite           = 2
	avfmtNoFile             = 0x0001
	avfmtGlobalHeader       = 0x0040
	avCodecFlagGlobalHeader = 1 << 22

	// FFERRTAG('E','O','F',' ') and FFERRTAG(0xF8,'D','E','C').
	averrorEOF             int32 = -0x20464F45
	averrorDecoderNotFound int32 = -0x434544F8

	avLogFatal   = 8
	avLogError   = 16
	avLogVerbose = 40

	// Chunk size for encoders that accept any frame size.
	variableFrameSize = 4096
)

func averror(errno int32) int32 {
	return -errno
}

func rational(r C.AVRational) audio.Rational {
	return audio.Rational{Num: int32(r.num), Den: int32(r.den)}
}

func streamAt(ctx *C.AVFormatContext, i int) *C.AVStream {
	if ctx == nil || i < 0 || i >= int(ctx.nb_streams) {
		return nil
	}
	return unsafe.Slice(ctx.streams, int(ctx.nb_streams))[i]
}

// cStringOrNil returns a NUL-terminated copy of s, or nil for "" so optional
// string parameters reach C as NULL.
func cStringOrNil(s string) *byte {
	if s == "" {
		return nil
	}
	b := append([]byte(s), 0)
	return &b[0]
}

func streamDuration(ctx *C.AVFormatContext, st *C.AVStream) float64 {
	if d := int64(st.duration); d != audio.NoPTS && d > 0 {
		return audio.Seconds(d, rational(st.time_base))
	}
	if d := int64(ctx.duration); d != audio.NoPTS && d > 0 {
		return float64(d) / avTimeBase
	}
	return 0
}

func rescalePacket(pkt *C.AVPacket, from, to audio.Rational) {
	pkt.pts = C.int64_t(audio.RescaleQ(int64(pkt.pts), from, to))
	pkt.dts = C.int64_t(audio.RescaleQ(int64(pkt.dts), from, to))
	if pkt.duration > 0 {
		pkt.duration = C.int64_t(audio.RescaleQ(int64(pkt.duration), from, to))
	}
}
