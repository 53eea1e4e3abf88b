package ffmpeg

/*
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/audio_fifo.h>
#include <libswresample/swresample.h>
*/
import "C"

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// functions is the resolved FFmpeg entry-point table. Every field is
// mandatory; a Library is never built with a partially bound table.
type functions struct {
	// avutil
	avutilVersion          func() uint32
	avLogSetLevel          func(level int32)
	avStrerror             func(errnum int32, buf *byte, size uintptr) int32
	avFrameAlloc           func() *C.AVFrame
	avFrameFree            func(frame **C.AVFrame)
	avFrameUnref           func(frame *C.AVFrame)
	avFrameGetBuffer       func(frame *C.AVFrame, align int32) int32
	avDictSet              func(pm **C.AVDictionary, key, value string, flags int32) int32
	avDictFree             func(pm **C.AVDictionary)
	avChannelLayoutDefault func(layout *C.AVChannelLayout, channels int32)
	avChannelLayoutCopy    func(dst, src *C.AVChannelLayout) int32
	avChannelLayoutUninit  func(layout *C.AVChannelLayout)
	avAudioFifoAlloc       func(fmt C.enum_AVSampleFormat, channels, samples int32) *C.AVAudioFifo
	avAudioFifoFree        func(fifo *C.AVAudioFifo)
	avAudioFifoWrite       func(fifo *C.AVAudioFifo, data **C.uint8_t, samples int32) int32
	avAudioFifoRead        func(fifo *C.AVAudioFifo, data **C.uint8_t, samples int32) int32
	avAudioFifoSize        func(fifo *C.AVAudioFifo) int32

	// swresample
	swrAlloc         func() *C.SwrContext
	swrAllocSetOpts2 func(ps **C.SwrContext, outLayout *C.AVChannelLayout, outFmt C.enum_AVSampleFormat, outRate int32, inLayout *C.AVChannelLayout, inFmt C.enum_AVSampleFormat, inRate int32, logOffset int32, logCtx unsafe.Pointer) int32
	swrInit          func(s *C.SwrContext) int32
	swrFree          func(s **C.SwrContext)
	swrConvert       func(s *C.SwrContext, out **C.uint8_t, outCount int32, in **C.uint8_t, inCount int32) int32
	swrGetDelay      func(s *C.SwrContext, base int64) int64

	// avcodec
	avcodecVersion               func() uint32
	avcodecFindDecoder           func(id C.enum_AVCodecID) *C.AVCodec
	avcodecFindEncoder           func(id C.enum_AVCodecID) *C.AVCodec
	avcodecFindEncoderByName     func(name string) *C.AVCodec
	avcodecGetName               func(id C.enum_AVCodecID) string
	avcodecAllocContext3         func(codec *C.AVCodec) *C.AVCodecContext
	avcodecFreeContext           func(ctx **C.AVCodecContext)
	avcodecParametersToContext   func(ctx *C.AVCodecContext, par *C.AVCodecParameters) int32
	avcodecParametersFromContext func(par *C.AVCodecParameters, ctx *C.AVCodecContext) int32
	avcodecParametersCopy        func(dst, src *C.AVCodecParameters) int32
	avcodecOpen2                 func(ctx *C.AVCodecContext, codec *C.AVCodec, options **C.AVDictionary) int32
	avcodecSendPacket            func(ctx *C.AVCodecContext, pkt *C.AVPacket) int32
	avcodecReceiveFrame          func(ctx *C.AVCodecContext, frame *C.AVFrame) int32
	avcodecSendFrame             func(ctx *C.AVCodecContext, frame *C.AVFrame) int32
	avcodecReceivePacket         func(ctx *C.AVCodecContext, pkt *C.AVPacket) int32
	avcodecFlushBuffers          func(ctx *C.AVCodecContext)
	avPacketAlloc                func() *C.AVPacket
	avPacketFree                 func(pkt **C.AVPacket)
	avPacketUnref                func(pkt *C.AVPacket)

	// avformat
	avformatVersion             func() uint32
	avformatOpenInput           func(ps **C.AVFormatContext, url string, fmt *C.AVInputFormat, options **C.AVDictionary) int32
	avformatCloseInput          func(ps **C.AVFormatContext)
	avformatFindStreamInfo      func(ctx *C.AVFormatContext, options **C.AVDictionary) int32
	avFindBestStream            func(ctx *C.AVFormatContext, mediaType C.enum_AVMediaType, wanted, related int32, decoder **C.AVCodec, flags int32) int32
	avReadFrame                 func(ctx *C.AVFormatContext, pkt *C.AVPacket) int32
	avSeekFrame                 func(ctx *C.AVFormatContext, stream int32, ts int64, flags int32) int32
	avformatAllocOutputContext2 func(ps **C.AVFormatContext, ofmt *C.AVOutputFormat, formatName *byte, filename string) int32
	avformatNewStream           func(ctx *C.AVFormatContext, codec *C.AVCodec) *C.AVStream
	avformatWriteHeader         func(ctx *C.AVFormatContext, options **C.AVDictionary) int32
	avWriteTrailer              func(ctx *C.AVFormatContext) int32
	avInterleavedWriteFrame     func(ctx *C.AVFormatContext, pkt *C.AVPacket) int32
	avformatFreeContext         func(ctx *C.AVFormatContext)
	avioOpen                    func(pb **C.AVIOContext, url string, flags int32) int32
	avioClosep                  func(pb **C.AVIOContext) int32
}

type symbol struct {
	lib  int
	name string
	fn   any
}

func (f *functions) symbols() []symbol {
	return []symbol{
		{libAVUtil, "avutil_version", &f.avutilVersion},
		{libAVUtil, "av_log_set_level", &f.avLogSetLevel},
		{libAVUtil, "av_strerror", &f.avStrerror},
		{libAVUtil, "av_frame_alloc", &f.avFrameAlloc},
		{libAVUtil, "av_frame_free", &f.avFrameFree},
		{libAVUtil, "av_frame_unref", &f.avFrameUnref},
		{libAVUtil, "av_frame_get_buffer", &f.avFrameGetBuffer},
		{libAVUtil, "av_dict_set", &f.avDictSet},
		{libAVUtil, "av_dict_free", &f.avDictFree},
		{libAVUtil, "av_channel_layout_default", &f.avChannelLayoutDefault},
		{libAVUtil, "av_channel_layout_copy", &f.avChannelLayoutCopy},
		{libAVUtil, "av_channel_layout_uninit", &f.avChannelLayoutUninit},
		{libAVUtil, "av_audio_fifo_alloc", &f.avAudioFifoAlloc},
		{libAVUtil, "av_audio_fifo_free", &f.avAudioFifoFree},
		{libAVUtil, "av_audio_fifo_write", &f.avAudioFifoWrite},
		{libAVUtil, "av_audio_fifo_read", &f.avAudioFifoRead},
		{libAVUtil, "av_audio_fifo_size", &f.avAudioFifoSize},

		{libSWResample, "swr_alloc", &f.swrAlloc},
		{libSWResample, "swr_alloc_set_opts2", &f.swrAllocSetOpts2},
		{libSWResample, "swr_init", &f.swrInit},
		{libSWResample, "swr_free", &f.swrFree},
		{libSWResample, "swr_convert", &f.swrConvert},
		{libSWResample, "swr_get_delay", &f.swrGetDelay},

		{libAVCodec, "avcodec_version", &f.avcodecVersion},
		{libAVCodec, "avcodec_find_decoder", &f.avcodecFindDecoder},
		{libAVCodec, "avcodec_find_encoder", &f.avcodecFindEncoder},
		{libAVCodec, "avcodec_find_encoder_by_name", &f.avcodecFindEncoderByName},
		{libAVCodec, "avcodec_get_name", &f.avcodecGetName},
		{libAVCodec, "avcodec_alloc_context3", &f.avcodecAllocContext3},
		{libAVCodec, "avcodec_free_context", &f.avcodecFreeContext},
		{libAVCodec, "avcodec_parameters_to_context", &f.avcodecParametersToContext},
		{libAVCodec, "avcodec_parameters_from_context", &f.avcodecParametersFromContext},
		{libAVCodec, "avcodec_parameters_copy", &f.avcodecParametersCopy},
		{libAVCodec, "avcodec_open2", &f.avcodecOpen2},
		{libAVCodec, "avcodec_send_packet", &f.avcodecSendPacket},
		{libAVCodec, "avcodec_receive_frame", &f.avcodecReceiveFrame},
		{libAVCodec, "avcodec_send_frame", &f.avcodecSendFrame},
		{libAVCodec, "avcodec_receive_packet", &f.avcodecReceivePacket},
		{libAVCodec, "avcodec_flush_buffers", &f.avcodecFlushBuffers},
		{libAVCodec, "av_packet_alloc", &f.avPacketAlloc},
		{libAVCodec, "av_packet_free", &f.avPacketFree},
		{libAVCodec, "av_packet_unref", &f.avPacketUnref},

		{libAVFormat, "avformat_version", &f.avformatVersion},
		{libAVFormat, "avformat_open_input", &f.avformatOpenInput},
		{libAVFormat, "avformat_close_input", &f.avformatCloseInput},
		{libAVFormat, "avformat_find_stream_info", &f.avformatFindStreamInfo},
		{libAVFormat, "av_find_best_stream", &f.avFindBestStream},
		{libAVFormat, "av_read_frame", &f.avReadFrame},
		{libAVFormat, "av_seek_frame", &f.avSeekFrame},
		{libAVFormat, "avformat_alloc_output_context2", &f.avformatAllocOutputContext2},
		{libAVFormat, "avformat_new_stream", &f.avformatNewStream},
		{libAVFormat, "avformat_write_header", &f.avformatWriteHeader},
		{libAVFormat, "av_write_trailer", &f.avWriteTrailer},
		{libAVFormat, "av_interleaved_write_frame", &f.avInterleavedWriteFrame},
		{libAVFormat, "avformat_free_context", &f.avformatFreeContext},
		{libAVFormat, "avio_open", &f.avioOpen},
		{libAVFormat, "avio_closep", &f.avioClosep},
	}
}

// bind resolves every symbol against the opened library handles.
func (f *functions) bind(handles [numLibraries]uintptr) error {
	for _, s := range f.symbols() {
		addr, err := lookupSymbol(handles[s.lib], s.name)
		if err != nil || addr == 0 {
			return &LoadError{Kind: SymbolNotFound, Name: s.name, Err: err}
		}
		purego.RegisterFunc(s.fn, addr)
	}
	return nil
}

// SymbolNames lists every entry point the runtime resolves, grouped by
// library in load order.
func SymbolNames() map[string][]string {
	var f functions
	names := make(map[string][]string, numLibraries)
	for _, s := range f.symbols() {
		lib := libraryNames[s.lib]
		names[lib] = append(names[lib], s.name)
	}
	return names
}
