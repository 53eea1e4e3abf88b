package ffmpeg

/*
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/audio_fifo.h>
#include <libswresample/swresample.h>
*/
import "C"

import (
	"fmt"
	"sync/atomic"

	"github.com/tubetape/ffshim/internal/errors"
)

// HandleKind identifies one kind of owned native object.
type HandleKind int

const (
	HandleFormat HandleKind = iota
	HandleCodec
	HandleResampler
	HandleFrame
	HandlePacket
	HandleFIFO
	numHandleKinds
)

func (k HandleKind) String() string {
	switch k {
	case HandleFormat:
		return "format"
	case HandleCodec:
		return "codec"
	case HandleResampler:
		return "resampler"
	case HandleFrame:
		return "frame"
	case HandlePacket:
		return "packet"
	case HandleFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

type handleCounters struct {
	live      [numHandleKinds]atomic.Int64
	allocated [numHandleKinds]atomic.Int64
}

// HandleStats is a snapshot of native object accounting for a Library.
type HandleStats struct {
	Live      [numHandleKinds]int64
	Allocated [numHandleKinds]int64
}

// TotalLive returns the number of native objects currently owned.
func (s HandleStats) TotalLive() int64 {
	var n int64
	for _, v := range s.Live {
		n += v
	}
	return n
}

// HandleStats returns the current native object accounting.
func (l *Library) HandleStats() HandleStats {
	var s HandleStats
	for k := range s.Live {
		s.Live[k] = l.counters.live[k].Load()
		s.Allocated[k] = l.counters.allocated[k].Load()
	}
	return s
}

func (l *Library) acquired(k HandleKind) {
	l.counters.live[k].Add(1)
	l.counters.allocated[k].Add(1)
}

func (l *Library) released(k HandleKind) {
	l.counters.live[k].Add(-1)
}

// inputContext owns a demuxer opened with avformat_open_input.
type inputContext struct {
	lib *Library
	ptr *C.AVFormatContext
}

func (l *Library) openInput(path string) (*inputContext, error) {
	var ctx *C.AVFormatContext
	if ret := l.fn.avformatOpenInput(&ctx, path, nil, nil); ret < 0 {
		return nil, errors.NewInputError("failed to open input", l.avError("avformat_open_input", ret))
	}
	l.acquired(HandleFormat)
	in := &inputContext{lib: l, ptr: ctx}

	if ret := l.fn.avformatFindStreamInfo(ctx, nil); ret < 0 {
		in.Close()
		return nil, errors.NewNativeError("failed to find stream info", l.avError("avformat_find_stream_info", ret))
	}
	return in, nil
}

// bestAudioStream returns the index of the stream FFmpeg ranks best for
// audio and, when withDecoder is set, the decoder for it.
func (in *inputContext) bestAudioStream(withDecoder bool) (int, *C.AVCodec, error) {
	var dec *C.AVCodec
	var decRet **C.AVCodec
	if withDecoder {
		decRet = &dec
	}

	ret := in.lib.fn.avFindBestStream(in.ptr, C.AVMEDIA_TYPE_AUDIO, -1, -1, decRet, 0)
	if ret == averrorDecoderNotFound {
		return -1, nil, errors.NewInputError("no decoder for audio stream", in.lib.avError("av_find_best_stream", ret))
	}
	if ret < 0 {
		return -1, nil, errors.NewInputError("no audio stream found", in.lib.avError("av_find_best_stream", ret))
	}
	return int(ret), dec, nil
}

func (in *inputContext) Close() {
	if in == nil || in.ptr == nil {
		return
	}
	in.lib.fn.avformatCloseInput(&in.ptr)
	in.ptr = nil
	in.lib.released(HandleFormat)
}

// outputContext owns a muxer and, once opened, its output file.
type outputContext struct {
	lib            *Library
	ptr            *C.AVFormatContext
	path           string
	createdFile    bool
	headerWritten  bool
	trailerWritten bool
}

func (l *Library) newOutput(path, muxer string) (*outputContext, error) {
	var ctx *C.AVFormatContext
	ret := l.fn.avformatAllocOutputContext2(&ctx, nil, cStringOrNil(muxer), path)
	if ret < 0 || ctx == nil {
		return nil, errors.NewNativeError("failed to allocate output context", l.avError("avformat_alloc_output_context2", ret))
	}
	l.acquired(HandleFormat)
	return &outputContext{lib: l, ptr: ctx, path: path}, nil
}

func (o *outputContext) flags() int {
	return int(o.ptr.oformat.flags)
}

func (o *outputContext) muxerName() string {
	return C.GoString(o.ptr.oformat.name)
}

func (o *outputContext) openIO() error {
	if o.flags()&avfmtNoFile != 0 {
		return nil
	}
	if ret := o.lib.fn.avioOpen(&o.ptr.pb, o.path, avioFlagWrite); ret < 0 {
		return errors.NewIOError(fmt.Sprintf("failed to open output %s", o.path), o.lib.avError("avio_open", ret))
	}
	o.createdFile = true
	return nil
}

func (o *outputContext) writeHeader() error {
	if ret := o.lib.fn.avformatWriteHeader(o.ptr, nil); ret < 0 {
		return errors.NewNativeError("failed to write header", o.lib.avError("avformat_write_header", ret))
	}
	o.headerWritten = true
	return nil
}

func (o *outputContext) writePacket(pkt *C.AVPacket) error {
	if ret := o.lib.fn.avInterleavedWriteFrame(o.ptr, pkt); ret < 0 {
		return errors.NewNativeError("failed to write packet", o.lib.avError("av_interleaved_write_frame", ret))
	}
	return nil
}

func (o *outputContext) writeTrailer() error {
	o.trailerWritten = true
	if ret := o.lib.fn.avWriteTrailer(o.ptr); ret < 0 {
		return errors.NewNativeError("failed to write trailer", o.lib.avError("av_write_trailer", ret))
	}
	return nil
}

// Close finalizes a started file best-effort, closes the I/O context and
// frees the muxer.
func (o *outputContext) Close() {
	if o == nil || o.ptr == nil {
		return
	}
	if o.headerWritten && !o.trailerWritten {
		_ = o.writeTrailer()
	}
	if o.flags()&avfmtNoFile == 0 && o.ptr.pb != nil {
		o.lib.fn.avioClosep(&o.ptr.pb)
	}
	o.lib.fn.avformatFreeContext(o.ptr)
	o.ptr = nil
	o.lib.released(HandleFormat)
}

// codecContext owns a decoder or encoder context.
type codecContext struct {
	lib *Library
	ptr *C.AVCodecContext
}

func (l *Library) newCodecContext(codec *C.AVCodec) (*codecContext, error) {
	ctx := l.fn.avcodecAllocContext3(codec)
	if ctx == nil {
		return nil, errors.NewNativeError("failed to allocate codec context", nil)
	}
	l.acquired(HandleCodec)
	return &codecContext{lib: l, ptr: ctx}, nil
}

// openDecoder allocates and opens a decoder for stream. codec may be nil,
// in which case it is looked up from the stream's codec id.
func (l *Library) openDecoder(stream *C.AVStream, codec *C.AVCodec) (*codecContext, error) {
	if codec == nil {
		codec = l.fn.avcodecFindDecoder(stream.codecpar.codec_id)
	}
	if codec == nil {
		return nil, errors.NewInputError("no decoder for audio stream", nil)
	}

	dec, err := l.newCodecContext(codec)
	if err != nil {
		return nil, err
	}
	if ret := l.fn.avcodecParametersToContext(dec.ptr, stream.codecpar); ret < 0 {
		dec.Close()
		return nil, errors.NewNativeError("failed to copy codec parameters", l.avError("avcodec_parameters_to_context", ret))
	}
	dec.ptr.pkt_timebase = stream.time_base
	if ret := l.fn.avcodecOpen2(dec.ptr, codec, nil); ret < 0 {
		dec.Close()
		return nil, errors.NewNativeError("failed to open decoder", l.avError("avcodec_open2", ret))
	}
	return dec, nil
}

func (c *codecContext) Close() {
	if c == nil || c.ptr == nil {
		return
	}
	c.lib.fn.avcodecFreeContext(&c.ptr)
	c.ptr = nil
	c.lib.released(HandleCodec)
}

// resampler owns a SwrContext converting the decoder's sample format and
// layout to the encoder's at one rate.
type resampler struct {
	lib *Library
	ptr *C.SwrContext
}

func (l *Library) newResampler(outLayout, inLayout *C.AVChannelLayout, outFmt, inFmt C.enum_AVSampleFormat, rate int32) (*resampler, error) {
	swr := l.fn.swrAlloc()
	if swr == nil {
		return nil, errors.NewNativeError("failed to allocate resampler", nil)
	}
	l.acquired(HandleResampler)
	r := &resampler{lib: l, ptr: swr}

	// On failure swr_alloc_set_opts2 frees the context and clears r.ptr.
	if ret := l.fn.swrAllocSetOpts2(&r.ptr, outLayout, outFmt, rate, inLayout, inFmt, rate, 0, nil); ret < 0 {
		r.Close()
		return nil, errors.NewNativeError("failed to configure resampler", l.avError("swr_alloc_set_opts2", ret))
	}
	if ret := l.fn.swrInit(r.ptr); ret < 0 {
		r.Close()
		return nil, errors.NewNativeError("failed to initialize resampler", l.avError("swr_init", ret))
	}
	return r, nil
}

func (r *resampler) Close() {
	if r == nil {
		return
	}
	if r.ptr != nil {
		r.lib.fn.swrFree(&r.ptr)
		r.ptr = nil
	}
	if r.lib != nil {
		r.lib.released(HandleResampler)
		r.lib = nil
	}
}

type frame struct {
	lib *Library
	ptr *C.AVFrame
}

func (l *Library) newFrame() (*frame, error) {
	f := l.fn.avFrameAlloc()
	if f == nil {
		return nil, errors.NewNativeError("failed to allocate frame", nil)
	}
	l.acquired(HandleFrame)
	return &frame{lib: l, ptr: f}, nil
}

// prepare resets f and allocates buffers for samples in the encoder's
// format, rate and layout.
func (f *frame) prepare(enc *C.AVCodecContext, samples int32) error {
	l := f.lib
	l.fn.avFrameUnref(f.ptr)
	f.ptr.nb_samples = C.int(samples)
	f.ptr.format = C.int(enc.sample_fmt)
	f.ptr.sample_rate = enc.sample_rate
	if ret := l.fn.avChannelLayoutCopy(&f.ptr.ch_layout, &enc.ch_layout); ret < 0 {
		return errors.NewNativeError("failed to copy channel layout", l.avError("av_channel_layout_copy", ret))
	}
	if ret := l.fn.avFrameGetBuffer(f.ptr, 0); ret < 0 {
		return errors.NewNativeError("failed to allocate frame buffer", l.avError("av_frame_get_buffer", ret))
	}
	return nil
}

func (f *frame) Close() {
	if f == nil || f.ptr == nil {
		return
	}
	f.lib.fn.avFrameFree(&f.ptr)
	f.ptr = nil
	f.lib.released(HandleFrame)
}

type packet struct {
	lib *Library
	ptr *C.AVPacket
}

func (l *Library) newPacket() (*packet, error) {
	p := l.fn.avPacketAlloc()
	if p == nil {
		return nil, errors.NewNativeError("failed to allocate packet", nil)
	}
	l.acquired(HandlePacket)
	return &packet{lib: l, ptr: p}, nil
}

func (p *packet) unref() {
	p.lib.fn.avPacketUnref(p.ptr)
}

func (p *packet) Close() {
	if p == nil || p.ptr == nil {
		return
	}
	p.lib.fn.avPacketFree(&p.ptr)
	p.ptr = nil
	p.lib.released(HandlePacket)
}

// sampleFIFO re-chunks decoded samples into encoder-sized frames.
type sampleFIFO struct {
	lib *Library
	ptr *C.AVAudioFifo
}

func (l *Library) newSampleFIFO(format C.enum_AVSampleFormat, channels, capacity int32) (*sampleFIFO, error) {
	fifo := l.fn.avAudioFifoAlloc(format, channels, capacity)
	if fifo == nil {
		return nil, errors.NewNativeError("failed to allocate sample queue", nil)
	}
	l.acquired(HandleFIFO)
	return &sampleFIFO{lib: l, ptr: fifo}, nil
}

func (q *sampleFIFO) write(data **C.uint8_t, samples int32) error {
	if ret := q.lib.fn.avAudioFifoWrite(q.ptr, data, samples); ret < samples {
		return errors.NewNativeError("failed to queue samples", q.lib.avError("av_audio_fifo_write", min(ret, -1)))
	}
	return nil
}

func (q *sampleFIFO) read(data **C.uint8_t, samples int32) int32 {
	return q.lib.fn.avAudioFifoRead(q.ptr, data, samples)
}

func (q *sampleFIFO) size() int32 {
	return q.lib.fn.avAudioFifoSize(q.ptr)
}

func (q *sampleFIFO) Close() {
	if q == nil || q.ptr == nil {
		return
	}
	q.lib.fn.avAudioFifoFree(q.ptr)
	q.ptr = nil
	q.lib.released(HandleFIFO)
}

// dictionary owns an AVDictionary of codec options.
type dictionary struct {
	lib *Library
	ptr *C.AVDictionary
}

func (d *dictionary) set(key, value string) error {
	if ret := d.lib.fn.avDictSet(&d.ptr, key, value, 0); ret < 0 {
		return errors.NewNativeError(fmt.Sprintf("failed to set option %s", key), d.lib.avError("av_dict_set", ret))
	}
	return nil
}

func (d *dictionary) Close() {
	if d.ptr != nil {
		d.lib.fn.avDictFree(&d.ptr)
		d.ptr = nil
	}
}
