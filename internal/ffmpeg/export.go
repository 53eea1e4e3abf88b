package ffmpeg

/*
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
*/
import "C"

import (
	"fmt"
	"math"
	"sort"

	"github.com/tubetape/ffshim/internal/audio"
	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/logging"
	"github.com/tubetape/ffshim/internal/util"
)

// ProgressFunc receives the number of samples written and the total sample
// budget of an export.
type ProgressFunc func(done, total int64)

type exportOptions struct {
	format         *audio.Format
	encoderOptions map[string]string
	progress       ProgressFunc
}

// ExportOption configures an export.
type ExportOption func(*exportOptions)

// WithFormat overrides the format derived from the output extension.
func WithFormat(f audio.Format) ExportOption {
	return func(o *exportOptions) {
		o.format = &f
	}
}

// WithEncoderOptions passes private options (for example "b" for bitrate)
// to the encoder.
func WithEncoderOptions(opts map[string]string) ExportOption {
	return func(o *exportOptions) {
		o.encoderOptions = opts
	}
}

// WithProgress registers a callback invoked after every encoded frame.
func WithProgress(fn ProgressFunc) ExportOption {
	return func(o *exportOptions) {
		o.progress = fn
	}
}

var codecIDs = map[audio.Format]C.enum_AVCodecID{
	audio.FormatMP3:  C.AV_CODEC_ID_MP3,
	audio.FormatAAC:  C.AV_CODEC_ID_AAC,
	audio.FormatFLAC: C.AV_CODEC_ID_FLAC,
	audio.FormatWAV:  C.AV_CODEC_ID_PCM_S16LE,
}

// ValidateRange rejects negative starts, NaN bounds and empty windows.
func ValidateRange(start, end float64) error {
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 || end <= start {
		return errors.NewArgumentError("invalid time range")
	}
	return nil
}

// Export writes [start, end) of input to output with the process-wide
// Library. The range is checked before the library is resolved.
func Export(input, output string, start, end float64, opts ...ExportOption) error {
	if err := ValidateRange(start, end); err != nil {
		return err
	}
	lib, err := Default()
	if err != nil {
		return err
	}
	return lib.Export(input, output, start, end, opts...)
}

// Export decodes [start, end) of the best audio stream in input and encodes
// it into output. The output format follows the output extension (MP3 when
// unrecognized) unless WithFormat is given. The clip length is fixed by the
// sample count round((end-start)*rate), not by source packet timestamps.
func (l *Library) Export(input, output string, start, end float64, opts ...ExportOption) (err error) {
	if err := ValidateRange(start, end); err != nil {
		return err
	}

	var o exportOptions
	for _, opt := range opts {
		opt(&o)
	}
	format := audio.FormatFromPath(output)
	if o.format != nil && *o.format != audio.FormatCopy {
		format = *o.format
	}

	job := &transcodeJob{lib: l, format: format, progress: o.progress}
	defer func() {
		created := job.close()
		if err != nil && created {
			if rmErr := util.RemoveIfExists(output); rmErr != nil {
				logging.Warn("failed to remove partial output", "path", output, "error", rmErr)
			}
		}
	}()

	if err = job.openInput(input); err != nil {
		return err
	}
	if err = job.openOutput(output, o.encoderOptions); err != nil {
		return err
	}
	if err = job.allocBuffers(); err != nil {
		return err
	}

	job.budget = audio.SampleBudget(start, end, int(job.enc.ptr.sample_rate))
	logging.Debug("exporting clip",
		"input", input,
		"output", output,
		"format", format.String(),
		"start", start,
		"end", end,
		"samples", job.budget,
		"resample", job.swr != nil)

	job.seek(start)
	if err = job.pump(start, end); err != nil {
		return err
	}
	if err = job.finish(); err != nil {
		return err
	}

	logging.Debug("export complete", "output", output, "samples", job.written)
	return nil
}

// transcodeJob owns every native object of one export.
type transcodeJob struct {
	lib      *Library
	format   audio.Format
	progress ProgressFunc

	input       *inputContext
	streamIndex int
	inStream    *C.AVStream
	dec         *codecContext

	output    *outputContext
	outStream *C.AVStream
	enc       *codecContext

	swr       *resampler
	decoded   *frame
	converted *frame
	encoded   *frame
	pkt       *packet
	fifo      *sampleFIFO

	frameSize int32
	budget    int64
	written   int64
}

func (j *transcodeJob) openInput(path string) error {
	in, err := j.lib.openInput(path)
	if err != nil {
		return err
	}
	j.input = in

	idx, codec, err := in.bestAudioStream(true)
	if err != nil {
		return err
	}
	j.streamIndex = idx
	j.inStream = streamAt(in.ptr, idx)

	j.dec, err = j.lib.openDecoder(j.inStream, codec)
	return err
}

func (j *transcodeJob) findEncoder() *C.AVCodec {
	if c := j.lib.fn.avcodecFindEncoderByName(j.format.EncoderName()); c != nil {
		return c
	}
	if id, ok := codecIDs[j.format]; ok {
		return j.lib.fn.avcodecFindEncoder(id)
	}
	return nil
}

func (j *transcodeJob) openOutput(path string, encoderOptions map[string]string) error {
	l := j.lib
	out, err := l.newOutput(path, j.format.MuxerName())
	if err != nil {
		return err
	}
	j.output = out

	encoder := j.findEncoder()
	if encoder == nil {
		return errors.NewNativeError(fmt.Sprintf("encoder %s not found", j.format.EncoderName()), nil)
	}

	j.outStream = l.fn.avformatNewStream(out.ptr, nil)
	if j.outStream == nil {
		return errors.NewNativeError("failed to create output stream", nil)
	}

	if j.enc, err = l.newCodecContext(encoder); err != nil {
		return err
	}
	dec, enc := j.dec.ptr, j.enc.ptr
	enc.sample_rate = dec.sample_rate
	enc.time_base = C.AVRational{num: 1, den: dec.sample_rate}
	enc.sample_fmt = C.enum_AVSampleFormat(j.format.SampleFormat())
	if err := j.copySourceLayout(&enc.ch_layout); err != nil {
		return err
	}
	if out.flags()&avfmtGlobalHeader != 0 {
		enc.flags |= C.int(avCodecFlagGlobalHeader)
	}

	opts := &dictionary{lib: l}
	defer opts.Close()
	keys := make([]string, 0, len(encoderOptions))
	for k := range encoderOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := opts.set(k, encoderOptions[k]); err != nil {
			return err
		}
	}

	if ret := l.fn.avcodecOpen2(enc, encoder, &opts.ptr); ret < 0 {
		return errors.NewNativeError("failed to open encoder", l.avError("avcodec_open2", ret))
	}
	if ret := l.fn.avcodecParametersFromContext(j.outStream.codecpar, enc); ret < 0 {
		return errors.NewNativeError("failed to copy encoder parameters", l.avError("avcodec_parameters_from_context", ret))
	}
	j.outStream.time_base = enc.time_base

	if err := out.openIO(); err != nil {
		return err
	}
	return out.writeHeader()
}

// copySourceLayout copies the decoder's channel layout into dst, replacing
// an unspecified order with the default layout for the channel count.
func (j *transcodeJob) copySourceLayout(dst *C.AVChannelLayout) error {
	l := j.lib
	src := &j.dec.ptr.ch_layout
	if src.order == C.AV_CHANNEL_ORDER_UNSPEC {
		channels := int32(src.nb_channels)
		if channels <= 0 {
			return errors.NewInputError("audio stream has no channels", nil)
		}
		l.fn.avChannelLayoutUninit(dst)
		l.fn.avChannelLayoutDefault(dst, channels)
		return nil
	}
	if ret := l.fn.avChannelLayoutCopy(dst, src); ret < 0 {
		return errors.NewNativeError("failed to copy channel layout", l.avError("av_channel_layout_copy", ret))
	}
	return nil
}

func (j *transcodeJob) allocBuffers() error {
	l := j.lib
	var err error
	if j.pkt, err = l.newPacket(); err != nil {
		return err
	}
	if j.decoded, err = l.newFrame(); err != nil {
		return err
	}
	if j.encoded, err = l.newFrame(); err != nil {
		return err
	}

	enc, dec := j.enc.ptr, j.dec.ptr
	if dec.sample_fmt != enc.sample_fmt {
		if j.converted, err = l.newFrame(); err != nil {
			return err
		}
		// An unspecified source order was replaced by the default layout
		// for its channel count when the encoder was set up.
		inLayout := &dec.ch_layout
		if inLayout.order == C.AV_CHANNEL_ORDER_UNSPEC {
			inLayout = &enc.ch_layout
		}
		j.swr, err = l.newResampler(&enc.ch_layout, inLayout, enc.sample_fmt, dec.sample_fmt, int32(enc.sample_rate))
		if err != nil {
			return err
		}
	}

	j.frameSize = int32(enc.frame_size)
	if j.frameSize <= 0 {
		j.frameSize = variableFrameSize
	}
	j.fifo, err = l.newSampleFIFO(enc.sample_fmt, int32(enc.ch_layout.nb_channels), j.frameSize)
	return err
}

// seek positions the input at or before start. A failed seek is not fatal:
// the packet window check still discards everything before start.
func (j *transcodeJob) seek(start float64) {
	ts := int64(start * avTimeBase)
	if ret := j.lib.fn.avSeekFrame(j.input.ptr, -1, ts, avseekFlagBackward); ret < 0 {
		logging.Warn("seek failed, reading from the beginning", "error", j.lib.avError("av_seek_frame", ret))
	}
	j.lib.fn.avcodecFlushBuffers(j.dec.ptr)
}

func (j *transcodeJob) done() bool {
	return j.written >= j.budget
}

// pump reads packets of the selected stream inside [start, end) and feeds
// them through the decoder until the sample budget is met.
func (j *transcodeJob) pump(start, end float64) error {
	l := j.lib
	pkt := j.pkt.ptr
	tb := rational(j.inStream.time_base)

	for !j.done() {
		ret := l.fn.avReadFrame(j.input.ptr, pkt)
		if ret == averrorEOF {
			break
		}
		if ret < 0 {
			return errors.NewNativeError("failed to read packet", l.avError("av_read_frame", ret))
		}
		if int(pkt.stream_index) != j.streamIndex {
			j.pkt.unref()
			continue
		}

		if pts := audio.Seconds(int64(pkt.pts), tb); !math.IsNaN(pts) {
			if pts < start {
				j.pkt.unref()
				continue
			}
			if pts >= end {
				j.pkt.unref()
				break
			}
		}

		ret = l.fn.avcodecSendPacket(j.dec.ptr, pkt)
		j.pkt.unref()
		if ret < 0 && ret != errAgain {
			logging.Debug("dropping undecodable packet", "error", l.avError("avcodec_send_packet", ret))
			continue
		}
		if err := j.drainDecoder(); err != nil {
			return err
		}
	}

	if j.done() {
		return nil
	}
	l.fn.avcodecSendPacket(j.dec.ptr, nil)
	return j.drainDecoder()
}

func (j *transcodeJob) drainDecoder() error {
	l := j.lib
	for !j.done() {
		ret := l.fn.avcodecReceiveFrame(j.dec.ptr, j.decoded.ptr)
		if ret == errAgain || ret == averrorEOF {
			return nil
		}
		if ret < 0 {
			logging.Debug("decoder error", "error", l.avError("avcodec_receive_frame", ret))
			return nil
		}

		err := j.queueFrame(j.decoded.ptr)
		l.fn.avFrameUnref(j.decoded.ptr)
		if err != nil {
			return err
		}
		if err := j.encodeQueued(false); err != nil {
			return err
		}
	}
	return nil
}

// queueFrame converts f to the encoder sample format when needed and
// appends it to the sample FIFO.
func (j *transcodeJob) queueFrame(f *C.AVFrame) error {
	n := int32(f.nb_samples)
	if j.swr != nil {
		return j.resample(f.extended_data, n)
	}
	if n <= 0 {
		return nil
	}
	return j.fifo.write(f.extended_data, n)
}

// resample converts n input samples into the FIFO. A nil in drains the
// samples the resampler still holds.
func (j *transcodeJob) resample(in **C.uint8_t, n int32) error {
	l := j.lib
	capacity := n + int32(l.fn.swrGetDelay(j.swr.ptr, int64(j.enc.ptr.sample_rate)))
	if capacity <= 0 {
		return nil
	}
	if err := j.converted.prepare(j.enc.ptr, capacity); err != nil {
		return err
	}
	got := l.fn.swrConvert(j.swr.ptr, j.converted.ptr.extended_data, capacity, in, n)
	if got < 0 {
		return errors.NewNativeError("failed to resample audio", l.avError("swr_convert", got))
	}
	if got == 0 {
		return nil
	}
	return j.fifo.write(j.converted.ptr.extended_data, got)
}

// encodeQueued sends full encoder frames from the FIFO. With flush set a
// final short frame is sent as well. Frames never exceed the sample budget.
func (j *transcodeJob) encodeQueued(flush bool) error {
	for !j.done() {
		avail := j.fifo.size()
		if avail == 0 || (!flush && avail < j.frameSize) {
			return nil
		}

		n := min(avail, j.frameSize)
		if remaining := j.budget - j.written; int64(n) > remaining {
			n = int32(remaining)
		}

		if err := j.encoded.prepare(j.enc.ptr, n); err != nil {
			return err
		}
		if got := j.fifo.read(j.encoded.ptr.extended_data, n); got < n {
			return errors.NewNativeError("failed to read queued samples", nil)
		}
		j.encoded.ptr.pts = C.int64_t(j.written)
		j.written += int64(n)

		if err := j.sendFrame(j.encoded.ptr); err != nil {
			return err
		}
		if j.progress != nil {
			j.progress(j.written, j.budget)
		}
	}
	return nil
}

// sendFrame feeds f (nil to signal end of stream) to the encoder and writes
// every packet it produces.
func (j *transcodeJob) sendFrame(f *C.AVFrame) error {
	l := j.lib
	if ret := l.fn.avcodecSendFrame(j.enc.ptr, f); ret < 0 && ret != averrorEOF {
		return errors.NewNativeError("failed to encode audio", l.avError("avcodec_send_frame", ret))
	}

	pkt := j.pkt.ptr
	encTB := rational(j.enc.ptr.time_base)
	outTB := rational(j.outStream.time_base)
	for {
		ret := l.fn.avcodecReceivePacket(j.enc.ptr, pkt)
		if ret == errAgain || ret == averrorEOF {
			return nil
		}
		if ret < 0 {
			return errors.NewNativeError("failed to encode audio", l.avError("avcodec_receive_packet", ret))
		}

		rescalePacket(pkt, encTB, outTB)
		pkt.stream_index = j.outStream.index
		if err := j.output.writePacket(pkt); err != nil {
			j.pkt.unref()
			return err
		}
	}
}

func (j *transcodeJob) finish() error {
	if j.swr != nil && !j.done() {
		if err := j.resample(nil, 0); err != nil {
			return err
		}
	}
	if err := j.encodeQueued(true); err != nil {
		return err
	}
	if err := j.sendFrame(nil); err != nil {
		return err
	}
	return j.output.writeTrailer()
}

// close releases every native object the job acquired and reports whether
// an output file was created.
func (j *transcodeJob) close() bool {
	created := j.output != nil && j.output.createdFile

	j.swr.Close()
	j.encoded.Close()
	j.converted.Close()
	j.decoded.Close()
	j.pkt.Close()
	j.fifo.Close()
	j.output.Close()
	j.enc.Close()
	j.dec.Close()
	j.input.Close()
	return created
}
