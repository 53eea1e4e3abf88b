package ffmpeg

/*
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
*/
import "C"

import (
	"math"

	"github.com/tubetape/ffshim/internal/errors"
)

// AudioSource is an open container together with a decoder for its best
// audio stream.
type AudioSource struct {
	Path       string
	SampleRate uint32
	Channels   uint32
	// Duration in seconds; 0 when neither the stream nor the container
	// reports one.
	Duration   float64
	CodecName  string
	FormatName string

	lib         *Library
	input       *inputContext
	streamIndex int
	decoder     *codecContext
}

// OpenAudio opens path with the process-wide Library.
func OpenAudio(path string) (*AudioSource, error) {
	lib, err := Default()
	if err != nil {
		return nil, err
	}
	return lib.OpenAudio(path)
}

// OpenAudio opens path, selects the best audio stream and opens a decoder
// for it.
func (l *Library) OpenAudio(path string) (*AudioSource, error) {
	in, err := l.openInput(path)
	if err != nil {
		return nil, err
	}
	src := &AudioSource{Path: path, lib: l, input: in, streamIndex: -1}

	idx, codec, err := in.bestAudioStream(true)
	if err != nil {
		src.Close()
		return nil, err
	}
	stream := streamAt(in.ptr, idx)
	src.streamIndex = idx

	if src.decoder, err = l.openDecoder(stream, codec); err != nil {
		src.Close()
		return nil, err
	}

	par := stream.codecpar
	src.SampleRate = uint32(par.sample_rate)
	src.Channels = uint32(par.ch_layout.nb_channels)
	src.Duration = streamDuration(in.ptr, stream)
	src.CodecName = l.fn.avcodecGetName(par.codec_id)
	if in.ptr.iformat != nil {
		src.FormatName = C.GoString(in.ptr.iformat.name)
	}
	return src, nil
}

// StreamIndex returns the index of the selected audio stream.
func (s *AudioSource) StreamIndex() int {
	return s.streamIndex
}

// Seek moves to the nearest seek point at or before secs and drops any
// frames buffered in the decoder.
func (s *AudioSource) Seek(secs float64) error {
	if s == nil || s.input == nil || s.input.ptr == nil {
		return errors.NewArgumentError("audio source is closed")
	}
	if secs < 0 || math.IsNaN(secs) {
		return errors.NewArgumentError("invalid seek position")
	}

	ts := int64(secs * avTimeBase)
	if ret := s.lib.fn.avSeekFrame(s.input.ptr, -1, ts, avseekFlagBackward); ret < 0 {
		return errors.NewNativeError("seek failed", s.lib.avError("av_seek_frame", ret))
	}
	s.lib.fn.avcodecFlushBuffers(s.decoder.ptr)
	return nil
}

// Close releases the decoder and then the container. It is safe to call
// more than once.
func (s *AudioSource) Close() {
	if s == nil {
		return
	}
	s.decoder.Close()
	s.input.Close()
}
