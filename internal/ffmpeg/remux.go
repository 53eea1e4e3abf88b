package ffmpeg

/*
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
*/
import "C"

import (
	"time"

	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/logging"
	"github.com/tubetape/ffshim/internal/util"
)

// RemuxResult summarizes a stream-copy remux.
type RemuxResult struct {
	// Bytes is the total payload size of the copied packets.
	Bytes uint64
	// Duration of the copied stream in seconds, 0 when unknown.
	Duration float64
	Elapsed  time.Duration
	// Muxer is the name of the output format actually used.
	Muxer string
}

// Remux copies the best audio stream of input into output with the
// process-wide Library.
func Remux(input, output, muxer string) (*RemuxResult, error) {
	lib, err := Default()
	if err != nil {
		return nil, err
	}
	return lib.Remux(input, output, muxer)
}

// Remux copies the packets of the best audio stream of input into a new
// container without decoding them. muxer may be empty to pick the format from
// the output extension. No codec context is ever allocated.
func (l *Library) Remux(input, output, muxer string) (res *RemuxResult, err error) {
	started := time.Now()

	in, err := l.openInput(input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	idx, _, err := in.bestAudioStream(false)
	if err != nil {
		return nil, err
	}
	inStream := streamAt(in.ptr, idx)

	out, err := l.newOutput(output, muxer)
	if err != nil {
		return nil, err
	}
	defer func() {
		created := out.createdFile
		out.Close()
		if err != nil && created {
			if rmErr := util.RemoveIfExists(output); rmErr != nil {
				logging.Warn("failed to remove partial output", "path", output, "error", rmErr)
			}
		}
	}()

	outStream := l.fn.avformatNewStream(out.ptr, nil)
	if outStream == nil {
		return nil, errors.NewNativeError("failed to create output stream", nil)
	}
	if ret := l.fn.avcodecParametersCopy(outStream.codecpar, inStream.codecpar); ret < 0 {
		return nil, errors.NewNativeError("failed to copy codec parameters", l.avError("avcodec_parameters_copy", ret))
	}
	outStream.codecpar.codec_tag = 0
	outStream.time_base = inStream.time_base

	if err := out.openIO(); err != nil {
		return nil, err
	}
	if err := out.writeHeader(); err != nil {
		return nil, err
	}

	pkt, err := l.newPacket()
	if err != nil {
		return nil, err
	}
	defer pkt.Close()

	res = &RemuxResult{
		Duration: streamDuration(in.ptr, inStream),
		Muxer:    out.muxerName(),
	}
	inTB := rational(inStream.time_base)
	// The muxer may have replaced the time base in write_header.
	outTB := rational(outStream.time_base)

	for {
		ret := l.fn.avReadFrame(in.ptr, pkt.ptr)
		if ret == averrorEOF {
			break
		}
		if ret < 0 {
			return nil, errors.NewNativeError("failed to read packet", l.avError("av_read_frame", ret))
		}
		if int(pkt.ptr.stream_index) != idx {
			pkt.unref()
			continue
		}

		res.Bytes += uint64(pkt.ptr.size)
		rescalePacket(pkt.ptr, inTB, outTB)
		pkt.ptr.stream_index = 0
		pkt.ptr.pos = -1
		if err := out.writePacket(pkt.ptr); err != nil {
			pkt.unref()
			return nil, err
		}
	}

	if err := out.writeTrailer(); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(started)
	logging.Debug("remux complete",
		"input", input,
		"output", output,
		"muxer", res.Muxer,
		"bytes", res.Bytes,
		"elapsed", res.Elapsed)
	return res, nil
}
