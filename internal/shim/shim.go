// Package shim emulates the ffprobe and ffmpeg command lines a downstream
// downloader invokes, backed by the in-process FFmpeg runtime.
package shim

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tubetape/ffshim/internal/audio"
	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/ffmpeg"
	"github.com/tubetape/ffshim/internal/ffprobe"
	"github.com/tubetape/ffshim/internal/logging"
	"github.com/tubetape/ffshim/internal/util"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Result is what an emulated process would have produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func failure(code int, stderr string) Result {
	return Result{ExitCode: code, Stderr: stderr}
}

// diagnostic renders err the way the command-line tools print usage
// errors, with a leading capital.
func diagnostic(err error) string {
	msg := errors.Message(err)
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// Emulator runs emulated commands against a library provider.
type Emulator struct {
	libs func() (*ffmpeg.Library, error)
}

// New returns an Emulator resolving the runtime through libs.
func New(libs func() (*ffmpeg.Library, error)) *Emulator {
	return &Emulator{libs: libs}
}

// Default returns an Emulator backed by the process-wide runtime.
func Default() *Emulator {
	return New(ffmpeg.Default)
}

// RunProbeCommand runs an ffprobe command line with the process-wide runtime.
func RunProbeCommand(args []string) Result {
	return Default().RunProbeCommand(args)
}

// RunConvertCommand runs an ffmpeg command line with the process-wide runtime.
func RunConvertCommand(args []string) Result {
	return Default().RunConvertCommand(args)
}

func (e *Emulator) banner() string {
	lib, err := e.libs()
	if err != nil {
		return Banner("")
	}
	return Banner(lib.Version().String())
}

// RunProbeCommand emulates ffprobe.
func (e *Emulator) RunProbeCommand(args []string) Result {
	cmd, err := ParseProbeArgs(args)
	if err != nil {
		return failure(ExitUsage, diagnostic(err))
	}

	switch c := cmd.(type) {
	case ProbeListBitstreamFilters:
		return Result{ExitCode: ExitOK, Stdout: BitstreamFilters, Stderr: e.banner()}
	case ProbeVersion:
		return Result{ExitCode: ExitOK, Stderr: e.banner()}
	case ProbeShowInfo:
		return e.showInfo(c)
	default:
		return failure(ExitUsage, "Unknown ffprobe command")
	}
}

func (e *Emulator) showInfo(c ProbeShowInfo) Result {
	lib, err := e.libs()
	if err != nil {
		return failure(ExitFailure, fmt.Sprintf("%s: %s", c.Input, errors.Message(err)))
	}

	src, err := lib.OpenAudio(c.Input)
	if err != nil {
		return failure(ExitFailure, fmt.Sprintf("%s: %s", c.Input, errors.Message(err)))
	}
	report := ffprobe.NewAudioReport(c.Input, src.FormatName, src.CodecName, src.SampleRate, src.Channels, src.Duration)
	src.Close()

	var out strings.Builder
	if c.JSON {
		err = ffprobe.WriteJSON(&out, report)
	} else {
		err = ffprobe.WriteFlat(&out, report, c.Streams, c.Format)
	}
	if err != nil {
		return failure(ExitFailure, fmt.Sprintf("%s: %v", c.Input, err))
	}
	return Result{ExitCode: ExitOK, Stdout: out.String(), Stderr: Banner(lib.Version().String())}
}

// RunConvertCommand emulates ffmpeg. Copy runs a stream-copy remux; every
// other codec exports the whole input through the transcoder.
func (e *Emulator) RunConvertCommand(args []string) Result {
	cmd, err := ParseConvertArgs(args)
	if err != nil {
		return failure(ExitUsage, diagnostic(err))
	}

	if !util.PathExists(cmd.Input) {
		return failure(ExitFailure, fmt.Sprintf("%s: No such file or directory", cmd.Input))
	}
	if util.PathExists(cmd.Output) && !cmd.Overwrite {
		return failure(ExitFailure, fmt.Sprintf("File '%s' already exists. Overwrite? [y/N] Not overwriting - exiting", cmd.Output))
	}

	lib, err := e.libs()
	if err != nil {
		return failure(ExitFailure, fmt.Sprintf("Failed to load FFmpeg: %s", errors.Message(err)))
	}

	var stderr strings.Builder
	stderr.WriteString(Banner(lib.Version().String()))
	fmt.Fprintf(&stderr, "Input #0, from '%s':\n", cmd.Input)

	var stats RemuxStats
	if cmd.Codec == audio.CodecCopy {
		stats, err = e.remux(lib, cmd, &stderr)
	} else {
		stats, err = e.transcode(lib, cmd, &stderr)
	}
	if err != nil {
		logging.Debug("conversion failed", "input", cmd.Input, "output", cmd.Output, "error", err)
		return failure(ExitFailure, fmt.Sprintf("%s\nConversion failed: %s", stderr.String(), errors.Message(err)))
	}

	stderr.WriteString(stats.Trailer())
	return Result{ExitCode: ExitOK, Stderr: stderr.String()}
}

func (e *Emulator) remux(lib *ffmpeg.Library, cmd *ConvertArgs, stderr *strings.Builder) (RemuxStats, error) {
	res, err := lib.Remux(cmd.Input, cmd.Output, cmd.Format)
	if err != nil {
		return RemuxStats{}, err
	}

	muxer := cmd.Format
	if muxer == "" {
		muxer = res.Muxer
	}
	fmt.Fprintf(stderr, "  Duration: %s, bitrate: N/A\n", util.FormatTimestamp(res.Duration))
	stderr.WriteString("  Stream #0:0: Audio\n")
	fmt.Fprintf(stderr, "Output #0, %s to '%s':\n", muxer, cmd.Output)
	stderr.WriteString("  Stream #0:0: Audio (copy)\n")
	stderr.WriteString("Stream mapping:\n")
	stderr.WriteString("  Stream #0:0 -> #0:0 (copy)\n")

	return newRemuxStats(res.Bytes, res.Duration, res.Elapsed.Seconds()), nil
}

func (e *Emulator) transcode(lib *ffmpeg.Library, cmd *ConvertArgs, stderr *strings.Builder) (RemuxStats, error) {
	started := time.Now()

	src, err := lib.OpenAudio(cmd.Input)
	if err != nil {
		return RemuxStats{}, err
	}
	duration, codecName := src.Duration, src.CodecName
	src.Close()

	format := cmd.Codec.Format()
	fmt.Fprintf(stderr, "  Duration: %s, bitrate: N/A\n", util.FormatTimestamp(duration))
	stderr.WriteString("  Stream #0:0: Audio\n")
	fmt.Fprintf(stderr, "Output #0, %s to '%s':\n", format.MuxerName(), cmd.Output)
	stderr.WriteString("Stream mapping:\n")
	fmt.Fprintf(stderr, "  Stream #0:0 -> #0:0 (%s -> %s)\n", codecName, format.EncoderName())

	opts := []ffmpeg.ExportOption{ffmpeg.WithFormat(format)}
	if len(cmd.EncoderOptions) > 0 {
		opts = append(opts, ffmpeg.WithEncoderOptions(cmd.EncoderOptions))
	}
	if err := lib.Export(cmd.Input, cmd.Output, 0, duration, opts...); err != nil {
		return RemuxStats{}, err
	}

	size, err := util.GetFileSize(cmd.Output)
	if err != nil {
		return RemuxStats{}, errors.NewIOError("failed to stat output", err)
	}
	return newRemuxStats(size, duration, time.Since(started).Seconds()), nil
}
