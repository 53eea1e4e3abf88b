package shim

import (
	"strings"

	"github.com/tubetape/ffshim/internal/audio"
	"github.com/tubetape/ffshim/internal/errors"
)

// ProbeCommand is one of the ffprobe invocations the emulator understands:
// ProbeListBitstreamFilters, ProbeVersion or ProbeShowInfo.
type ProbeCommand interface {
	probeCommand()
}

// ProbeListBitstreamFilters is ffprobe -bsfs.
type ProbeListBitstreamFilters struct{}

// ProbeVersion is ffprobe -version.
type ProbeVersion struct{}

// ProbeShowInfo is ffprobe -show_streams and/or -show_format on Input.
type ProbeShowInfo struct {
	Input   string
	Streams bool
	Format  bool
	JSON    bool
}

func (ProbeListBitstreamFilters) probeCommand() {}
func (ProbeVersion) probeCommand()              {}
func (ProbeShowInfo) probeCommand()             {}

// Flags the emulator accepts and ignores, mapped to whether they take a
// value.
var ignoredFlags = map[string]bool{
	"-v":           true,
	"-loglevel":    true,
	"-hide_banner": false,
	"-nostdin":     false,
	"-nostats":     false,
}

// ParseProbeArgs recognizes the first of -bsfs, -version, -show_streams or
// -show_format. For the show forms the input is the last argument.
func ParseProbeArgs(args []string) (ProbeCommand, error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-bsfs":
			return ProbeListBitstreamFilters{}, nil
		case "-version":
			return ProbeVersion{}, nil
		case "-show_streams", "-show_format":
			return parseShowInfo(args, i)
		case "-v", "-loglevel":
			i++
		}
	}
	return nil, errors.NewArgumentError("unknown ffprobe command")
}

func parseShowInfo(args []string, from int) (ProbeCommand, error) {
	cmd := ProbeShowInfo{Input: args[len(args)-1]}
	if cmd.Input == "" || strings.HasPrefix(cmd.Input, "-") {
		return nil, errors.NewArgumentError("unknown ffprobe command")
	}

	for i := from; i < len(args)-1; i++ {
		switch args[i] {
		case "-show_streams":
			cmd.Streams = true
		case "-show_format":
			cmd.Format = true
		case "-of", "-print_format":
			if i+1 < len(args)-1 {
				i++
				cmd.JSON = strings.HasPrefix(args[i], "json")
			}
		case "-v", "-loglevel":
			i++
		}
	}
	return cmd, nil
}

func isIgnored(flag string) bool {
	_, ok := ignoredFlags[flag]
	return ok
}

// ConvertArgs is the subset of an ffmpeg command line the emulator runs.
type ConvertArgs struct {
	Input  string
	Output string
	Codec  audio.Codec
	// Format is the -f muxer name, empty to guess from Output.
	Format    string
	NoVideo   bool
	Overwrite bool
	// EncoderOptions holds encoder settings such as "b" from -b:a.
	EncoderOptions map[string]string
}

// ParseConvertArgs parses an ffmpeg command line. The codec defaults to
// copy and the output is the trailing positional argument.
func ParseConvertArgs(args []string) (*ConvertArgs, error) {
	cmd := &ConvertArgs{Codec: audio.CodecCopy}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-i":
			if i+1 < len(args) {
				i++
				cmd.Input = args[i]
			}
		case arg == "-c:a" || arg == "-acodec":
			if i+1 < len(args) {
				i++
				codec, err := audio.ParseCodec(args[i])
				if err != nil {
					return nil, errors.NewArgumentError(err.Error())
				}
				cmd.Codec = codec
			}
		case arg == "-f":
			if i+1 < len(args) {
				i++
				cmd.Format = args[i]
			}
		case arg == "-b:a" || arg == "-ab":
			if i+1 < len(args) {
				i++
				if cmd.EncoderOptions == nil {
					cmd.EncoderOptions = make(map[string]string)
				}
				cmd.EncoderOptions["b"] = args[i]
			}
		case arg == "-vn":
			cmd.NoVideo = true
		case arg == "-y":
			cmd.Overwrite = true
		case isIgnored(arg):
			if ignoredFlags[arg] {
				i++
			}
		case !strings.HasPrefix(arg, "-") && i == len(args)-1:
			cmd.Output = arg
		}
	}

	if cmd.Input == "" {
		return nil, errors.NewArgumentError("no input file specified")
	}
	if cmd.Output == "" {
		return nil, errors.NewArgumentError("no output file specified")
	}
	return cmd, nil
}
