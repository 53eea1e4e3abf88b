package audio

import "fmt"

// Codec is an audio codec selection from an ffmpeg-style command line.
type Codec int

const (
	CodecCopy Codec = iota
	CodecAAC
	CodecMP3
	CodecFLAC
	CodecPCM
)

// ParseCodec parses the value of -c:a / -acodec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "copy":
		return CodecCopy, nil
	case "aac":
		return CodecAAC, nil
	case "libmp3lame", "mp3":
		return CodecMP3, nil
	case "flac":
		return CodecFLAC, nil
	case "pcm_s16le":
		return CodecPCM, nil
	default:
		return CodecCopy, fmt.Errorf("unknown audio codec: %s", name)
	}
}

// Format returns the export format that produces this codec.
func (c Codec) Format() Format {
	switch c {
	case CodecAAC:
		return FormatAAC
	case CodecMP3:
		return FormatMP3
	case CodecFLAC:
		return FormatFLAC
	case CodecPCM:
		return FormatWAV
	default:
		return FormatCopy
	}
}

func (c Codec) String() string {
	if c == CodecCopy {
		return "copy"
	}
	return c.Format().EncoderName()
}
