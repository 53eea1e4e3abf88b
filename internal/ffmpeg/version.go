package ffmpeg

import "fmt"

// Version holds the packed (major<<16 | minor<<8 | micro) versions of the
// loaded libraries.
type Version struct {
	AVUtil   uint32
	AVCodec  uint32
	AVFormat uint32
}

func formatVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF)
}

func (v Version) String() string {
	return fmt.Sprintf("avutil: %s, avcodec: %s, avformat: %s",
		formatVersion(v.AVUtil), formatVersion(v.AVCodec), formatVersion(v.AVFormat))
}

// Lines renders one "libname  X.Y.Z" line per library, the way ffmpeg
// -version lists them.
func (v Version) Lines() []string {
	return []string{
		fmt.Sprintf("libavutil      %s", formatVersion(v.AVUtil)),
		fmt.Sprintf("libavcodec     %s", formatVersion(v.AVCodec)),
		fmt.Sprintf("libavformat    %s", formatVersion(v.AVFormat)),
	}
}
