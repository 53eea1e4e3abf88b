package shim

import "fmt"

// BitstreamFilters is the text ffprobe -bsfs prints.
const BitstreamFilters = `Bitstream filters:
aac_adtstoasc
av1_frame_merge
av1_frame_split
av1_metadata
chomp
dca_core
dts2pts
dump_extra
dv_error_marker
eac3_core
evc_frame_merge
extract_extradata
filter_units
h264_metadata
h264_mp4toannexb
h264_redundant_pps
hapqa_extract
hevc_metadata
hevc_mp4toannexb
imxdump
media100_to_mjpegb
mjpeg2jpeg
mjpegadump
mov2textsub
mp3decomp
mpeg2_metadata
mpeg4_unpack_bframes
noise
null
opus_metadata
pcm_rechunk
pgs_frame_merge
prores_metadata
remove_extra
setts
showinfo
text2movsub
trace_headers
truehd_core
vp9_metadata
vp9_raw_reorder
vp9_superframe
vp9_superframe_split
vvc_metadata
vvc_mp4toannexb
`

// Banner renders the ffmpeg version banner. version is the loaded library
// versions, or empty when they are unknown.
func Banner(version string) string {
	if version == "" {
		version = "unknown"
	}
	return fmt.Sprintf("ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers\n  built with Go shim\n  %s\n", version)
}
