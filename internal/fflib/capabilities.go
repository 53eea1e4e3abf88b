package fflib

import (
	"github.com/tubetape/ffshim/internal/logging"
)

const staticBanner = "ffmpeg version 5.1.4 Copyright (c) 2000-2023 the FFmpeg developers\n" +
	"  built with clang\n" +
	"  configuration: --enable-shared --enable-gpl\n" +
	"  libavutil      57. 28.100 / 57. 28.100\n" +
	"  libavcodec     59. 37.100 / 59. 37.100\n" +
	"  libavformat    59. 27.100 / 59. 27.100\n" +
	"  libavfilter     8. 44.100 /  8. 44.100\n" +
	"  libswscale      6.  7.100 /  6.  7.100\n" +
	"  libswresample   4.  7.100 /  4.  7.100"

const staticFilters = "Bitstream filters:\n" +
	"aac_adtstoasc\nav1_frame_merge\nav1_frame_split\nav1_metadata\nchomp\n" +
	"dump_extra\ndca_core\ndv_error_marker\neac3_core\nextract_extradata\n" +
	"filter_units\nh264_metadata\nh264_mp4toannexb\nh264_redundant_pps\n" +
	"hapqa_extract\nhevc_metadata\nhevc_mp4toannexb\nimxdump\nmjpeg2jpeg\n" +
	"mjpegadump\nmp3decomp\nmpeg2_metadata\nmpeg4_unpack_bframes\nmov2textsub\n" +
	"noise\nnull\nopus_metadata\npcm_rechunk\npgs_frame_merge\nprores_metadata\n" +
	"remove_extra\nsetts\ntext2movsub\ntrace_headers\ntruehd_core\nvp9_metadata\n" +
	"vp9_raw_reorder\nvp9_superframe\nvp9_superframe_split"

// StaticCapabilities is what Capabilities reports when no library can be
// run: an FFmpeg 5.1 banner and its bitstream filter list.
func StaticCapabilities() *Result {
	return &Result{Stdout: staticFilters, Stderr: staticBanner}
}

// Capabilities runs ffprobe -bsfs from libPath, falling back to
// StaticCapabilities when libPath is empty or the run fails.
func Capabilities(libPath string) *Result {
	if libPath == "" {
		return StaticCapabilities()
	}
	res, err := Run(libPath, ToolFFprobe, []string{"-bsfs"})
	if err != nil {
		logging.Warn("native ffprobe failed, using static capabilities", "lib", libPath, "error", err)
		return StaticCapabilities()
	}
	return res
}
