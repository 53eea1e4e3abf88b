//go:build unix

package ffmpeg

import "golang.org/x/sys/unix"

var errAgain = averror(int32(unix.EAGAIN))
