package shim

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tubetape/ffshim/internal/util"
)

// RemuxStats are the figures printed in the conversion trailer.
type RemuxStats struct {
	SizeKB      uint64
	Duration    float64
	BitrateKbps float64
	Speed       float64
}

func newRemuxStats(bytes uint64, duration, elapsed float64) RemuxStats {
	s := RemuxStats{
		SizeKB:      bytes / 1024,
		Duration:    duration,
		BitrateKbps: util.BitrateKbps(bytes, duration),
	}
	if elapsed > 0 {
		s.Speed = duration / elapsed
	}
	return s
}

// Trailer renders the two closing lines ffmpeg prints after a conversion.
func (s RemuxStats) Trailer() string {
	return fmt.Sprintf("size=%8dkB time=%s bitrate=%6.1fkbits/s speed=%.2fx\n", s.SizeKB, util.FormatTimestamp(s.Duration), s.BitrateKbps, s.Speed) +
		fmt.Sprintf("video:0kB audio:%dkB subtitle:0kB other streams:0kB global headers:0kB muxing overhead: unknown\n", s.SizeKB)
}

var (
	sizeRegex    = regexp.MustCompile(`size=\s*(\d+)kB`)
	timeRegex    = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2}\.?\d*)`)
	bitrateRegex = regexp.MustCompile(`bitrate=\s*([\d.]+)kbits/s`)
)

// ParseTrailer scrapes the size/time/bitrate/speed line from ffmpeg stderr.
// It reports false when no trailer line is present.
func ParseTrailer(stderr string) (RemuxStats, bool) {
	var line string
	for _, l := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "size=") {
			line = l
		}
	}
	if line == "" {
		return RemuxStats{}, false
	}

	var s RemuxStats
	if m := sizeRegex.FindStringSubmatch(line); len(m) >= 2 {
		if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			s.SizeKB = v
		}
	}
	if m := timeRegex.FindStringSubmatch(line); len(m) >= 2 {
		if secs, ok := util.ParseFFmpegTime(m[1]); ok {
			s.Duration = secs
		}
	}
	if m := bitrateRegex.FindStringSubmatch(line); len(m) >= 2 {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.BitrateKbps = v
		}
	}

	if idx := strings.Index(line, "speed="); idx >= 0 {
		remaining := strings.TrimSpace(line[idx+6:])
		if spaceIdx := strings.IndexAny(remaining, " \t\r"); spaceIdx > 0 {
			remaining = remaining[:spaceIdx]
		}
		remaining = strings.TrimSuffix(remaining, "x")
		if v, err := strconv.ParseFloat(remaining, 64); err == nil {
			s.Speed = v
		}
	}
	return s, true
}
