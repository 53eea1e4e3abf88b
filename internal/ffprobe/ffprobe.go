// Package ffprobe models the stream and format report printed by ffprobe
// and renders it in the flat and JSON writer formats.
package ffprobe

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Report is what ffprobe prints for -show_streams / -show_format.
type Report struct {
	Streams []Stream
	Format  Format
}

// Stream describes one audio stream.
type Stream struct {
	Index      int
	CodecName  string
	CodecType  string
	SampleRate uint32
	Channels   uint32
}

// Format describes the container.
type Format struct {
	Filename   string
	FormatName string
	// Duration in seconds.
	Duration float64
}

// ffprobeOutput is the -print_format json document.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name,omitempty"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   uint32 `json:"channels,omitempty"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename,omitempty"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

// NewAudioReport builds a single-stream audio report.
func NewAudioReport(filename, formatName, codecName string, sampleRate, channels uint32, duration float64) *Report {
	return &Report{
		Streams: []Stream{{
			Index:      0,
			CodecName:  codecName,
			CodecType:  "audio",
			SampleRate: sampleRate,
			Channels:   channels,
		}},
		Format: Format{
			Filename:   filename,
			FormatName: formatName,
			Duration:   duration,
		},
	}
}

func formatDuration(secs float64) string {
	return strconv.FormatFloat(secs, 'f', 6, 64)
}

// WriteFlat renders the [STREAM] and [FORMAT] blocks. When neither section
// is requested both are written.
func WriteFlat(w io.Writer, r *Report, showStreams, showFormat bool) error {
	if !showStreams && !showFormat {
		showStreams, showFormat = true, true
	}

	var b strings.Builder
	if showStreams {
		for _, s := range r.Streams {
			b.WriteString("[STREAM]\n")
			fmt.Fprintf(&b, "index=%d\n", s.Index)
			if s.CodecName != "" {
				fmt.Fprintf(&b, "codec_name=%s\n", s.CodecName)
			}
			fmt.Fprintf(&b, "codec_type=%s\n", s.CodecType)
			fmt.Fprintf(&b, "sample_rate=%d\n", s.SampleRate)
			fmt.Fprintf(&b, "channels=%d\n", s.Channels)
			b.WriteString("[/STREAM]\n")
		}
	}
	if showFormat {
		b.WriteString("[FORMAT]\n")
		if r.Format.FormatName != "" {
			fmt.Fprintf(&b, "format_name=%s\n", r.Format.FormatName)
		}
		fmt.Fprintf(&b, "duration=%s\n", formatDuration(r.Format.Duration))
		b.WriteString("[/FORMAT]\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON renders the report the way ffprobe -print_format json does,
// with sample_rate and duration as strings.
func WriteJSON(w io.Writer, r *Report) error {
	out := ffprobeOutput{
		Streams: make([]ffprobeStream, 0, len(r.Streams)),
		Format: ffprobeFormat{
			Filename:   r.Format.Filename,
			NbStreams:  len(r.Streams),
			FormatName: r.Format.FormatName,
			Duration:   formatDuration(r.Format.Duration),
		},
	}
	for _, s := range r.Streams {
		st := ffprobeStream{
			Index:     s.Index,
			CodecName: s.CodecName,
			CodecType: s.CodecType,
			Channels:  s.Channels,
		}
		if s.SampleRate > 0 {
			st.SampleRate = strconv.FormatUint(uint64(s.SampleRate), 10)
		}
		out.Streams = append(out.Streams, st)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(out)
}

// Parse decodes ffprobe JSON output, keeping audio streams only.
func Parse(data []byte) (*Report, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	r := &Report{
		Format: Format{
			Filename:   probe.Format.Filename,
			FormatName: probe.Format.FormatName,
		},
	}
	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
		}
		r.Format.Duration = d
	}

	for _, s := range probe.Streams {
		if s.CodecType != "audio" {
			continue
		}
		st := Stream{
			Index:     s.Index,
			CodecName: s.CodecName,
			CodecType: s.CodecType,
			Channels:  s.Channels,
		}
		if s.SampleRate != "" {
			rate, err := strconv.ParseUint(s.SampleRate, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("failed to parse sample rate %q: %w", s.SampleRate, err)
			}
			st.SampleRate = uint32(rate)
		}
		r.Streams = append(r.Streams, st)
	}
	return r, nil
}

// AudioStream returns the first audio stream, or nil.
func (r *Report) AudioStream() *Stream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "audio" {
			return &r.Streams[i]
		}
	}
	return nil
}
