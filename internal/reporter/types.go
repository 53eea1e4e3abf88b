// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// ExportSummary describes a clip export before it starts.
type ExportSummary struct {
	InputFile  string
	OutputFile string
	Format     string
	Start      float64
	End        float64
	SampleRate uint32
	Channels   uint32
}

// ProgressSnapshot contains export progress information.
type ProgressSnapshot struct {
	SamplesDone  int64
	SamplesTotal int64
	Percent      float32
	Elapsed      time.Duration
	ETA          time.Duration
}

// NewProgressSnapshot derives percent and ETA from sample counts.
func NewProgressSnapshot(done, total int64, elapsed time.Duration) ProgressSnapshot {
	s := ProgressSnapshot{SamplesDone: done, SamplesTotal: total, Elapsed: elapsed}
	if total > 0 {
		s.Percent = float32(float64(done) / float64(total) * 100)
	}
	if done > 0 && done < total {
		s.ETA = time.Duration(float64(elapsed) * float64(total-done) / float64(done))
	}
	return s
}

// ExportOutcome contains final export results.
type ExportOutcome struct {
	InputFile  string
	OutputFile string
	OutputSize uint64
	// ClipDuration is the exported length in seconds.
	ClipDuration float64
	TotalTime    time.Duration
	Speed        float64
}

// ProbeSummary describes an opened audio source.
type ProbeSummary struct {
	InputFile  string
	FormatName string
	CodecName  string
	SampleRate uint32
	Channels   uint32
	Duration   float64
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
