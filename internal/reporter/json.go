package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) ExportStarted(summary ExportSummary) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":        "export_started",
		"input_file":  summary.InputFile,
		"output_file": summary.OutputFile,
		"format":      summary.Format,
		"start":       summary.Start,
		"end":         summary.End,
		"sample_rate": summary.SampleRate,
		"channels":    summary.Channels,
		"timestamp":   r.timestamp(),
	})
}

// ExportProgress emits at most one event per percent bucket, plus one every
// five seconds and every update from 99% on.
func (r *JSONReporter) ExportProgress(progress ProgressSnapshot) {
	const progressBucketSize = 1
	const minInterval = 5 * time.Second

	bucket := int(progress.Percent) / progressBucketSize
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || progress.Percent >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}

	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.write(map[string]interface{}{
		"type":          "export_progress",
		"samples_done":  progress.SamplesDone,
		"samples_total": progress.SamplesTotal,
		"percent":       progress.Percent,
		"eta_seconds":   int64(progress.ETA.Seconds()),
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) ExportComplete(outcome ExportOutcome) {
	r.write(map[string]interface{}{
		"type":             "export_complete",
		"input_file":       outcome.InputFile,
		"output_file":      outcome.OutputFile,
		"output_size":      outcome.OutputSize,
		"clip_duration":    outcome.ClipDuration,
		"duration_seconds": outcome.TotalTime.Seconds(),
		"speed":            outcome.Speed,
		"timestamp":        r.timestamp(),
	})
}

func (r *JSONReporter) ProbeResult(summary ProbeSummary) {
	r.write(map[string]interface{}{
		"type":        "probe_result",
		"input_file":  summary.InputFile,
		"format_name": summary.FormatName,
		"codec_name":  summary.CodecName,
		"sample_rate": summary.SampleRate,
		"channels":    summary.Channels,
		"duration":    summary.Duration,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":      "verbose",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}
