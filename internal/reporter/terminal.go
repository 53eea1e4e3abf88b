package reporter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/tubetape/ffshim/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	out        io.Writer
	errOut     io.Writer
	verbose    bool
	progress   *progressbar.ProgressBar
	maxPercent float32
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	faint      *color.Color
	bold       *color.Color
}

// NewTerminalReporter creates a terminal reporter writing to stdout, with
// errors and the progress bar on stderr.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr, verbose)
}

// NewTerminalReporterWithWriters creates a terminal reporter with custom
// writers.
func NewTerminalReporterWithWriters(out, errOut io.Writer, verbose bool) *TerminalReporter {
	return &TerminalReporter{
		out:     out,
		errOut:  errOut,
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen, color.Bold),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		faint:   color.New(color.Faint),
		bold:    color.New(color.Bold),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.maxPercent = 0
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) heading(title string) {
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

func (r *TerminalReporter) ExportStarted(summary ExportSummary) {
	r.finishProgress()

	r.heading("EXPORT")
	r.printLabel(8, "File:", summary.InputFile)
	r.printLabel(8, "Output:", summary.OutputFile)
	r.printLabel(8, "Format:", summary.Format)
	r.printLabel(8, "Range:", fmt.Sprintf("%s - %s", util.FormatTimestamp(summary.Start), util.FormatTimestamp(summary.End)))
	if summary.SampleRate > 0 {
		r.printLabel(8, "Audio:", fmt.Sprintf("%d Hz, %d ch", summary.SampleRate, summary.Channels))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Exporting [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) ExportProgress(progress ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}

	clamped := progress.Percent
	if clamped > 100 {
		clamped = 100
	}
	if clamped < 0 {
		clamped = 0
	}

	if clamped >= r.maxPercent {
		r.maxPercent = clamped
		_ = r.progress.Set64(int64(clamped))
	}
	r.progress.Describe(fmt.Sprintf("eta %s", util.FormatDuration(progress.ETA.Seconds())))
}

func (r *TerminalReporter) ExportComplete(outcome ExportOutcome) {
	r.finishProgress()

	r.heading("RESULTS")
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint("Output:"), r.bold.Sprint(outcome.OutputFile))
	r.printLabel(9, "Size:", util.FormatBytes(outcome.OutputSize))
	r.printLabel(9, "Length:", util.FormatTimestamp(outcome.ClipDuration))
	fmt.Fprintf(r.out, "  %s %s (speed %.1fx)\n",
		r.bold.Sprint("Time:"),
		util.FormatDuration(outcome.TotalTime.Seconds()),
		outcome.Speed)
	fmt.Fprintf(r.out, "%s %s\n", r.green.Sprint("✓"), r.bold.Sprint("Export complete"))
}

func (r *TerminalReporter) ProbeResult(summary ProbeSummary) {
	r.heading("AUDIO")
	r.printLabel(9, "File:", summary.InputFile)
	r.printLabel(9, "Format:", summary.FormatName)
	r.printLabel(9, "Codec:", summary.CodecName)
	r.printLabel(9, "Rate:", fmt.Sprintf("%d Hz", summary.SampleRate))
	r.printLabel(9, "Channels:", fmt.Sprintf("%d", summary.Channels))
	r.printLabel(9, "Duration:", util.FormatTimestamp(summary.Duration))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.finishProgress()

	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	_, _ = r.faint.Fprintf(r.out, "  %s\n", message)
}
