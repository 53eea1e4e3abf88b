// Package ffshim loads the FFmpeg shared libraries at run time and exposes
// audio clip export plus in-process emulations of the ffprobe and ffmpeg
// command lines a media downloader expects to find on PATH.
//
// Basic usage:
//
//	rt, err := ffshim.New(
//	    ffshim.WithLibraryDir("/opt/ffmpeg/lib"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	result, err := rt.Export("talk.m4a", "clip.mp3", 10, 25)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Exported: %s, %.1fs\n", result.OutputFile, result.ClipDuration)
package ffshim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tubetape/ffshim/internal/audio"
	"github.com/tubetape/ffshim/internal/config"
	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/ffmpeg"
	"github.com/tubetape/ffshim/internal/fflib"
	"github.com/tubetape/ffshim/internal/ffprobe"
	"github.com/tubetape/ffshim/internal/logging"
	"github.com/tubetape/ffshim/internal/reporter"
	"github.com/tubetape/ffshim/internal/shim"
	"github.com/tubetape/ffshim/internal/util"
)

// Re-exported types.
type (
	Source       = ffmpeg.AudioSource
	Version      = ffmpeg.Version
	Result       = shim.Result
	LegacyResult = fflib.Result
	Reporter     = reporter.Reporter
	Format       = audio.Format
	ProbeReport  = ffprobe.Report
)

// Export formats.
const (
	FormatMP3  = audio.FormatMP3
	FormatAAC  = audio.FormatAAC
	FormatFLAC = audio.FormatFLAC
	FormatWAV  = audio.FormatWAV
)

// ParseFormat maps a format name or file extension ("mp3", ".m4a") to a
// Format.
func ParseFormat(name string) (Format, error) {
	f, ok := audio.FormatFromExtension(name)
	if !ok {
		return f, errors.NewArgumentError(fmt.Sprintf("unsupported export format: %s", name))
	}
	return f, nil
}

// Exit codes of emulated commands.
const (
	ExitOK      = shim.ExitOK
	ExitFailure = shim.ExitFailure
	ExitUsage   = shim.ExitUsage
)

// Runtime is the main entry point. It owns one lazily loaded set of FFmpeg
// libraries.
type Runtime struct {
	config   *config.Config
	loader   *ffmpeg.Loader
	emulator *shim.Emulator
	reporter reporter.Reporter
	logFile  io.Closer
}

// ExportResult contains the result of a clip export.
type ExportResult struct {
	OutputFile   string
	Format       string
	OutputSize   uint64
	ClipDuration float64
	Elapsed      time.Duration
	// Speed is clip seconds per wall-clock second.
	Speed float64
}

type options struct {
	cfg      *config.Config
	reporter reporter.Reporter
}

// Option configures the runtime.
type Option func(*options)

// New creates a Runtime. Defaults come from the environment (FFSHIM_*) and
// are overridden by opts. Nothing is loaded until first use.
func New(opts ...Option) (*Runtime, error) {
	o := options{cfg: config.NewConfig(), reporter: reporter.NullReporter{}}
	o.cfg.LoadFromEnv()

	for _, opt := range opts {
		opt(&o)
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, &errors.CoreError{Kind: errors.KindConfig, Message: "invalid configuration", Underlying: err}
	}

	rt := &Runtime{
		config:   o.cfg,
		loader:   ffmpeg.NewLoader(o.cfg.LibraryDir),
		reporter: o.reporter,
	}
	rt.emulator = shim.New(rt.loader.Library)

	if err := rt.setupLogging(); err != nil {
		return nil, err
	}
	return rt, nil
}

// WithLibraryDir sets the directory holding avutil, swresample, avcodec and
// avformat.
func WithLibraryDir(dir string) Option {
	return func(o *options) {
		o.cfg.LibraryDir = dir
	}
}

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(o *options) {
		o.cfg.LogLevel = level
	}
}

// WithLogDir enables a timestamped log file in dir.
func WithLogDir(dir string) Option {
	return func(o *options) {
		o.cfg.LogDir = dir
	}
}

// WithReporter receives export progress and outcome events.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithLegacyLibrary sets the monolithic library used by RunLegacy and
// Capabilities.
func WithLegacyLibrary(path string) Option {
	return func(o *options) {
		o.cfg.LegacyLibraryPath = path
	}
}

// WithDefaultFormat sets the export format used for unrecognized output
// extensions.
func WithDefaultFormat(name string) Option {
	return func(o *options) {
		o.cfg.DefaultFormat = name
	}
}

// WithOverwrite allows Export to replace existing outputs.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.cfg.Overwrite = overwrite
	}
}

func (r *Runtime) setupLogging() error {
	level, err := logging.ParseLevel(r.config.LogLevel)
	if err != nil {
		return errors.NewConfigError(err.Error())
	}

	var w io.Writer = os.Stderr
	if r.config.LogDir != "" {
		f, err := logging.OpenLogFile(r.config.LogDir)
		if err != nil {
			return errors.NewIOError("failed to open log file", err)
		}
		r.logFile = f
		w = f
	}
	logging.Init(level, w)
	return nil
}

// Close releases the log file, if one was opened. The loaded libraries stay
// mapped for the life of the process.
func (r *Runtime) Close() error {
	if r.logFile == nil {
		return nil
	}
	err := r.logFile.Close()
	r.logFile = nil
	return err
}

// DefaultFormat returns the format used for unrecognized output extensions.
func (r *Runtime) DefaultFormat() Format {
	return r.config.ExportFormat()
}

// LibraryDir returns the configured library directory.
func (r *Runtime) LibraryDir() string {
	return r.config.LibraryDir
}

// Version loads the libraries if needed and reports their versions.
func (r *Runtime) Version() (Version, error) {
	lib, err := r.loader.Library()
	if err != nil {
		return Version{}, err
	}
	return lib.Version(), nil
}

// Open opens the best audio stream of path. The caller must Close the
// returned Source.
func (r *Runtime) Open(path string) (*Source, error) {
	lib, err := r.loader.Library()
	if err != nil {
		return nil, err
	}
	return lib.OpenAudio(path)
}

// Info opens path, reports its stream parameters and closes it again.
func (r *Runtime) Info(path string) (reporter.ProbeSummary, error) {
	src, err := r.Open(path)
	if err != nil {
		r.reportError("Probe failed", path, err)
		return reporter.ProbeSummary{}, err
	}
	defer src.Close()

	summary := reporter.ProbeSummary{
		InputFile:  path,
		FormatName: src.FormatName,
		CodecName:  src.CodecName,
		SampleRate: src.SampleRate,
		Channels:   src.Channels,
		Duration:   src.Duration,
	}
	r.reporter.ProbeResult(summary)
	return summary, nil
}

func (r *Runtime) exportFormat(output string) audio.Format {
	if f, ok := audio.FormatFromExtension(filepath.Ext(output)); ok {
		return f
	}
	return r.DefaultFormat()
}

// Export writes the [start, end) window of input to output. The format
// follows the output extension, or the configured default format when the
// extension is not recognized.
func (r *Runtime) Export(input, output string, start, end float64) (*ExportResult, error) {
	return r.ExportAs(input, output, r.exportFormat(output), start, end)
}

// ExportAs is Export with an explicit output format.
func (r *Runtime) ExportAs(input, output string, format Format, start, end float64) (*ExportResult, error) {
	if err := ffmpeg.ValidateRange(start, end); err != nil {
		r.reportError("Export failed", input, err)
		return nil, err
	}
	if !r.config.Overwrite && util.PathExists(output) {
		err := errors.NewIOError(fmt.Sprintf("output file already exists: %s", output), nil)
		r.reportError("Export failed", input, err)
		return nil, err
	}

	summary := reporter.ExportSummary{
		InputFile:  input,
		OutputFile: output,
		Format:     format.String(),
		Start:      start,
		End:        end,
	}
	if src, err := r.Open(input); err == nil {
		summary.SampleRate = src.SampleRate
		summary.Channels = src.Channels
		src.Close()
	}
	r.reporter.ExportStarted(summary)

	lib, err := r.loader.Library()
	if err != nil {
		r.reportError("Export failed", input, err)
		return nil, err
	}

	began := time.Now()
	progress := func(done, total int64) {
		r.reporter.ExportProgress(reporter.NewProgressSnapshot(done, total, time.Since(began)))
	}
	if err := lib.Export(input, output, start, end,
		ffmpeg.WithFormat(format),
		ffmpeg.WithProgress(progress),
	); err != nil {
		r.reportError("Export failed", input, err)
		return nil, err
	}

	elapsed := time.Since(began)
	size, err := util.GetFileSize(output)
	if err != nil {
		logging.Warn("failed to stat export output", "path", output, "error", err)
	}

	result := &ExportResult{
		OutputFile:   output,
		Format:       format.String(),
		OutputSize:   size,
		ClipDuration: end - start,
		Elapsed:      elapsed,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		result.Speed = result.ClipDuration / secs
	}

	r.reporter.ExportComplete(reporter.ExportOutcome{
		InputFile:    input,
		OutputFile:   output,
		OutputSize:   size,
		ClipDuration: result.ClipDuration,
		TotalTime:    elapsed,
		Speed:        result.Speed,
	})
	return result, nil
}

// Probe emulates an ffprobe invocation.
func (r *Runtime) Probe(args []string) Result {
	return r.emulator.RunProbeCommand(args)
}

// ProbeFile runs the emulated ffprobe JSON report for path and returns it
// in typed form.
func (r *Runtime) ProbeFile(path string) (*ProbeReport, error) {
	res := r.Probe([]string{"-v", "quiet", "-show_streams", "-show_format", "-print_format", "json", path})
	if res.ExitCode != ExitOK {
		return nil, errors.NewInputError(strings.TrimSpace(res.Stderr), nil)
	}
	report, err := ffprobe.Parse([]byte(res.Stdout))
	if err != nil {
		return nil, errors.NewInputError("failed to read probe report", err)
	}
	return report, nil
}

// Convert emulates an ffmpeg invocation.
func (r *Runtime) Convert(args []string) Result {
	res := r.emulator.RunConvertCommand(args)
	if res.ExitCode != ExitOK {
		return res
	}
	if stats, ok := shim.ParseTrailer(res.Stderr); ok {
		r.reporter.Verbose(conversionSummary(stats))
	}
	return res
}

func conversionSummary(stats shim.RemuxStats) string {
	return fmt.Sprintf("converted %dkB in %s (%.1fkbits/s, %.1fx)",
		stats.SizeKB, util.FormatTimestamp(stats.Duration), stats.BitrateKbps, stats.Speed)
}

func (r *Runtime) legacyPath() string {
	if r.config.LegacyLibraryPath != "" {
		return r.config.LegacyLibraryPath
	}
	if r.config.LibraryDir != "" {
		return filepath.Join(r.config.LibraryDir, fflib.DefaultLibraryName())
	}
	return ""
}

// RunLegacy runs tool ("ffmpeg" or "ffprobe") from the monolithic library.
func (r *Runtime) RunLegacy(tool string, args []string) (*LegacyResult, error) {
	path := r.legacyPath()
	if path == "" {
		return nil, errors.NewConfigError("legacy FFmpeg library not configured")
	}
	return fflib.Run(path, fflib.Tool(tool), args)
}

// LegacyVersion returns the version string reported by the monolithic
// library.
func (r *Runtime) LegacyVersion() (string, error) {
	path := r.legacyPath()
	if path == "" {
		return "", errors.NewConfigError("legacy FFmpeg library not configured")
	}
	return fflib.LibraryVersion(path)
}

// Capabilities reports the bitstream filter list and banner of the
// monolithic library, or a static FFmpeg 5.1 description when it cannot be
// run.
func (r *Runtime) Capabilities() *LegacyResult {
	path := r.legacyPath()
	if path != "" && !util.FileExists(path) {
		logging.Debug("legacy library not found", "path", path)
		path = ""
	}
	return fflib.Capabilities(path)
}

func (r *Runtime) reportError(title, input string, err error) {
	r.reporter.Error(reporter.ReporterError{
		Title:   title,
		Message: errors.Message(err),
		Context: input,
	})
}
