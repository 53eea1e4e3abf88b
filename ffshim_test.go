package ffshim

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubetape/ffshim/internal/audio"
	"github.com/tubetape/ffshim/internal/config"
	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/reporter"
	"github.com/tubetape/ffshim/internal/shim"
)

type recordingReporter struct {
	reporter.NullReporter
	mu       sync.Mutex
	started  []reporter.ExportSummary
	progress []reporter.ProgressSnapshot
	outcomes []reporter.ExportOutcome
	probes   []reporter.ProbeSummary
	errors   []reporter.ReporterError
}

func (r *recordingReporter) ExportStarted(s reporter.ExportSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, s)
}

func (r *recordingReporter) ExportProgress(p reporter.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) ExportComplete(o reporter.ExportOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingReporter) ProbeResult(s reporter.ProbeSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = append(r.probes, s)
}

func (r *recordingReporter) Error(e reporter.ReporterError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
}

// clearEnv keeps the developer's FFSHIM_* settings out of tests that
// expect defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvLibraryDir,
		config.EnvLegacyLibrary,
		config.EnvLogLevel,
		config.EnvDefaultFormat,
		config.EnvOverwrite,
	} {
		t.Setenv(key, "")
	}
}

func TestNewDefaults(t *testing.T) {
	clearEnv(t)

	rt, err := New()
	require.NoError(t, err)
	defer rt.Close()

	assert.Empty(t, rt.LibraryDir())
	assert.Equal(t, config.DefaultLogLevel, rt.config.LogLevel)
	assert.Equal(t, audio.FormatMP3, rt.exportFormat("clip.bin"))
	assert.Equal(t, audio.FormatFLAC, rt.exportFormat("clip.FLAC"))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"log level", WithLogLevel("loud"), config.ErrInvalidLogLevel},
		{"format", WithDefaultFormat("ogg"), config.ErrInvalidFormat},
		{"library dir", WithLibraryDir(filepath.Join(t.TempDir(), "missing")), config.ErrLibraryDirMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindConfig))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEnvironmentOverriddenByOptions(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvDefaultFormat, "wav")

	rt, err := New()
	require.NoError(t, err)
	assert.Equal(t, audio.FormatWAV, rt.exportFormat("clip"))

	rt, err = New(WithDefaultFormat("flac"))
	require.NoError(t, err)
	assert.Equal(t, audio.FormatFLAC, rt.exportFormat("clip"))
}

func TestWithLogDir(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "logs")

	rt, err := New(WithLogDir(dir), WithLogLevel("debug"))
	require.NoError(t, err)
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "ffshim_"))
}

func TestRuntimeWithoutLibraries(t *testing.T) {
	clearEnv(t)
	rep := &recordingReporter{}
	rt, err := New(WithReporter(rep))
	require.NoError(t, err)

	_, err = rt.Version()
	assert.True(t, errors.IsEnvironment(err))

	_, err = rt.Open("missing.mp3")
	assert.True(t, errors.IsEnvironment(err))

	_, err = rt.Info("missing.mp3")
	assert.True(t, errors.IsEnvironment(err))
	require.Len(t, rep.errors, 1)
	assert.Equal(t, "Probe failed", rep.errors[0].Title)
	assert.Empty(t, rep.probes)
}

func TestExportInvalidRange(t *testing.T) {
	clearEnv(t)
	rep := &recordingReporter{}
	rt, err := New(WithReporter(rep))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "clip.mp3")
	_, err = rt.Export("in.wav", out, 5, 5)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArgument))
	assert.Equal(t, "invalid time range", errors.Message(err))
	assert.NoFileExists(t, out)

	assert.Empty(t, rep.started)
	require.Len(t, rep.errors, 1)
	assert.Equal(t, "invalid time range", rep.errors[0].Message)
}

func TestExportRefusesExistingOutput(t *testing.T) {
	clearEnv(t)
	rt, err := New()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(out, []byte("keep"), 0o644))

	_, err = rt.Export("in.wav", out, 0, 1)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindIO))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestProbeWithoutLibraries(t *testing.T) {
	clearEnv(t)
	rt, err := New()
	require.NoError(t, err)

	res := rt.Probe([]string{"-bsfs"})
	assert.Equal(t, ExitOK, res.ExitCode)
	assert.Equal(t, shim.BitstreamFilters, res.Stdout)

	res = rt.Convert([]string{"-i"})
	assert.Equal(t, ExitUsage, res.ExitCode)
}

func TestProbeFileWithoutLibraries(t *testing.T) {
	clearEnv(t)
	rt, err := New()
	require.NoError(t, err)

	_, err = rt.ProbeFile("song.m4a")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInput))
	assert.Contains(t, errors.Message(err), "song.m4a: native runtime unavailable")
}

func TestLegacyNotConfigured(t *testing.T) {
	clearEnv(t)
	rt, err := New()
	require.NoError(t, err)

	_, err = rt.RunLegacy("ffprobe", []string{"-bsfs"})
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	_, err = rt.LegacyVersion()
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	caps := rt.Capabilities()
	assert.Contains(t, caps.Stderr, "ffmpeg version 5.1.4")
	assert.Contains(t, caps.Stdout, "aac_adtstoasc")
}

func TestLegacyPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	rt, err := New(WithLibraryDir(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(rt.legacyPath()))

	// Missing library falls back to the static description.
	caps := rt.Capabilities()
	assert.Contains(t, caps.Stderr, "5.1.4")

	_, err = rt.LegacyVersion()
	assert.True(t, errors.IsEnvironment(err))

	rt, err = New(WithLibraryDir(dir), WithLegacyLibrary("/opt/ff/libffmpeg.so"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/ff/libffmpeg.so", rt.legacyPath())
}

func nativeRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	dir := os.Getenv(config.EnvLibraryDir)
	if dir == "" {
		t.Skip("FFSHIM_FFMPEG_DIR not set")
	}
	rt, err := New(append([]Option{WithLibraryDir(dir)}, opts...)...)
	require.NoError(t, err)
	return rt
}

func writeTone(t *testing.T, path string, seconds int) {
	t.Helper()
	const rate, channels = 48000, 1
	samples := rate * seconds
	dataSize := samples * channels * 2

	buf := make([]byte, 44, 44+dataSize)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataSize))
	copy(buf[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], channels)
	binary.LittleEndian.PutUint32(buf[24:], rate)
	binary.LittleEndian.PutUint32(buf[28:], rate*channels*2)
	binary.LittleEndian.PutUint16(buf[32:], channels*2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataSize))

	for i := 0; i < samples; i++ {
		v := int16(math.Sin(2*math.Pi*220*float64(i)/rate) * 8000)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestNativeExportReportsEvents(t *testing.T) {
	rep := &recordingReporter{}
	rt := nativeRuntime(t, WithReporter(rep))

	dir := t.TempDir()
	in := filepath.Join(dir, "tone.wav")
	writeTone(t, in, 6)
	out := filepath.Join(dir, "clip.wav")

	res, err := rt.Export(in, out, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, out, res.OutputFile)
	assert.Equal(t, "wav", res.Format)
	assert.InDelta(t, 3.0, res.ClipDuration, 1e-9)
	assert.Greater(t, res.OutputSize, uint64(3*48000*2))

	require.Len(t, rep.started, 1)
	assert.Equal(t, uint32(48000), rep.started[0].SampleRate)
	assert.Equal(t, uint32(1), rep.started[0].Channels)

	require.NotEmpty(t, rep.progress)
	last := rep.progress[len(rep.progress)-1]
	assert.Equal(t, int64(3*48000), last.SamplesTotal)
	assert.Equal(t, last.SamplesTotal, last.SamplesDone)
	assert.InDelta(t, 100, last.Percent, 0.01)

	require.Len(t, rep.outcomes, 1)
	assert.Equal(t, res.OutputSize, rep.outcomes[0].OutputSize)
	assert.Empty(t, rep.errors)

	// Second export to the same path needs WithOverwrite.
	_, err = rt.Export(in, out, 1, 4)
	assert.True(t, errors.IsKind(err, errors.KindIO))
}

func TestNativeInfo(t *testing.T) {
	rep := &recordingReporter{}
	rt := nativeRuntime(t, WithReporter(rep))

	in := filepath.Join(t.TempDir(), "tone.wav")
	writeTone(t, in, 2)

	summary, err := rt.Info(in)
	require.NoError(t, err)
	assert.Equal(t, "wav", summary.FormatName)
	assert.Equal(t, "pcm_s16le", summary.CodecName)
	assert.Equal(t, uint32(48000), summary.SampleRate)
	assert.InDelta(t, 2.0, summary.Duration, 0.01)
	require.Len(t, rep.probes, 1)

	report, err := rt.ProbeFile(in)
	require.NoError(t, err)
	stream := report.AudioStream()
	require.NotNil(t, stream)
	assert.Equal(t, "pcm_s16le", stream.CodecName)
	assert.Equal(t, uint32(48000), stream.SampleRate)
	assert.Equal(t, uint32(1), stream.Channels)
	assert.InDelta(t, 2.0, report.Format.Duration, 0.01)

	v, err := rt.Version()
	require.NoError(t, err)
	assert.NotEmpty(t, v.String())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"mp3", FormatMP3},
		{".m4a", FormatAAC},
		{"FLAC", FormatFLAC},
		{"wav", FormatWAV},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseFormat("ogg")
	assert.True(t, errors.IsKind(err, errors.KindArgument))
}

func TestConversionSummary(t *testing.T) {
	stats, ok := shim.ParseTrailer("size=     344kB time=00:00:02.00 bitrate=1376.0kbits/s speed=40.0x\n")
	require.True(t, ok)
	assert.Equal(t, "converted 344kB in 00:00:02.00 (1376.0kbits/s, 40.0x)", conversionSummary(stats))
}
