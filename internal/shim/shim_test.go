package shim

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/ffmpeg"
	"github.com/tubetape/ffshim/internal/ffprobe"
)

func unavailable() (*ffmpeg.Library, error) {
	return nil, errors.NewEnvironmentError("native runtime unavailable", &ffmpeg.LoadError{Kind: ffmpeg.DirectoryNotSet})
}

func nativeEmulator(t *testing.T) *Emulator {
	t.Helper()
	dir := os.Getenv("FFSHIM_FFMPEG_DIR")
	if dir == "" {
		t.Skip("FFSHIM_FFMPEG_DIR not set")
	}
	lib, err := ffmpeg.NewLoader(dir).Library()
	require.NoError(t, err)
	return New(func() (*ffmpeg.Library, error) { return lib, nil })
}

// writeToneWAV writes seconds of 16-bit stereo PCM at 44.1kHz.
func writeToneWAV(t *testing.T, path string, seconds int) {
	t.Helper()
	const rate, channels = 44100, 2
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
		v := uint16(int16(math.Sin(2*math.Pi*330*float64(i)/rate) * 10000))
		buf = binary.LittleEndian.AppendUint16(buf, v)
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	require.NoError(t, os.WriteFile(path, buf, 0o644))
}

func TestProbeBitstreamFilters(t *testing.T) {
	res := New(unavailable).RunProbeCommand([]string{"-bsfs"})

	assert.Equal(t, ExitOK, res.ExitCode)
	assert.Equal(t, BitstreamFilters, res.Stdout)
	assert.Contains(t, res.Stdout, "Bitstream filters:\naac_adtstoasc\n")
	assert.Contains(t, res.Stdout, "vvc_mp4toannexb\n")
	assert.Contains(t, res.Stderr, "ffmpeg version")
	assert.Contains(t, res.Stderr, "  unknown\n")
}

func TestProbeVersion(t *testing.T) {
	res := New(unavailable).RunProbeCommand([]string{"-version"})
	assert.Equal(t, ExitOK, res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, Banner(""), res.Stderr)
}

func TestProbeUnknownCommand(t *testing.T) {
	res := New(unavailable).RunProbeCommand([]string{"-hide_banner"})
	assert.Equal(t, ExitUsage, res.ExitCode)
	assert.Equal(t, "Unknown ffprobe command", res.Stderr)
}

func TestProbeShowInfoWithoutRuntime(t *testing.T) {
	res := New(unavailable).RunProbeCommand([]string{"-show_streams", "in.m4a"})
	assert.Equal(t, ExitFailure, res.ExitCode)
	assert.Equal(t, "in.m4a: native runtime unavailable: library directory not set", res.Stderr)
}

func TestConvertParseError(t *testing.T) {
	res := New(unavailable).RunConvertCommand([]string{"-i", "in.mp4"})
	assert.Equal(t, ExitUsage, res.ExitCode)
	assert.Equal(t, "No output file specified", res.Stderr)
}

func TestConvertUnknownCodecDiagnostic(t *testing.T) {
	res := New(unavailable).RunConvertCommand([]string{"-i", "in.mp4", "-c:a", "opus", "out.opus"})
	assert.Equal(t, ExitUsage, res.ExitCode)
	assert.Equal(t, "Unknown audio codec: opus", res.Stderr)
}

func TestConvertMissingInput(t *testing.T) {
	calls := 0
	e := New(func() (*ffmpeg.Library, error) {
		calls++
		return unavailable()
	})

	input := filepath.Join(t.TempDir(), "missing.mp4")
	res := e.RunConvertCommand([]string{"-i", input, "-c:a", "copy", "out.aac"})

	assert.Equal(t, ExitFailure, res.ExitCode)
	assert.Equal(t, input+": No such file or directory", res.Stderr)
	assert.Zero(t, calls, "runtime resolved before the input check")
}

func TestConvertExistingOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mp4")
	output := filepath.Join(dir, "out.aac")
	require.NoError(t, os.WriteFile(input, []byte("media"), 0o644))
	require.NoError(t, os.WriteFile(output, []byte("keep"), 0o644))

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(output, old, old))

	res := New(unavailable).RunConvertCommand([]string{"-i", input, "-c:a", "copy", output})
	assert.Equal(t, ExitFailure, res.ExitCode)
	assert.Equal(t, "File '"+output+"' already exists. Overwrite? [y/N] Not overwriting - exiting", res.Stderr)

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "output was modified")
	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestConvertLoadFailure(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mp4")
	require.NoError(t, os.WriteFile(input, []byte("media"), 0o644))

	e := New(ffmpeg.NewLoader(t.TempDir()).Library)
	res := e.RunConvertCommand([]string{"-i", input, "-y", filepath.Join(dir, "out.aac")})

	assert.Equal(t, ExitFailure, res.ExitCode)
	assert.Contains(t, res.Stderr, "Failed to load FFmpeg: native runtime unavailable: failed to load avutil")
}

func TestProbeShowInfo(t *testing.T) {
	e := nativeEmulator(t)
	input := filepath.Join(t.TempDir(), "tone.wav")
	writeToneWAV(t, input, 3)

	res := e.RunProbeCommand([]string{"-v", "quiet", "-show_streams", "-show_format", input})
	require.Equal(t, ExitOK, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stdout, "[STREAM]\nindex=0\n")
	assert.Contains(t, res.Stdout, "codec_type=audio\nsample_rate=44100\nchannels=2\n")
	assert.Contains(t, res.Stdout, "duration=3.000000\n")
	assert.Contains(t, res.Stderr, "ffmpeg version 7.1")

	res = e.RunProbeCommand([]string{"-show_streams", "-of", "json", input})
	require.Equal(t, ExitOK, res.ExitCode, res.Stderr)
	report, err := ffprobe.Parse([]byte(res.Stdout))
	require.NoError(t, err)
	require.NotNil(t, report.AudioStream())
	assert.Equal(t, uint32(44100), report.AudioStream().SampleRate)
}

func TestProbeShowInfoBadInput(t *testing.T) {
	e := nativeEmulator(t)
	input := filepath.Join(t.TempDir(), "missing.wav")

	res := e.RunProbeCommand([]string{"-show_format", input})
	assert.Equal(t, ExitFailure, res.ExitCode)
	assert.Contains(t, res.Stderr, input+": failed to open input")
}

func TestConvertCopy(t *testing.T) {
	e := nativeEmulator(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "tone.wav")
	output := filepath.Join(dir, "copy.wav")
	writeToneWAV(t, input, 2)

	res := e.RunConvertCommand([]string{"-i", input, "-vn", "-c:a", "copy", "-f", "wav", "-y", output})
	require.Equal(t, ExitOK, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stderr, "Input #0, from '"+input+"':\n")
	assert.Contains(t, res.Stderr, "  Duration: 00:00:02.00, bitrate: N/A\n")
	assert.Contains(t, res.Stderr, "Output #0, wav to '"+output+"':\n")
	assert.Contains(t, res.Stderr, "  Stream #0:0 -> #0:0 (copy)\n")

	stats, ok := ParseTrailer(res.Stderr)
	require.True(t, ok)
	assert.Equal(t, uint64(44100*2*2*2/1024), stats.SizeKB)
	assert.InDelta(t, 2.0, stats.Duration, 0.01)
	assert.FileExists(t, output)
}

func TestConvertTranscode(t *testing.T) {
	e := nativeEmulator(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "tone.wav")
	output := filepath.Join(dir, "tone.out")
	writeToneWAV(t, input, 2)

	res := e.RunConvertCommand([]string{"-i", input, "-c:a", "pcm_s16le", output})
	require.Equal(t, ExitOK, res.ExitCode, res.Stderr)
	assert.Contains(t, res.Stderr, "(pcm_s16le -> pcm_s16le)")

	stats, ok := ParseTrailer(res.Stderr)
	require.True(t, ok)
	assert.InDelta(t, 2.0, stats.Duration, 0.01)
	assert.Positive(t, stats.SizeKB)
}
