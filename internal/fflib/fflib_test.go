package fflib

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubetape/ffshim/internal/errors"
)

func TestLibraryName(t *testing.T) {
	assert.Equal(t, "libffmpeg.so", libraryName("linux"))
	assert.Equal(t, "libffmpeg.so", libraryName("android"))
	assert.Equal(t, "libffmpeg.dylib", libraryName("darwin"))
	assert.Equal(t, "libffmpeg.dylib", libraryName("ios"))
	assert.Equal(t, "ffmpeg.dll", libraryName("windows"))
	assert.NotEmpty(t, DefaultLibraryName())
}

func TestRunRejectsUnknownTool(t *testing.T) {
	_, err := Run("libffmpeg.so", Tool("ffplay"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindArgument))
}

func TestRunMissingLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultLibraryName())
	_, err := Run(path, ToolFFprobe, []string{"-bsfs"})
	require.Error(t, err)
	assert.True(t, errors.IsEnvironment(err), "got %v", err)
}

func TestRunConcurrentFailuresDoNotDeadlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultLibraryName())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Run(path, ToolFFmpeg, []string{"-version"})
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}

func TestCapabilitiesFallback(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), DefaultLibraryName())} {
		res := Capabilities(path)
		assert.Equal(t, 0, res.ExitCode)
		assert.True(t, strings.HasPrefix(res.Stdout, "Bitstream filters:\naac_adtstoasc\n"))
		assert.True(t, strings.HasSuffix(res.Stdout, "vp9_superframe_split"))
		assert.True(t, strings.HasPrefix(res.Stderr, "ffmpeg version 5.1.4"))
		assert.Contains(t, res.Stderr, "libswresample   4.  7.100")
	}
}

func TestCapabilitiesNative(t *testing.T) {
	path := os.Getenv("FFSHIM_FFMPEG_LIB")
	if path == "" {
		t.Skip("FFSHIM_FFMPEG_LIB not set")
	}

	res, err := Run(path, ToolFFprobe, []string{"-hide_banner", "-bsfs"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout+res.Stderr, "Bitstream filters")

	// A second run must see a freshly loaded library.
	res, err = Run(path, ToolFFmpeg, []string{"-version"})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout+res.Stderr, "ffmpeg")
}
