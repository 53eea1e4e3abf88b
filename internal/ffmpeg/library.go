package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/tubetape/ffshim/internal/config"
	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/logging"
)

// Libraries in load order. swresample, avcodec and avformat depend on avutil.
const (
	libAVUtil = iota
	libSWResample
	libAVCodec
	libAVFormat
	numLibraries
)

var libraryNames = [numLibraries]string{"avutil", "swresample", "avcodec", "avformat"}

// Major versions of the DLLs shipped for Windows (FFmpeg 8).
var windowsMajors = [numLibraries]int{60, 6, 62, 62}

// libraryFileName returns the platform file name of library lib.
func libraryFileName(goos string, lib int) string {
	name := libraryNames[lib]
	switch goos {
	case "windows":
		return fmt.Sprintf("%s-%d.dll", name, windowsMajors[lib])
	case "darwin", "ios":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

// LibraryFileNames returns the four file names Load expects in a directory
// on the running platform.
func LibraryFileNames() []string {
	names := make([]string, numLibraries)
	for i := range names {
		names[i] = libraryFileName(runtime.GOOS, i)
	}
	return names
}

// Library is a loaded set of FFmpeg libraries with a bound function table.
// The handles stay open for the life of the process.
type Library struct {
	dir      string
	handles  [numLibraries]uintptr
	fn       functions
	counters *handleCounters
}

// Load opens the FFmpeg libraries in dir and binds every required symbol.
// It does not memoize; use a Loader or Default for that.
func Load(dir string) (*Library, error) {
	if dir == "" {
		return nil, &LoadError{Kind: DirectoryNotSet}
	}

	lib := &Library{dir: dir, counters: &handleCounters{}}
	for i := 0; i < numLibraries; i++ {
		path := filepath.Join(dir, libraryFileName(runtime.GOOS, i))
		h, err := openLibrary(path)
		if err != nil {
			lib.unload()
			return nil, &LoadError{Kind: LibraryLoadFailed, Name: libraryNames[i], Err: err}
		}
		lib.handles[i] = h
	}

	if err := lib.fn.bind(lib.handles); err != nil {
		lib.unload()
		return nil, err
	}
	return lib, nil
}

// unload closes whatever handles a failed Load managed to open.
func (l *Library) unload() {
	for i := numLibraries - 1; i >= 0; i-- {
		if l.handles[i] != 0 {
			_ = closeLibrary(l.handles[i])
			l.handles[i] = 0
		}
	}
}

// Dir returns the directory the libraries were loaded from.
func (l *Library) Dir() string {
	return l.dir
}

// Version returns the packed versions reported by the loaded libraries.
func (l *Library) Version() Version {
	return Version{
		AVUtil:   l.fn.avutilVersion(),
		AVCodec:  l.fn.avcodecVersion(),
		AVFormat: l.fn.avformatVersion(),
	}
}

// quietLogs keeps FFmpeg's own stderr logging out of command output unless
// debug logging is on.
func (l *Library) quietLogs() {
	l.fn.avLogSetLevel(avLogLevel(func(level slog.Level) bool {
		return logging.Global().Enabled(context.Background(), level)
	}))
}

// avLogLevel maps the lowest enabled log level to an av_log level: debug to
// AV_LOG_VERBOSE, info and warn to AV_LOG_ERROR, error to AV_LOG_FATAL.
func avLogLevel(enabled func(slog.Level) bool) int32 {
	switch {
	case enabled(logging.LevelDebug):
		return avLogVerbose
	case enabled(logging.LevelWarn):
		return avLogError
	default:
		return avLogFatal
	}
}

// Loader memoizes the load of one directory. All callers, concurrent or not,
// observe the same Library or the same error.
type Loader struct {
	dir  string
	load func(string) (*Library, error)
	once sync.Once
	lib  *Library
	err  error
}

// NewLoader returns a Loader for dir. Nothing is loaded until Library is called.
func NewLoader(dir string) *Loader {
	return newLoaderWith(dir, Load)
}

func newLoaderWith(dir string, load func(string) (*Library, error)) *Loader {
	return &Loader{dir: dir, load: load}
}

// Library loads the directory on first use and returns the cached result
// afterwards. Failures are wrapped as environment errors.
func (l *Loader) Library() (*Library, error) {
	l.once.Do(func() {
		lib, err := l.load(l.dir)
		if err != nil {
			logging.Error("failed to load FFmpeg libraries", "dir", l.dir, "error", err)
			l.err = errors.NewEnvironmentError("native runtime unavailable", err)
			return
		}
		lib.quietLogs()
		logging.Info("loaded FFmpeg libraries", "dir", l.dir, "version", lib.Version().String())
		l.lib = lib
	})
	return l.lib, l.err
}

var (
	libraryDirMu sync.Mutex
	libraryDir   string

	defaultOnce   sync.Once
	defaultLoader *Loader
)

// SetLibraryDirectory sets the directory Default loads from, taking
// precedence over FFSHIM_FFMPEG_DIR. It only has an effect before the first
// call to Default.
func SetLibraryDirectory(dir string) {
	libraryDirMu.Lock()
	defer libraryDirMu.Unlock()
	libraryDir = dir
}

// LibraryDirectory returns the directory set by SetLibraryDirectory, or
// FFSHIM_FFMPEG_DIR when none was set.
func LibraryDirectory() string {
	libraryDirMu.Lock()
	defer libraryDirMu.Unlock()
	if libraryDir != "" {
		return libraryDir
	}
	return config.LibraryDirFromEnv()
}

// Default returns the process-wide Library, loading it on first use.
func Default() (*Library, error) {
	defaultOnce.Do(func() {
		defaultLoader = NewLoader(LibraryDirectory())
	})
	return defaultLoader.Library()
}
