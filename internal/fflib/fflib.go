// Package fflib runs ffmpeg and ffprobe from a monolithic FFmpeg library
// that exports the tools' entry points. The library is opened and closed
// around every call and calls are serialized process-wide because the
// tools keep global state.
package fflib

/*
#include <stdio.h>
#include <stdlib.h>

typedef struct {
	FILE *stdin_fp;
	FILE *stdout_fp;
	FILE *stderr_fp;
} ffshim_io;

typedef struct {
	int exit_code;
	int was_aborted;
	const char *error;
} ffshim_result;

static int ffshim_call_int(void *fn) {
	return ((int (*)(void))fn)();
}

static void ffshim_call_void(void *fn) {
	((void (*)(void))fn)();
}

static void ffshim_call_set_io(void *fn, const ffshim_io *io) {
	((void (*)(const ffshim_io *))fn)(io);
}

static ffshim_result ffshim_call_lib_main(void *fn, int argc, char **argv) {
	return ((ffshim_result (*)(int, char **))fn)(argc, argv);
}

static int ffshim_call_main(void *fn, int argc, char **argv) {
	return ((int (*)(int, char **))fn)(argc, argv);
}

static const char *ffshim_call_version(void *fn) {
	return ((const char *(*)(void))fn)();
}
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/google/uuid"

	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/logging"
)

// Tool selects which program to run.
type Tool string

const (
	ToolFFmpeg  Tool = "ffmpeg"
	ToolFFprobe Tool = "ffprobe"
)

// Result is the outcome of one tool run.
type Result struct {
	ExitCode int
	// Aborted is set when the tool tried to exit the process.
	Aborted bool
	Stdout  string
	Stderr  string
	// Error is the library's own error message, if any.
	Error string
}

var runMu sync.Mutex

// DefaultLibraryName returns the platform file name of the monolithic
// library.
func DefaultLibraryName() string {
	return libraryName(runtime.GOOS)
}

func libraryName(goos string) string {
	switch goos {
	case "windows":
		return "ffmpeg.dll"
	case "darwin", "ios":
		return "libffmpeg.dylib"
	default:
		return "libffmpeg.so"
	}
}

// entryPoints returns the library-API and plain main symbols for tool.
func entryPoints(tool Tool) (libMain, main string, err error) {
	switch tool {
	case ToolFFmpeg:
		return "ffmpeg_lib_main", "ffmpeg_main", nil
	case ToolFFprobe:
		return "ffprobe_lib_main", "ffprobe_main", nil
	default:
		return "", "", errors.NewArgumentError(fmt.Sprintf("only ffmpeg and ffprobe are supported, not %s", tool))
	}
}

// Run loads libPath, runs tool with args and unloads the library again.
// Libraries exporting the ffmpeg_lib_* interface have their stdout and
// stderr captured; older builds exporting only <tool>_main are run
// without capture.
func Run(libPath string, tool Tool, args []string) (*Result, error) {
	libMain, main, err := entryPoints(tool)
	if err != nil {
		return nil, err
	}

	runMu.Lock()
	defer runMu.Unlock()

	res, err := runLibraryAPI(libPath, libMain, tool, args)
	if err == nil {
		return res, nil
	}
	logging.Debug("library interface unavailable, using plain entry point", "lib", libPath, "error", err)
	return runMain(libPath, main, tool, args)
}

type library struct {
	path   string
	handle uintptr
}

func open(path string) (*library, error) {
	h, err := openLibrary(path)
	if err != nil {
		return nil, errors.NewEnvironmentError(fmt.Sprintf("failed to dlopen FFmpeg library %s", path), err)
	}
	return &library{path: path, handle: h}, nil
}

func (l *library) symbol(name string) (unsafe.Pointer, error) {
	addr, err := lookupSymbol(l.handle, name)
	if err != nil || addr == 0 {
		return nil, errors.NewEnvironmentError(fmt.Sprintf("symbol %s not found", name), err)
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr)), nil
}

func (l *library) close() {
	if err := closeLibrary(l.handle); err != nil {
		logging.Warn("failed to unload FFmpeg library", "lib", l.path, "error", err)
	}
}

// libraryAPI is the ffmpeg_lib_* function set.
type libraryAPI struct {
	init, setIO, main, cleanup unsafe.Pointer
}

func (l *library) libraryAPI(mainName string) (*libraryAPI, error) {
	var api libraryAPI
	for _, s := range []struct {
		name string
		fn   *unsafe.Pointer
	}{
		{"ffmpeg_lib_init", &api.init},
		{"ffmpeg_lib_set_io", &api.setIO},
		{mainName, &api.main},
		{"ffmpeg_lib_cleanup", &api.cleanup},
	} {
		p, err := l.symbol(s.name)
		if err != nil {
			return nil, err
		}
		*s.fn = p
	}
	return &api, nil
}

func runLibraryAPI(libPath, mainName string, tool Tool, args []string) (*Result, error) {
	lib, err := open(libPath)
	if err != nil {
		return nil, err
	}
	defer lib.close()

	api, err := lib.libraryAPI(mainName)
	if err != nil {
		return nil, err
	}
	if rc := C.ffshim_call_int(api.init); rc != 0 {
		return nil, errors.NewNativeError(fmt.Sprintf("failed to initialize FFmpeg library (%d)", int(rc)), nil)
	}
	defer C.ffshim_call_void(api.cleanup)

	out, err := newCapture()
	if err != nil {
		return nil, err
	}
	defer out.remove()

	io := (*C.ffshim_io)(C.calloc(1, C.size_t(unsafe.Sizeof(C.ffshim_io{}))))
	defer C.free(unsafe.Pointer(io))
	io.stdout_fp = out.stdout
	io.stderr_fp = out.stderr
	C.ffshim_call_set_io(api.setIO, io)

	argv := newArgv(tool, args)
	defer argv.free()

	logging.Debug("running tool through library interface", "tool", tool, "args", len(args))
	rc := C.ffshim_call_lib_main(api.main, argv.argc, argv.ptr)

	C.ffshim_call_set_io(api.setIO, nil)
	stdout, stderr := out.finish()

	res := &Result{
		ExitCode: int(rc.exit_code),
		Aborted:  rc.was_aborted != 0,
		Stdout:   stdout,
		Stderr:   stderr,
	}
	if rc.error != nil {
		res.Error = C.GoString(rc.error)
	}
	return res, nil
}

func runMain(libPath, mainName string, tool Tool, args []string) (*Result, error) {
	lib, err := open(libPath)
	if err != nil {
		return nil, err
	}
	defer lib.close()

	fn, err := lib.symbol(mainName)
	if err != nil {
		return nil, err
	}

	argv := newArgv(tool, args)
	defer argv.free()

	logging.Debug("running tool entry point", "tool", tool, "args", len(args))
	rc := C.ffshim_call_main(fn, argv.argc, argv.ptr)
	return &Result{ExitCode: int(rc)}, nil
}

// LibraryVersion returns the version string of the library interface.
func LibraryVersion(libPath string) (string, error) {
	runMu.Lock()
	defer runMu.Unlock()

	lib, err := open(libPath)
	if err != nil {
		return "", err
	}
	defer lib.close()

	fn, err := lib.symbol("ffmpeg_lib_version")
	if err != nil {
		return "", err
	}
	v := C.ffshim_call_version(fn)
	if v == nil {
		return "", nil
	}
	return C.GoString(v), nil
}

// argv is a C argument vector with the tool name as argv[0].
type argv struct {
	argc C.int
	ptr  **C.char
}

func newArgv(tool Tool, args []string) *argv {
	all := append([]string{string(tool)}, args...)
	n := len(all)
	ptr := (**C.char)(C.malloc(C.size_t(n+1) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	slots := unsafe.Slice(ptr, n+1)
	for i, a := range all {
		slots[i] = C.CString(a)
	}
	slots[n] = nil
	return &argv{argc: C.int(n), ptr: ptr}
}

func (a *argv) free() {
	slots := unsafe.Slice(a.ptr, int(a.argc)+1)
	for _, s := range slots[:a.argc] {
		C.free(unsafe.Pointer(s))
	}
	C.free(unsafe.Pointer(a.ptr))
}

// capture redirects the tool's stdout and stderr into temporary files.
type capture struct {
	stdoutPath, stderrPath string
	stdout, stderr         *C.FILE
}

func newCapture() (*capture, error) {
	id := uuid.NewString()
	c := &capture{
		stdoutPath: filepath.Join(os.TempDir(), "ffshim_"+id+".stdout"),
		stderrPath: filepath.Join(os.TempDir(), "ffshim_"+id+".stderr"),
	}

	var err error
	if c.stdout, err = fopen(c.stdoutPath); err != nil {
		return nil, err
	}
	if c.stderr, err = fopen(c.stderrPath); err != nil {
		c.closeFiles()
		c.remove()
		return nil, err
	}
	return c, nil
}

func fopen(path string) (*C.FILE, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	mode := C.CString("w")
	defer C.free(unsafe.Pointer(mode))

	fp, err := C.fopen(cpath, mode)
	if fp == nil {
		return nil, errors.NewIOError(fmt.Sprintf("failed to open capture file %s", path), err)
	}
	return fp, nil
}

func (c *capture) closeFiles() {
	if c.stdout != nil {
		C.fclose(c.stdout)
		c.stdout = nil
	}
	if c.stderr != nil {
		C.fclose(c.stderr)
		c.stderr = nil
	}
}

// finish closes the capture files and returns what was written to them.
func (c *capture) finish() (string, string) {
	c.closeFiles()
	stdout, _ := os.ReadFile(c.stdoutPath)
	stderr, _ := os.ReadFile(c.stderrPath)
	return string(stdout), string(stderr)
}

func (c *capture) remove() {
	c.closeFiles()
	_ = os.Remove(c.stdoutPath)
	_ = os.Remove(c.stderrPath)
}
