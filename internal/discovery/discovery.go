// Package discovery finds audio files for batch commands.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tubetape/ffshim/internal/errors"
	"github.com/tubetape/ffshim/internal/logging"
	"github.com/tubetape/ffshim/internal/util"
)

// Result lists the audio files found in a directory.
type Result struct {
	Files []string
	// SkippedCount counts regular files without a known audio extension.
	SkippedCount int
}

// FindAudioFiles lists the audio files directly inside dir, sorted by name
// case-insensitively. Hidden files and subdirectories are skipped.
func FindAudioFiles(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("directory does not exist: %s", dir), err)
	}
	if !info.IsDir() {
		return nil, errors.NewIOError(fmt.Sprintf("%s is not a directory", dir), nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("cannot read directory %s", dir), err)
	}

	result := &Result{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		if util.IsAudioFile(path) {
			result.Files = append(result.Files, path)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, errors.NewInputError(fmt.Sprintf("no audio files found in %s", dir), nil)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})

	logDiscovered(result)
	return result, nil
}

// logDiscovered logs the first 5 files plus a count.
func logDiscovered(r *Result) {
	logging.Info("found audio files", "count", len(r.Files), "skipped", r.SkippedCount)
	for _, f := range r.Files[:min(5, len(r.Files))] {
		logging.Debug("discovered", "file", filepath.Base(f))
	}
	if len(r.Files) > 5 {
		logging.Debug("discovered more", "remaining", len(r.Files)-5)
	}
}
