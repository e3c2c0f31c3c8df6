// Package transform implements the per-task file transforms: includes,
// stylesheets, scripts, images, the icon font and plain copies.
package transform

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// Glob returns the slash-separated paths of regular files under dir that
// match pattern, sorted. A missing dir yields no matches.
func Glob(dir, pattern string, exclude ...string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	out := matches[:0]
	for _, m := range matches {
		if excluded(m, exclude) {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func excluded(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func readSource(path, task string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, buildErrors.NewSourceReadError(path, task, err)
	}
	return data, nil
}

func writeOutput(path string, data []byte, task string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return buildErrors.NewOutputWriteError(path, task, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return buildErrors.NewOutputWriteError(path, task, err)
	}
	return nil
}
