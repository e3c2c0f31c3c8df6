package transform

import (
	"io"
	"os"
	"path/filepath"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// Copy copies every file under srcDir matching pattern to the same
// relative path under dstDir, byte for byte. It returns the number of
// files copied.
func Copy(task, srcDir, pattern, dstDir string, exclude ...string) (int, error) {
	files, err := Glob(srcDir, pattern, exclude...)
	if err != nil {
		return 0, buildErrors.NewSourceReadError(srcDir, task, err)
	}
	for _, rel := range files {
		src := filepath.Join(srcDir, filepath.FromSlash(rel))
		dst := filepath.Join(dstDir, filepath.FromSlash(rel))
		if err := copyFile(task, src, dst); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

func copyFile(task, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return buildErrors.NewSourceReadError(src, task, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return buildErrors.NewOutputWriteError(dst, task, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return buildErrors.NewOutputWriteError(dst, task, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return buildErrors.NewOutputWriteError(dst, task, err)
	}
	if err := out.Close(); err != nil {
		return buildErrors.NewOutputWriteError(dst, task, err)
	}
	return nil
}
