package transform

import (
	"bytes"
	"path/filepath"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// BundleScripts concatenates the files under srcDir matching pattern in
// lexical path order, separated by ";\n", minifies the result and writes
// it to dst. It returns the number of files bundled.
func BundleScripts(srcDir, pattern, dst string) (int, error) {
	files, err := Glob(srcDir, pattern)
	if err != nil {
		return 0, buildErrors.NewSourceReadError(srcDir, "js", err)
	}
	if len(files) == 0 {
		return 0, buildErrors.NewSourceNotFoundError(filepath.Join(srcDir, pattern), "js")
	}

	var bundle bytes.Buffer
	for i, rel := range files {
		data, err := readSource(filepath.Join(srcDir, filepath.FromSlash(rel)), "js")
		if err != nil {
			return 0, err
		}
		if i > 0 {
			bundle.WriteString(";\n")
		}
		bundle.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			// A trailing line comment must not swallow the separator.
			bundle.WriteByte('\n')
		}
	}

	min, err := newMinifier().Bytes(mediaJS, bundle.Bytes())
	if err != nil {
		return 0, buildErrors.NewTransformFailedError("js minifier", srcDir, err)
	}
	if err := writeOutput(dst, min, "js"); err != nil {
		return 0, err
	}
	return len(files), nil
}
