package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// Compiler turns a stylesheet entry point into CSS.
type Compiler interface {
	Compile(ctx context.Context, entry string) ([]byte, error)
}

// ExecCompiler runs an external compiler as Command followed by the entry
// path. Standard output is the CSS; standard error carries the
// compiler's diagnostics.
type ExecCompiler struct {
	Command []string
}

// Compile runs the compiler. It blocks until the process exits or ctx is
// cancelled.
func (c ExecCompiler) Compile(ctx context.Context, entry string) ([]byte, error) {
	if len(c.Command) == 0 {
		return nil, buildErrors.NewToolUnavailableError("less compiler", fmt.Errorf("no command configured"))
	}
	tool := c.Command[0]
	args := append(append([]string{}, c.Command[1:]...), entry)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, buildErrors.NewToolUnavailableError(tool, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, buildErrors.NewTransformFailedError(tool, entry, errors.New(msg))
	}
	return stdout.Bytes(), nil
}

// CompileStylesheet compiles entry, minifies the CSS and writes it to dst.
func CompileStylesheet(ctx context.Context, compiler Compiler, entry, dst string) error {
	if _, err := readSource(entry, "less"); err != nil {
		return err
	}
	raw, err := compiler.Compile(ctx, entry)
	if err != nil {
		return err
	}

	min, err := newMinifier().Bytes(mediaCSS, raw)
	if err != nil {
		return buildErrors.NewTransformFailedError("css minifier", entry, err)
	}
	return writeOutput(dst, min, "less")
}
