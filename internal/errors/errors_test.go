package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildError_ErrorIncludesContextInKeyOrder(t *testing.T) {
	err := NewSourceNotFoundError("html/index.html", "html")

	msg := err.Error()
	assert.Contains(t, msg, "SOURCE-001: Source 'html/index.html' not found")
	assert.Contains(t, msg, "Operation: html task")
	assert.Less(t, strings.Index(msg, "path:"), strings.Index(msg, "task:"))
	assert.Contains(t, msg, "Troubleshooting:")
}

func TestBuildError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewOutputWriteError("build/img/a.png", "image", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, ErrorCategoryOutput, err.Category)
}

func TestNewSourceReadError_NotExist(t *testing.T) {
	err := NewSourceReadError("data/content.js", "data", fs.ErrNotExist)

	assert.Equal(t, CodeSourceNotFound, err.Code)
	assert.Contains(t, err.Message, "not found")
}

func TestNewOutputWriteError_Troubleshooting(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		expected string
	}{
		{"permission", fmt.Errorf("open x: permission denied"), "writable"},
		{"disk full", fmt.Errorf("write x: no space left on device"), "disk space"},
		{"other", fmt.Errorf("boom"), "sitepipe build"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewOutputWriteError("build/x", "fonts", tt.cause)
			require.NotEmpty(t, err.Troubleshooting)
			assert.Contains(t, err.Troubleshooting[0], tt.expected)
		})
	}
}

func TestFormatForCLI(t *testing.T) {
	err := NewTransformFailedError("lessc", "styles/main.less", fmt.Errorf("ParseError: Unrecognised input in main.less on line 3"))

	out := FormatForCLI(fmt.Errorf("less: %w", err))
	assert.Contains(t, out, "ERROR Error [TRANSFORM-001]")
	assert.Contains(t, out, "How to resolve:")
	assert.Contains(t, out, "Tool output: ParseError: Unrecognised input")

	plain := FormatForCLI(fmt.Errorf("plain"))
	assert.Equal(t, "\nError: plain\n", plain)
}

func TestClassification(t *testing.T) {
	assert.Equal(t, "TRANSFORM-003", GetErrorCode(NewIncludeCycleError([]string{"a.html", "b.html", "a.html"})))
	assert.Equal(t, "UNKNOWN", GetErrorCode(fmt.Errorf("x")))
	assert.True(t, IsUserError(NewInvalidConfigError("server.port", "0", "out of range")))
	assert.False(t, IsUserError(NewListenError(":8080", nil)))
	assert.Equal(t, "CRITICAL", GetErrorSeverity(NewUnknownTaskError("deploy", []string{"build"})))
	assert.Equal(t, "WARNING", GetErrorSeverity(NewConfigLoadError("x.yaml", nil)))
}

func TestDisplayErrorSummary_Truncates(t *testing.T) {
	long := fmt.Errorf("%0120d", 0)
	summary := DisplayErrorSummary(long)
	assert.Len(t, summary, 100)
	assert.Equal(t, "GRAPH-001: Task graph is invalid", DisplayErrorSummary(NewInvalidGraphError(nil)))
}
