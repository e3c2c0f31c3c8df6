package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
)

// Common error codes
const (
	// Source error codes
	CodeSourceNotFound   = "001"
	CodeSourceUnreadable = "002"

	// Transform error codes
	CodeTransformFailed   = "001"
	CodeTransformTool     = "002"
	CodeTransformIncludes = "003"

	// Output error codes
	CodeOutputWrite = "001"

	// Graph error codes
	CodeGraphInvalid = "001"
	CodeGraphUnknown = "002"

	// Configuration error codes
	CodeConfigInvalid = "001"
	CodeConfigLoad    = "002"

	// Server error codes
	CodeServerListen = "001"
)

// NewSourceNotFoundError creates an error for a source file or pattern that matched nothing
func NewSourceNotFoundError(path, task string) *BuildError {
	return NewSourceError(CodeSourceNotFound,
		fmt.Sprintf("Source '%s' not found", path),
		fmt.Sprintf("%s task", task)).
		WithContext("path", path).
		WithContext("task", task).
		WithTroubleshooting(
			"Check the path is relative to the source directory",
			"Run 'sitepipe tasks' to see the input patterns of each task",
		)
}

// NewSourceReadError creates an error for a source file that exists but cannot be read
func NewSourceReadError(path, task string, originalErr error) *BuildError {
	err := NewSourceError(CodeSourceUnreadable,
		fmt.Sprintf("Failed to read source '%s'", path),
		fmt.Sprintf("%s task", task)).
		WithContext("path", path).
		WithContext("task", task).
		WithOriginalError(originalErr)

	if stderrors.Is(originalErr, fs.ErrNotExist) {
		err.Code = CodeSourceNotFound
		err.Message = fmt.Sprintf("Source '%s' not found", path)
	}
	if stderrors.Is(originalErr, fs.ErrPermission) {
		err = err.WithTroubleshooting("Check the file permissions of the source tree")
	}
	return err
}

// NewTransformFailedError creates an error for a transform that rejected its input
func NewTransformFailedError(tool, path string, originalErr error) *BuildError {
	return NewTransformError(CodeTransformFailed,
		fmt.Sprintf("%s failed on '%s'", tool, path),
		fmt.Sprintf("%s transform", tool)).
		WithContext("tool", tool).
		WithContext("path", path).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Fix the syntax error reported above and save the file again",
		)
}

// NewToolUnavailableError creates an error for an external tool that could not be started
func NewToolUnavailableError(tool string, originalErr error) *BuildError {
	return NewTransformError(CodeTransformTool,
		fmt.Sprintf("Could not run '%s'", tool),
		"External transform").
		WithContext("tool", tool).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			fmt.Sprintf("Install '%s' and make sure it is on PATH", tool),
			"Or set styles.compiler in the config file to a different command",
		)
}

// NewIncludeCycleError creates an error for HTML includes that include each other
func NewIncludeCycleError(chain []string) *BuildError {
	return NewTransformError(CodeTransformIncludes,
		fmt.Sprintf("Include cycle: %s", strings.Join(chain, " -> ")),
		"html transform").
		WithContext("chain", chain)
}

// NewOutputWriteError creates an error for a failure writing to the output tree
func NewOutputWriteError(path, task string, originalErr error) *BuildError {
	err := NewOutputError(CodeOutputWrite,
		fmt.Sprintf("Failed to write '%s'", path),
		fmt.Sprintf("%s task", task)).
		WithContext("path", path).
		WithContext("task", task).
		WithOriginalError(originalErr)

	if originalErr != nil {
		errStr := strings.ToLower(originalErr.Error())
		switch {
		case strings.Contains(errStr, "permission"):
			err = err.WithTroubleshooting("Check that the output directory is writable")
		case strings.Contains(errStr, "no space"):
			err = err.WithTroubleshooting("Free up disk space and run the task again")
		default:
			err = err.WithTroubleshooting("Remove the output directory and run 'sitepipe build' again")
		}
	}
	return err
}

// NewUnknownTaskError creates an error for a task name that is not declared
func NewUnknownTaskError(name string, known []string) *BuildError {
	return NewGraphError(CodeGraphUnknown,
		fmt.Sprintf("Task '%s' is not declared", name),
		"Task lookup").
		WithContext("task", name).
		WithTroubleshooting(
			fmt.Sprintf("Known tasks: %s", strings.Join(known, ", ")),
		)
}

// NewInvalidGraphError wraps a task graph validation failure
func NewInvalidGraphError(originalErr error) *BuildError {
	return NewGraphError(CodeGraphInvalid,
		"Task graph is invalid",
		"Task graph validation").
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Run 'sitepipe graph' to inspect the declared dependencies",
		)
}

// NewInvalidConfigError creates an error for input validation failures
func NewInvalidConfigError(field, value, reason string) *BuildError {
	return NewConfigurationError(CodeConfigInvalid,
		fmt.Sprintf("Invalid value for %s: '%s' (%s)", field, value, reason),
		"Configuration validation").
		WithContext("field", field).
		WithContext("value", value).
		WithTroubleshooting(
			"Check the config file and the command line flags",
			"Use --help to see available options",
		)
}

// NewConfigLoadError creates an error for a config file that cannot be read or parsed
func NewConfigLoadError(path string, originalErr error) *BuildError {
	return NewConfigurationError(CodeConfigLoad,
		fmt.Sprintf("Failed to load config file '%s'", path),
		"Configuration loading").
		WithContext("path", path).
		WithOriginalError(originalErr)
}

// NewListenError creates an error for a development server that cannot bind
func NewListenError(addr string, originalErr error) *BuildError {
	return NewServerError(CodeServerListen,
		fmt.Sprintf("Cannot listen on %s", addr),
		"Development server start").
		WithContext("address", addr).
		WithOriginalError(originalErr).
		WithTroubleshooting(
			"Another process may be using the port; pick another with --port",
		)
}

// GetErrorSeverity returns the severity level of an error
func GetErrorSeverity(err error) string {
	var buildErr *BuildError
	if stderrors.As(err, &buildErr) {
		switch buildErr.Category {
		case ErrorCategoryConfiguration:
			return "WARNING"
		case ErrorCategoryGraph, ErrorCategoryServer:
			return "CRITICAL"
		default:
			return "ERROR"
		}
	}
	return "ERROR"
}
