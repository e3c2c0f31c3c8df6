package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents the category of error
type ErrorCategory string

const (
	// ErrorCategorySource represents missing or unreadable source files
	ErrorCategorySource ErrorCategory = "SOURCE"
	// ErrorCategoryTransform represents syntax or parse failures reported by a transform
	ErrorCategoryTransform ErrorCategory = "TRANSFORM"
	// ErrorCategoryOutput represents failures writing to the output tree
	ErrorCategoryOutput ErrorCategory = "OUTPUT"
	// ErrorCategoryGraph represents an invalid task graph
	ErrorCategoryGraph ErrorCategory = "GRAPH"
	// ErrorCategoryConfiguration represents configuration errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIGURATION"
	// ErrorCategoryServer represents development server failures
	ErrorCategoryServer ErrorCategory = "SERVER"
)

// BuildError represents a structured error with context and troubleshooting information
type BuildError struct {
	Category        ErrorCategory
	Code            string
	Message         string
	Operation       string
	Context         map[string]interface{}
	Troubleshooting []string
	OriginalError   error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s-%s: %s", e.Category, e.Code, e.Message))

	if e.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nOperation: %s", e.Operation))
	}

	if len(e.Context) > 0 {
		sb.WriteString("\nContext:")
		for _, key := range e.contextKeys() {
			sb.WriteString(fmt.Sprintf("\n  %s: %v", key, e.Context[key]))
		}
	}

	if len(e.Troubleshooting) > 0 {
		sb.WriteString("\nTroubleshooting:")
		for i, step := range e.Troubleshooting {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	if e.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nUnderlying error: %v", e.OriginalError))
	}

	return sb.String()
}

// Unwrap returns the original error for error chain compatibility
func (e *BuildError) Unwrap() error {
	return e.OriginalError
}

func (e *BuildError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewBuildError creates a new build error with the specified parameters
func NewBuildError(category ErrorCategory, code, message, operation string) *BuildError {
	return &BuildError{
		Category:        category,
		Code:            code,
		Message:         message,
		Operation:       operation,
		Context:         make(map[string]interface{}),
		Troubleshooting: []string{},
	}
}

// WithContext adds context information to the error
func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	e.Context[key] = value
	return e
}

// WithTroubleshooting adds troubleshooting steps to the error
func (e *BuildError) WithTroubleshooting(steps ...string) *BuildError {
	e.Troubleshooting = append(e.Troubleshooting, steps...)
	return e
}

// WithOriginalError adds the original error to the build error
func (e *BuildError) WithOriginalError(err error) *BuildError {
	e.OriginalError = err
	return e
}

// NewSourceError creates a new source-file error
func NewSourceError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategorySource, code, message, operation)
}

// NewTransformError creates a new transform error
func NewTransformError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryTransform, code, message, operation)
}

// NewOutputError creates a new output error
func NewOutputError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryOutput, code, message, operation)
}

// NewGraphError creates a new task graph error
func NewGraphError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryGraph, code, message, operation)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryConfiguration, code, message, operation)
}

// NewServerError creates a new development server error
func NewServerError(code, message, operation string) *BuildError {
	return NewBuildError(ErrorCategoryServer, code, message, operation)
}
