package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// DisplayError formats an error for user-friendly display
func DisplayError(err error) string {
	var buildErr *BuildError
	if stderrors.As(err, &buildErr) {
		return buildErr.Error()
	}

	return fmt.Sprintf("Error: %v", err)
}

// DisplayErrorSummary provides a brief summary of the error for logs
func DisplayErrorSummary(err error) string {
	var buildErr *BuildError
	if stderrors.As(err, &buildErr) {
		return fmt.Sprintf("%s-%s: %s", buildErr.Category, buildErr.Code, buildErr.Message)
	}

	errStr := err.Error()
	if len(errStr) > 100 {
		return errStr[:97] + "..."
	}
	return errStr
}

// FormatForCLI formats an error for command-line display with proper spacing
func FormatForCLI(err error) string {
	var buildErr *BuildError
	if !stderrors.As(err, &buildErr) {
		return fmt.Sprintf("\nError: %v\n", err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("\n%s Error [%s-%s]\n", GetErrorSeverity(buildErr), buildErr.Category, buildErr.Code))
	sb.WriteString(fmt.Sprintf("  %s\n", buildErr.Message))

	if buildErr.Operation != "" {
		sb.WriteString(fmt.Sprintf("\nFailed Operation: %s\n", buildErr.Operation))
	}

	if len(buildErr.Context) > 0 {
		sb.WriteString("\nDetails:\n")
		for _, key := range buildErr.contextKeys() {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", key, buildErr.Context[key]))
		}
	}

	if len(buildErr.Troubleshooting) > 0 {
		sb.WriteString("\nHow to resolve:\n")
		for i, step := range buildErr.Troubleshooting {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}

	// The originating tool's message, verbatim
	if buildErr.OriginalError != nil {
		sb.WriteString(fmt.Sprintf("\nTool output: %v\n", buildErr.OriginalError))
	}

	return sb.String()
}

// IsUserError determines if an error is due to user input/configuration
func IsUserError(err error) bool {
	var buildErr *BuildError
	if stderrors.As(err, &buildErr) {
		return buildErr.Category == ErrorCategoryConfiguration ||
			buildErr.Category == ErrorCategoryTransform ||
			buildErr.Category == ErrorCategorySource
	}
	return false
}

// GetErrorCode extracts the error code for reporting
func GetErrorCode(err error) string {
	var buildErr *BuildError
	if stderrors.As(err, &buildErr) {
		return fmt.Sprintf("%s-%s", buildErr.Category, buildErr.Code)
	}
	return "UNKNOWN"
}
