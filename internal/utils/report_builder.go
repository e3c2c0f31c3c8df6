package utils

import "strings"

// ReportBuilder provides a fluent interface for building plain-text reports
type ReportBuilder struct {
	lines []string
}

// NewReportBuilder creates a new report builder
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Section adds a section header preceded by a blank line
func (rb *ReportBuilder) Section(title string) *ReportBuilder {
	rb.lines = append(rb.lines, "", title)
	return rb
}

// AddBullet adds an indented bulleted line
func (rb *ReportBuilder) AddBullet(text string) *ReportBuilder {
	rb.lines = append(rb.lines, "  - "+text)
	return rb
}

// Build returns the built report as a string
func (rb *ReportBuilder) Build() string {
	return strings.Join(rb.lines, "\n")
}
