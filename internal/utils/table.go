package utils

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableFormatter renders rows as a box-drawn table for CLI output.
// Column widths follow the widest cell as displayed, so styled or
// multi-byte cells line up.
type TableFormatter struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTableFormatter creates a table with the given headers.
func NewTableFormatter(headers ...string) *TableFormatter {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &TableFormatter{
		headers: headers,
		widths:  widths,
	}
}

// AddRow appends a row. Short rows are padded with empty cells and
// extra cells are dropped.
func (t *TableFormatter) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
	for i, cell := range row {
		if w := lipgloss.Width(cell); w > t.widths[i] {
			t.widths[i] = w
		}
	}
}

// Len returns the number of rows.
func (t *TableFormatter) Len() int {
	return len(t.rows)
}

// String renders the table.
func (t *TableFormatter) String() string {
	var sb strings.Builder

	t.writeBorder(&sb, "┌", "┬", "┐")
	t.writeRow(&sb, t.headers)
	t.writeBorder(&sb, "├", "┼", "┤")
	for _, row := range t.rows {
		t.writeRow(&sb, row)
	}
	t.writeBorder(&sb, "└", "┴", "┘")

	return sb.String()
}

func (t *TableFormatter) writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("│")
	for i, cell := range cells {
		sb.WriteString(" ")
		sb.WriteString(cell)
		sb.WriteString(strings.Repeat(" ", t.widths[i]-lipgloss.Width(cell)))
		sb.WriteString(" │")
	}
	sb.WriteString("\n")
}

func (t *TableFormatter) writeBorder(sb *strings.Builder, left, middle, right string) {
	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+2))
		if i < len(t.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right)
	sb.WriteString("\n")
}
