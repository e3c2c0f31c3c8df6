package utils

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// MessageType selects the colour and prefix of a message box.
type MessageType int

const (
	InfoMessage MessageType = iota
	SuccessMessage
	WarningMessage
	ErrorMessage
)

var boxStyles = map[MessageType]struct {
	color  lipgloss.Color
	prefix string
}{
	InfoMessage:    {lipgloss.Color("86"), "ℹ"},
	SuccessMessage: {lipgloss.Color("42"), "✓"},
	WarningMessage: {lipgloss.Color("178"), "⚠"},
	ErrorMessage:   {lipgloss.Color("196"), "✗"},
}

// Box builds a rounded message box for end-of-run summaries.
type Box struct {
	messageType MessageType
	title       string
	content     []string
	width       int
}

// NewBox creates a box sized to the terminal.
func NewBox(messageType MessageType, title string) *Box {
	return &Box{
		messageType: messageType,
		title:       title,
		width:       terminalWidth() - 8,
	}
}

// WithWidth overrides the maximum box width.
func (b *Box) WithWidth(width int) *Box {
	b.width = width
	return b
}

// AddLine appends a line of content.
func (b *Box) AddLine(text string) *Box {
	b.content = append(b.content, text)
	return b
}

// AddBullet appends a bulleted line of content.
func (b *Box) AddBullet(text string) *Box {
	b.content = append(b.content, "• "+text)
	return b
}

// Render returns the box as a string.
func (b *Box) Render() string {
	st, ok := boxStyles[b.messageType]
	if !ok {
		st = boxStyles[InfoMessage]
	}
	border := lipgloss.NewStyle().Foreground(st.color)
	title := border.Bold(true).Render(st.prefix + " " + b.title)

	lines := append([]string{title}, b.content...)
	body := strings.Join(lines, "\n")

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(st.color).
		Padding(0, 1)
	if b.width > 4 && lipgloss.Width(body) > b.width-4 {
		style = style.Width(b.width - 2)
	}
	return style.Render(body)
}

// Info renders an informational box.
func Info(title string, lines ...string) string {
	return render(InfoMessage, title, lines)
}

// Success renders a success box.
func Success(title string, lines ...string) string {
	return render(SuccessMessage, title, lines)
}

// Warning renders a warning box.
func Warning(title string, lines ...string) string {
	return render(WarningMessage, title, lines)
}

// Error renders an error box.
func Error(title string, lines ...string) string {
	return render(ErrorMessage, title, lines)
}

func render(t MessageType, title string, lines []string) string {
	box := NewBox(t, title)
	for _, line := range lines {
		box.AddLine(line)
	}
	return box.Render()
}

// terminalWidth returns the stdout terminal width, or 80 when stdout is
// not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
