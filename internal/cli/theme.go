package cli

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	colorPrimary = lipgloss.Color("#8B5CF6")
	colorAccent  = lipgloss.Color("#F97316")
	colorSuccess = lipgloss.Color("#22C55E")
	colorError   = lipgloss.Color("#F43F5E")
	colorDim     = lipgloss.Color("#94A3B8")
	colorBorder  = lipgloss.Color("#334155")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	correctStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	incorrectStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	accentStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2)
)

// bar renders a fixed-width percentage bar such as "████░░░░  50%".
func bar(percent float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(float64(width) * percent / 100)
	filled = max(0, min(filled, width))

	style := correctStyle
	switch {
	case percent < 50:
		style = incorrectStyle
	case percent < 80:
		style = accentStyle
	}
	return style.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", percent)
}

// clock formats a remaining duration in whole seconds as m:ss.
func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
