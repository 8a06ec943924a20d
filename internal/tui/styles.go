package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSecondary = lipgloss.Color("#10B981")
	colorAccent    = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorMuted     = lipgloss.Color("#6B7280")
	colorFg        = lipgloss.Color("#F9FAFB")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	FocusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)

	SourceTextStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	LanguageLabelStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	TranslationStyle = lipgloss.NewStyle().
				Foreground(colorFg)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(colorError)

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(colorFg).
			Padding(0, 1)

	RecordingStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	LevelStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)
)

// RenderTitle renders the application title
func RenderTitle(title string) string {
	return TitleStyle.Render(title)
}

// RenderError renders an already labelled error line
func RenderError(msg string) string {
	return ErrorMessageStyle.Render(msg)
}

// RenderHelp renders the key help line
func RenderHelp(help string) string {
	return HelpStyle.Render(help)
}

// RenderLevel draws an input level meter of the given width
func RenderLevel(level float64, width int) string {
	if width <= 0 {
		return ""
	}
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*float64(width) + 0.5)
	return LevelStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}
