package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Teal accent for glint branding.
const glintTeal = "#00B8A9"

// GLINT ASCII art (filled block style).
var glintArt = []string{
	" ██████╗ ██╗     ██╗███╗   ██╗████████╗",
	"██╔════╝ ██║     ██║████╗  ██║╚══██╔══╝",
	"██║  ███╗██║     ██║██╔██╗ ██║   ██║   ",
	"██║   ██║██║     ██║██║╚██╗██║   ██║   ",
	"╚██████╔╝███████╗██║██║ ╚████║   ██║   ",
	" ╚═════╝ ╚══════╝╚═╝╚═╝  ╚═══╝   ╚═╝   ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner     lipgloss.Style
	User       lipgloss.Style
	Assistant  lipgloss.Style
	System     lipgloss.Style
	Tips       lipgloss.Style
	Error      lipgloss.Style
	Prompt     lipgloss.Style
	Separator  lipgloss.Style
	StatusBar  lipgloss.Style
	Title      lipgloss.Style
	Selected   lipgloss.Style
	Muted      lipgloss.Style
	Insight    lipgloss.Style
	TraceLabel lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(glintTeal)),
		User:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:       lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(glintTeal)),
		Selected:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		Muted:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Insight:    lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
		TraceLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240")),
	}
}

// RenderBanner returns the glint ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range glintArt {
		b.WriteString(s.Banner.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips are shown under the banner until the first message.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask about your data in plain language",
	"  • Ctrl+S lists sessions, Ctrl+N starts a new chat",
	"  • Ctrl+T shows the assistant's thinking trace",
	"  • Ctrl+G / Ctrl+B rate the last answer",
	"  • Ctrl+C cancels input, Ctrl+D exits",
}

// RenderWelcomeTips returns the styled getting-started tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		b.WriteString(s.Tips.Render(tip))
		b.WriteString("\n")
	}
	return b.String()
}
