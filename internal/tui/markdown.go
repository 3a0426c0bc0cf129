package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer wraps a glamour renderer that is rebuilt when the
// terminal width changes. A nil renderer means glamour could not be
// initialized; Render then passes text through unchanged.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

func newMarkdownRenderer(width int) *markdownRenderer {
	m := &markdownRenderer{}
	m.rebuild(width)
	return m
}

func (m *markdownRenderer) rebuild(width int) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		m.width = width
		return
	}
	m.renderer = r
	m.width = width
}

// Resize recreates the renderer if the width actually changed.
func (m *markdownRenderer) Resize(width int) {
	if width == m.width {
		return
	}
	m.rebuild(width)
}

// Render converts markdown to styled terminal output. On any failure
// the original text is returned so the answer is never lost.
func (m *markdownRenderer) Render(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSuffix(out, "\n")
}
