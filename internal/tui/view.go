package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/glintlabs/glint/internal/conversation"
)

// View renders the complete interface.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	if m.view == viewSessions {
		m.viewBuf.WriteString(m.renderSessions())
	} else {
		m.viewBuf.WriteString(m.viewport.View())
		m.viewBuf.WriteString("\n")
		m.viewBuf.WriteString(m.renderSeparator())
		m.viewBuf.WriteString("\n")
		if m.processing {
			m.viewBuf.WriteString(m.spinner.View())
			m.viewBuf.WriteString(m.styles.System.Render(fmt.Sprintf(" thinking... (%ds)", m.seconds)))
		} else {
			m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
			m.viewBuf.WriteString(m.input.View())
		}
	}

	m.viewBuf.WriteString("\n")
	m.viewBuf.WriteString(m.renderSeparator())
	m.viewBuf.WriteString("\n")
	m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent re-renders the transcript from the controller
// snapshot. Called whenever the buffer may have changed.
func (m *Model) rebuildViewportContent() {
	msgs := m.controller.Messages()

	var b strings.Builder
	if len(msgs) == 0 {
		b.WriteString(m.styles.RenderBanner())
		b.WriteString("\n")
		b.WriteString(m.styles.RenderWelcomeTips())
	} else {
		for i, msg := range msgs {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.renderMessage(msg))
			b.WriteString("\n")
		}
	}

	if m.controller.TraceVisible() {
		if trace := m.controller.LastTrace(); len(trace) > 0 {
			b.WriteString("\n")
			b.WriteString(m.renderTrace(trace))
			b.WriteString("\n")
		}
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderMessage(msg conversation.Message) string {
	switch msg.Origin {
	case conversation.OriginUser:
		return m.styles.User.Render("You: ") + msg.Query
	case conversation.OriginAssistant:
		if msg.Failed {
			return m.styles.Error.Render("Glint: ") + msg.Answer
		}
		var b strings.Builder
		b.WriteString(m.styles.Assistant.Render("Glint: "))
		b.WriteString(m.markdown.Render(msg.Answer))
		m.renderExtras(&b, msg)
		return b.String()
	}
	return ""
}

// rowPreviewLimit caps how many data rows an answer renders inline.
const rowPreviewLimit = 5

// renderExtras appends the structured parts of an answer: chart
// summary, data preview table, insights, recommendations, contributing
// agents, and the user's rating.
func (m *Model) renderExtras(b *strings.Builder, msg conversation.Message) {
	if t := chartType(msg.Chart); t != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("[chart: " + t + "]"))
	}
	if len(msg.Rows) > 0 {
		if table := rowsMarkdown(msg.Rows); table != "" {
			b.WriteString("\n")
			b.WriteString(m.markdown.Render(table))
		}
		if len(msg.Rows) > rowPreviewLimit {
			b.WriteString("\n")
			b.WriteString(m.styles.Muted.Render(fmt.Sprintf("(%d of %d rows shown)", rowPreviewLimit, len(msg.Rows))))
		}
	}
	for _, in := range msg.Insights {
		line := "  • " + in.Title
		if in.Value != "" {
			line += ": " + in.Value
		}
		b.WriteString("\n")
		b.WriteString(m.styles.Insight.Render(line))
	}
	for _, rec := range msg.Recommendations {
		line := "  › " + rec.Title
		if rec.Priority != "" {
			line += " (" + rec.Priority + ")"
		}
		b.WriteString("\n")
		b.WriteString(m.styles.Insight.Render(line))
	}
	if len(msg.AgentsUsed) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("agents: " + strings.Join(msg.AgentsUsed, ", ")))
	}
	if msg.Rating != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("rated " + msg.Rating))
	}
}

// rowsMarkdown builds a markdown table from the first rows of an
// answer's data. Columns come from the first row's keys, sorted, so
// the layout stays stable across renders.
func rowsMarkdown(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if len(cols) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("|")
	for _, c := range cols {
		b.WriteString(" ")
		b.WriteString(tableCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n|")
	for range cols {
		b.WriteString(" --- |")
	}
	n := len(rows)
	if n > rowPreviewLimit {
		n = rowPreviewLimit
	}
	for _, row := range rows[:n] {
		b.WriteString("\n|")
		for _, c := range cols {
			b.WriteString(" ")
			if v, ok := row[c]; ok && v != nil {
				b.WriteString(tableCell(fmt.Sprintf("%v", v)))
			}
			b.WriteString(" |")
		}
	}
	return b.String()
}

// tableCell flattens a value so it cannot break the table markup.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// chartType extracts the chart kind from the raw chart payload.
func chartType(chart map[string]any) string {
	if len(chart) == 0 {
		return ""
	}
	if t, ok := chart["type"].(string); ok && t != "" {
		return t
	}
	return "unknown"
}

// renderTrace prints the last answer's thinking trace with stable key
// order, map iteration being random.
func (m *Model) renderTrace(trace map[string]any) string {
	keys := make([]string, 0, len(trace))
	for k := range trace {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(m.styles.TraceLabel.Render("thinking trace"))
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(m.styles.System.Render(fmt.Sprintf("  %s: %v", k, trace[k])))
	}
	return b.String()
}

// renderSessions draws the session directory overlay.
func (m *Model) renderSessions() string {
	sessions := m.controller.Sessions()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Sessions (%d)", len(sessions))))
	b.WriteString("\n\n")

	if len(sessions) == 0 {
		b.WriteString(m.styles.System.Render("No sessions yet. Close this list and ask something."))
		b.WriteString("\n")
	}
	for i, s := range sessions {
		title := s.DisplayTitle()
		meta := fmt.Sprintf("%d msg", s.MessageCount)
		stamp := s.LastAt
		if stamp == "" {
			stamp = s.FirstAt
		}
		if when := relativeTime(stamp); when != "" {
			meta += ", " + when
		}
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("▸ " + title))
		} else {
			b.WriteString("  " + title)
		}
		b.WriteString(m.styles.Muted.Render("  (" + meta + ")"))
		b.WriteString("\n")
	}
	if m.controller.HasMoreSessions() {
		b.WriteString(m.styles.Muted.Render("  more available, press m"))
		b.WriteString("\n")
	}
	return b.String()
}

// relativeTime turns a directory timestamp into a short age label.
// Unparseable stamps produce an empty string.
func relativeTime(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar shows a transient status line when one is set,
// otherwise the key bindings for the active screen.
func (m *Model) renderStatusBar() string {
	if m.status != "" {
		return m.styles.StatusBar.Render(m.status)
	}

	var bindings []key.Binding
	switch {
	case m.view == viewSessions:
		bindings = []key.Binding{m.keys.Select, m.keys.Delete, m.keys.Refresh, m.keys.More, m.keys.NewChat, m.keys.Close}
	case m.processing:
		bindings = []key.Binding{m.keys.Sessions, m.keys.NewChat, m.keys.Quit}
	default:
		bindings = []key.Binding{m.keys.Submit, m.keys.Sessions, m.keys.NewChat, m.keys.Trace, m.keys.RateGood, m.keys.RateBad, m.keys.Quit}
	}
	return m.help.ShortHelpView(bindings)
}
