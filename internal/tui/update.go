package tui

import (
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/glintlabs/glint/internal/conversation"
)

// Update processes incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(msg.Height - 5)
		m.input.SetWidth(msg.Width - 4)
		m.help.SetWidth(msg.Width)
		m.markdown.Resize(msg.Width - 2)
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		cmd := m.applyEvent(msg.ev)
		return m, tea.Batch(m.listenEvents(), cmd)

	case eventsClosedMsg:
		return m, tea.Quit

	case queryAcceptedMsg:
		// The user turn is in the transcript; show it right away.
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case queryRejectedMsg:
		switch {
		case errors.Is(msg.err, conversation.ErrQueryInFlight):
			m.status = "still answering the previous query"
			m.input.SetValue(msg.query)
			m.input.CursorEnd()
		case errors.Is(msg.err, conversation.ErrEmptyQuery):
			// Nothing to report.
		default:
			m.status = "send failed: " + msg.err.Error()
			m.input.SetValue(msg.query)
			m.input.CursorEnd()
		}
		return m, nil

	case directoryLoadedMsg:
		if msg.err != nil {
			m.status = "session list unavailable: " + msg.err.Error()
		}
		m.clampCursor()
		return m, nil

	case sessionSelectedMsg:
		if msg.err != nil {
			m.status = "could not open session: " + msg.err.Error()
			return m, nil
		}
		m.status = ""
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.closeSessions()

	case sessionDeletedMsg:
		m.status = "session removed"
		m.clampCursor()
		m.rebuildViewportContent()
		return m, nil

	case memoryClearedMsg:
		if msg.err != nil {
			m.status = "memory not cleared: " + msg.err.Error()
			return m, nil
		}
		m.status = "assistant memory cleared"
		m.cursor = 0
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, nil

	case feedbackSentMsg:
		if msg.err != nil {
			if errors.Is(msg.err, conversation.ErrNoMessageID) {
				m.status = "no answer to rate yet"
			} else {
				m.status = "feedback failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.status = "feedback recorded"
		return m, nil
	}

	return m, nil
}

// applyEvent folds one controller event into the UI state.
func (m *Model) applyEvent(ev conversation.Event) tea.Cmd {
	switch ev := ev.(type) {
	case conversation.QueryStarted:
		m.processing = true
		m.seconds = 0
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m.spinner.Tick

	case conversation.QueryProgress:
		m.seconds = ev.Seconds

	case conversation.QueryAnswered:
		m.processing = false
		m.seconds = 0
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m.input.Focus()

	case conversation.QueryDiscarded:
		m.processing = false
		m.seconds = 0
		m.status = "dropped an answer for a conversation you closed"

	case conversation.DirectoryRefreshed:
		if ev.Err != nil {
			m.status = "session list refresh failed: " + ev.Err.Error()
		}
		m.clampCursor()
	}
	return nil
}

// clampCursor keeps the overlay selection inside the directory after
// the list shrinks or grows.
func (m *Model) clampCursor() {
	n := len(m.controller.Sessions())
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
