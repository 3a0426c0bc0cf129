package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/glintlabs/glint/internal/conversation"
)

// keyMap defines the key bindings surfaced in the status bar.
type keyMap struct {
	Submit      key.Binding
	Newline     key.Binding
	HistoryUp   key.Binding
	HistoryDown key.Binding
	Sessions    key.Binding
	NewChat     key.Binding
	Trace       key.Binding
	RateGood    key.Binding
	RateBad     key.Binding
	Quit        key.Binding

	// Sessions overlay
	Select  key.Binding
	Delete  key.Binding
	More    key.Binding
	Refresh key.Binding
	Close   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("shift+enter"),
			key.WithHelp("shift+enter", "newline"),
		),
		HistoryUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "older"),
		),
		HistoryDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "newer"),
		),
		Sessions: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "sessions"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		Trace: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "trace"),
		),
		RateGood: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "rate up"),
		),
		RateBad: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "rate down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "quit"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "backspace"),
			key.WithHelp("d", "delete"),
		),
		More: key.NewBinding(
			key.WithKeys("m", "pgdown"),
			key.WithHelp("m", "more"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

// handleKey routes key presses. Ctrl combinations work everywhere;
// the remaining keys depend on which screen is active.
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.quit()
		case 's':
			if m.view == viewSessions {
				return m, m.closeSessions()
			}
			m.openSessions()
			return m, nil
		case 'n':
			return m.handleNewChat()
		case 't':
			m.controller.ToggleTrace()
			m.rebuildViewportContent()
			m.viewport.GotoBottom()
			return m, nil
		case 'g':
			return m.handleFeedback(true)
		case 'b':
			return m.handleFeedback(false)
		}
	}

	if m.view == viewSessions {
		return m.handleSessionsKey(k)
	}

	switch k.Code {
	case tea.KeyEnter:
		if k.Mod&tea.ModShift == 0 {
			return m.handleSubmit()
		}
		// Shift+Enter falls through to the textarea for a newline.
	case tea.KeyUp:
		if m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}
	case tea.KeyDown:
		if m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}
	case tea.KeyEscape:
		m.status = ""
		return m, nil
	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleCtrlC implements the double-press quit. A single press closes
// the overlay or clears the input, whichever applies.
func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()
	if now.Sub(m.lastCtrlC) < ctrlCWindow {
		return m, m.quit()
	}
	m.lastCtrlC = now

	if m.view == viewSessions {
		return m, m.closeSessions()
	}
	if m.input.Value() != "" {
		m.input.Reset()
		m.historyIdx = len(m.history)
		return m, nil
	}
	m.status = "press Ctrl+C again to quit"
	return m, nil
}

// handleSubmit sends the input as a query, or runs it as a slash
// command when it starts with "/".
func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}
	if strings.HasPrefix(query, "/") {
		return m.handleSlashCommand(query)
	}

	m.history = append(m.history, query)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)

	m.input.Reset()
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, m.sendQuery(query))
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	switch cmd {
	case "/help":
		m.status = "commands: /new /sessions /trace /clear /quit"
		return m, nil
	case "/new":
		return m.handleNewChat()
	case "/sessions":
		m.openSessions()
		return m, nil
	case "/trace":
		m.controller.ToggleTrace()
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, nil
	case "/clear":
		m.status = "clearing assistant memory..."
		return m, m.clearMemory()
	case "/exit", "/quit":
		return m, m.quit()
	default:
		m.status = "unknown command: " + cmd + " (try /help)"
		return m, nil
	}
}

// navigateHistory moves through previously sent queries. Direction -1
// goes to older entries, +1 toward the blank prompt.
func (m *Model) navigateHistory(direction int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	idx := m.historyIdx + direction
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.history) {
		idx = len(m.history)
	}
	if idx == m.historyIdx {
		return m, nil
	}
	m.historyIdx = idx

	if idx == len(m.history) {
		m.input.Reset()
		return m, nil
	}
	m.input.SetValue(m.history[idx])
	m.input.CursorEnd()
	return m, nil
}

// handleSessionsKey drives the sessions overlay.
func (m *Model) handleSessionsKey(k tea.Key) (tea.Model, tea.Cmd) {
	sessions := m.controller.Sessions()
	switch k.Code {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(sessions)-1 {
			m.cursor++
		} else if m.controller.HasMoreSessions() {
			m.status = "loading more sessions..."
			return m, m.loadMoreSessions()
		}
	case tea.KeyEnter:
		if m.cursor < len(sessions) {
			m.status = "loading conversation..."
			return m, m.selectSession(sessions[m.cursor].ID)
		}
	case 'd', tea.KeyBackspace:
		if m.cursor < len(sessions) {
			return m, m.deleteSession(sessions[m.cursor].ID)
		}
	case 'n':
		return m.handleNewChat()
	case 'r':
		m.status = "refreshing sessions..."
		return m, m.refreshDirectory()
	case 'm', tea.KeyPgDown:
		if m.controller.HasMoreSessions() {
			m.status = "loading more sessions..."
			return m, m.loadMoreSessions()
		}
	case tea.KeyEscape:
		return m, m.closeSessions()
	}
	return m, nil
}

func (m *Model) openSessions() {
	m.view = viewSessions
	m.cursor = 0
	m.status = ""
	m.input.Blur()
}

func (m *Model) closeSessions() tea.Cmd {
	m.view = viewChat
	m.status = ""
	return m.input.Focus()
}

// handleNewChat starts a fresh local conversation.
func (m *Model) handleNewChat() (tea.Model, tea.Cmd) {
	m.controller.NewChat()
	m.view = viewChat
	m.cursor = 0
	m.status = "started a new chat"
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, m.input.Focus()
}

// handleFeedback rates the most recent assistant answer that carries a
// server message id.
func (m *Model) handleFeedback(positive bool) (tea.Model, tea.Cmd) {
	msgs := m.controller.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Origin == conversation.OriginAssistant && msgs[i].ID != "" {
			return m, m.submitFeedback(msgs[i].ID, positive)
		}
	}
	m.status = "no answer to rate yet"
	return m, nil
}

// quit cancels in-flight work and stops the program.
func (m *Model) quit() tea.Cmd {
	m.ctxCancel()
	return tea.Quit
}
