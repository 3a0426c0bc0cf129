package tui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/glintlabs/glint/internal/conversation"
)

// Messages produced by controller commands. Each command runs on the
// Bubble Tea command pool, so all controller calls happen off the
// update loop.

// eventMsg wraps one controller event pulled off the events channel.
type eventMsg struct {
	ev conversation.Event
}

// eventsClosedMsg means the controller shut down and no more events
// will arrive.
type eventsClosedMsg struct{}

// queryAcceptedMsg means Send queued the query and appended the user turn.
type queryAcceptedMsg struct{}

// queryRejectedMsg carries a Send failure plus the original text so the
// input can be restored.
type queryRejectedMsg struct {
	query string
	err   error
}

// directoryLoadedMsg reports a LoadSessions or LoadMoreSessions result.
type directoryLoadedMsg struct {
	err error
}

// sessionSelectedMsg reports a SelectSession result.
type sessionSelectedMsg struct {
	id  string
	err error
}

// sessionDeletedMsg confirms the local removal of a session.
type sessionDeletedMsg struct {
	id string
}

// memoryClearedMsg reports a ClearAll result.
type memoryClearedMsg struct {
	err error
}

// feedbackSentMsg confirms a rating was handed to the controller.
type feedbackSentMsg struct {
	err error
}

// listenEvents waits for the next controller event. The handler for
// eventMsg re-issues this command, so exactly one listener is pending
// at any time.
func (m *Model) listenEvents() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func (m *Model) sendQuery(query string) tea.Cmd {
	return func() tea.Msg {
		if err := m.controller.Send(m.ctx, query); err != nil {
			return queryRejectedMsg{query: query, err: err}
		}
		return queryAcceptedMsg{}
	}
}

func (m *Model) refreshDirectory() tea.Cmd {
	return func() tea.Msg {
		return directoryLoadedMsg{err: m.controller.LoadSessions(m.ctx)}
	}
}

func (m *Model) loadMoreSessions() tea.Cmd {
	return func() tea.Msg {
		return directoryLoadedMsg{err: m.controller.LoadMoreSessions(m.ctx)}
	}
}

func (m *Model) selectSession(id string) tea.Cmd {
	return func() tea.Msg {
		return sessionSelectedMsg{id: id, err: m.controller.SelectSession(m.ctx, id)}
	}
}

func (m *Model) deleteSession(id string) tea.Cmd {
	return func() tea.Msg {
		m.controller.DeleteSession(m.ctx, id)
		return sessionDeletedMsg{id: id}
	}
}

func (m *Model) clearMemory() tea.Cmd {
	return func() tea.Msg {
		return memoryClearedMsg{err: m.controller.ClearAll(m.ctx)}
	}
}

func (m *Model) submitFeedback(messageID string, positive bool) tea.Cmd {
	return func() tea.Msg {
		return feedbackSentMsg{err: m.controller.SubmitFeedback(m.ctx, messageID, positive)}
	}
}
