// Package tui implements the interactive terminal interface for glint.
//
// The Model is a thin render layer over conversation.Controller: every
// user action is translated into a controller operation issued as a
// tea.Cmd, and controller events arrive through a listen command that
// re-issues itself after each event. The Model never touches controller
// state directly; it re-reads the transcript and session directory
// snapshots whenever an event or command result lands.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/glintlabs/glint/internal/conversation"
)

// viewMode selects which screen the Model is presenting.
type viewMode int

const (
	viewChat viewMode = iota
	viewSessions
)

const (
	// maxHistory bounds the input history ring.
	maxHistory = 100

	// ctrlCWindow is how long a second Ctrl+C still counts as "quit".
	ctrlCWindow = time.Second
)

// Model is the Bubble Tea model for the glint chat interface.
type Model struct {
	// Input handling
	input      textarea.Model
	history    []string
	historyIdx int

	// UI components
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	// Screen state
	view      viewMode
	cursor    int
	lastCtrlC time.Time

	// Query state mirrored from controller events
	processing bool
	seconds    int
	status     string

	// Dependencies
	controller *conversation.Controller
	events     <-chan conversation.Event
	ctx        context.Context
	ctxCancel  context.CancelFunc

	// Layout
	width  int
	height int

	// Rendering
	styles   Styles
	markdown *markdownRenderer
	viewBuf  strings.Builder
}

// New creates the chat interface bound to a conversation controller.
func New(ctx context.Context, ctrl *conversation.Controller) (*Model, error) {
	if ctrl == nil {
		return nil, errors.New("conversation controller is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	input := textarea.New()
	input.Placeholder = "Ask about your data..."
	input.SetHeight(1)
	input.SetWidth(120)
	input.MaxWidth = 0
	input.ShowLineNumbers = false
	input.SetStyles(textarea.Styles{
		Focused: textarea.StyleState{
			Base:        lipgloss.NewStyle(),
			Text:        lipgloss.NewStyle(),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		},
		Blurred: textarea.StyleState{
			Base:        lipgloss.NewStyle(),
			Text:        lipgloss.NewStyle(),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	// Scrolling is driven from handleKey; the default bindings would
	// steal PgUp/PgDown from the overlay.
	vp.KeyMap = viewport.KeyMap{}

	h := help.New()

	m := &Model{
		input:      input,
		historyIdx: 0,
		spinner:    sp,
		viewport:   vp,
		help:       h,
		keys:       newKeyMap(),
		view:       viewChat,
		controller: ctrl,
		events:     ctrl.Events(),
		ctx:        ctx,
		ctxCancel:  cancel,
		styles:     DefaultStyles(),
		markdown:   newMarkdownRenderer(80),
	}
	m.rebuildViewportContent()
	return m, nil
}

// Init starts cursor blink, the spinner, the controller event listener,
// and the initial session directory load.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
		m.listenEvents(),
		m.refreshDirectory(),
	)
}
