package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glintlabs/glint/internal/api"
)

// Sentinel errors for rejected operations.
var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrQueryInFlight = errors.New("a query is already in flight")
	ErrNoMessageID   = errors.New("message has no server id")
	ErrClosed        = errors.New("controller is closed")
)

const (
	defaultHistoryLimit     = 10
	defaultProgressInterval = 100 * time.Millisecond
)

// Backend is the slice of the REST client the controller consumes.
// *api.Client satisfies it.
type Backend interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	Sessions(ctx context.Context, limit, offset int) ([]json.RawMessage, error)
	SessionMessages(ctx context.Context, id string) ([]json.RawMessage, error)
	DeleteSession(ctx context.Context, id string) error
	ClearMemory(ctx context.Context) error
	SubmitFeedback(ctx context.Context, req api.FeedbackRequest) error
}

// Config configures a Controller.
type Config struct {
	// Backend performs the remote calls. Required.
	Backend Backend

	// Logger records ingestion drops and swallowed background failures.
	// Required.
	Logger *slog.Logger

	// HistoryLimit is the session directory page size. Default: 10.
	HistoryLimit int

	// ProgressInterval is the progress tick period. Default: 100ms.
	ProgressInterval time.Duration

	// ShowTrace is the initial trace visibility.
	ShowTrace bool
}

func (c *Config) validate() error {
	if c.Backend == nil {
		return errors.New("backend is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = defaultProgressInterval
	}
	return nil
}

// Controller owns the conversation state: the session directory, the
// transcript buffer of the active session, the dispatch state machine
// and the progress timer. The rendering layer calls operations and reads
// snapshots; it never mutates state directly. Safe for concurrent use.
type Controller struct {
	backend  Backend
	logger   *slog.Logger
	interval time.Duration

	mu                sync.Mutex
	dir               *directory
	buffer            []Message
	active            string
	lastTrace         map[string]any
	showTrace         bool
	processing        bool
	loading           bool
	dirLoading        bool
	transcriptRejects map[string]int
	closed            bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a Controller. It performs no I/O; call LoadSessions to
// populate the directory.
func New(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation config: %w", err)
	}
	return &Controller{
		backend:           cfg.Backend,
		logger:            cfg.Logger,
		interval:          cfg.ProgressInterval,
		dir:               newDirectory(cfg.HistoryLimit),
		showTrace:         cfg.ShowTrace,
		transcriptRejects: make(map[string]int),
		events:            make(chan Event, 64),
		done:              make(chan struct{}),
	}, nil
}

// Send dispatches one query. The user turn lands in the buffer before
// any network I/O; the dispatch itself runs in the background and its
// outcome arrives as a QueryAnswered or QueryDiscarded event. A second
// Send while one is in flight returns ErrQueryInFlight rather than
// queueing.
func (c *Controller) Send(ctx context.Context, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return ErrEmptyQuery
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.processing {
		c.mu.Unlock()
		return ErrQueryInFlight
	}
	c.processing = true
	issued := c.active
	c.buffer = append(c.buffer, UserMessage(query))
	c.wg.Add(2)
	c.mu.Unlock()

	stop := make(chan struct{})
	go c.tickProgress(time.Now(), stop)
	go c.dispatch(ctx, issued, query, stop)
	return nil
}

// dispatch runs the remote call and resolves the dispatch state machine.
// The processing flag drops and the timer stops before the stale check,
// so even a discarded result frees the dispatcher for the next query.
func (c *Controller) dispatch(ctx context.Context, issued, query string, stop chan struct{}) {
	defer c.wg.Done()
	c.emit(QueryStarted{SessionID: issued})

	resp, err := c.backend.Chat(ctx, api.ChatRequest{Query: query, ConversationID: issued})

	c.mu.Lock()
	c.processing = false
	close(stop)

	if c.active != issued {
		c.mu.Unlock()
		c.logger.Info("dropping answer for a session no longer active", "issued", issued)
		c.emit(QueryDiscarded{SessionID: issued})
		return
	}

	if err != nil {
		msg := failedTurn(query)
		c.buffer = append(c.buffer, msg)
		c.mu.Unlock()
		c.logger.Warn("chat dispatch failed", "error", err)
		c.emit(QueryAnswered{Message: msg, SessionID: issued})
		return
	}

	msg := AnswerMessage(query, resp)
	c.buffer = append(c.buffer, msg)
	if sid := resp.Session(); sid != "" {
		c.active = sid
	}
	if len(msg.Trace) > 0 {
		c.lastTrace = msg.Trace
	}
	active := c.active
	closed := c.closed
	if !closed {
		c.wg.Add(1)
	}
	c.mu.Unlock()

	c.emit(QueryAnswered{Message: msg, SessionID: active})
	if closed {
		return
	}

	// Fire-and-forget directory re-sync; its outcome is reported as an
	// event, never awaited.
	go func() {
		defer c.wg.Done()
		c.emit(DirectoryRefreshed{Err: c.LoadSessions(ctx)})
	}()
}

// tickProgress emits the elapsed whole seconds every interval until the
// dispatch that started it completes.
func (c *Controller) tickProgress(start time.Time, stop <-chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.emit(QueryProgress{Seconds: int(time.Since(start) / time.Second)})
		}
	}
}

// emit delivers an event without ever blocking shutdown.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// LoadSessions fetches the first directory page and replaces the cached
// entries. It doubles as the reconciliation hook after optimistic local
// mutations. A call while another directory fetch is in flight is a
// no-op.
func (c *Controller) LoadSessions(ctx context.Context) error {
	c.mu.Lock()
	if c.dirLoading {
		c.mu.Unlock()
		return nil
	}
	c.dirLoading = true
	c.dir.offset = 0
	c.dir.hasMore = true
	limit := c.dir.pageSize
	c.mu.Unlock()

	raw, err := c.backend.Sessions(ctx, limit, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirLoading = false
	if err != nil {
		return fmt.Errorf("refreshing sessions: %w", err)
	}
	if dropped := c.dir.replaceAll(raw); dropped > 0 {
		c.logger.Warn("dropped unusable session entries", "count", dropped)
	}
	return nil
}

// LoadMoreSessions fetches the next directory page and appends it. It is
// a no-op when the directory is exhausted or a directory fetch is
// already in flight, so rapid repeated calls issue at most one request.
func (c *Controller) LoadMoreSessions(ctx context.Context) error {
	c.mu.Lock()
	if c.dirLoading || !c.dir.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.dirLoading = true
	limit := c.dir.pageSize
	offset := c.dir.offset
	c.mu.Unlock()

	raw, err := c.backend.Sessions(ctx, limit, offset)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirLoading = false
	if err != nil {
		return fmt.Errorf("loading more sessions: %w", err)
	}
	if dropped := c.dir.appendPage(raw); dropped > 0 {
		c.logger.Warn("dropped unusable session entries", "count", dropped)
	}
	return nil
}

// SelectSession makes id the active session and loads its stored
// transcript into the buffer. Blank ids are ignored. The active id is
// not rolled back on failure; the previous transcript stays on screen
// and the error is returned for a one-shot notification.
func (c *Controller) SelectSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}

	c.mu.Lock()
	c.active = id
	c.loading = true
	c.mu.Unlock()

	raw, err := c.backend.SessionMessages(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		c.logger.Warn("transcript load failed", "session", id, "error", err)
		return fmt.Errorf("loading session %s: %w", id, err)
	}
	if c.active != id {
		// The user moved on while this transcript was in flight.
		return nil
	}
	msgs, rejected := normalizeTranscript(raw)
	total := 0
	for reason, n := range rejected {
		c.transcriptRejects[reason] += n
		total += n
	}
	if total > 0 {
		c.logger.Warn("dropped unusable transcript entries", "session", id, "count", total)
	}
	c.buffer = msgs
	return nil
}

// NewChat starts a fresh local conversation: a time-based id, a
// placeholder directory entry at the top, an empty buffer and a cleared
// trace. No network call is made; the local id is replaced by the
// server's on the first answer.
func (c *Controller) NewChat() string {
	now := time.Now()
	id := fmt.Sprintf("session_%d", now.UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir.insertFront(SessionSummary{
		ID:      id,
		Title:   "New Chat",
		FirstAt: now.UTC().Format(time.RFC3339),
	})
	c.active = id
	c.buffer = nil
	c.lastTrace = nil
	return id
}

// DeleteSession removes the session locally first, then tells the server
// in the background. A server failure is logged and swallowed; the local
// removal stands either way. Deleting the active session starts a new
// chat.
func (c *Controller) DeleteSession(ctx context.Context, id string) {
	if id == "" {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.dir.remove(id)
	wasActive := c.active == id
	c.wg.Add(1)
	c.mu.Unlock()

	if wasActive {
		c.NewChat()
	}

	go func() {
		defer c.wg.Done()
		if err := c.backend.DeleteSession(ctx, id); err != nil {
			c.logger.Warn("server delete failed, keeping local removal", "session", id, "error", err)
		}
	}()
}

// ClearAll wipes every conversation. The server call runs first; when it
// fails the local wipe is skipped so the client still shows what the
// server holds.
func (c *Controller) ClearAll(ctx context.Context) error {
	if err := c.backend.ClearMemory(ctx); err != nil {
		return fmt.Errorf("clearing memory: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir.reset()
	c.buffer = nil
	c.active = ""
	c.lastTrace = nil
	return nil
}

// SubmitFeedback rates an assistant turn in the background. The rating
// is attached to the buffered message once the server accepts it; a
// server rejection is logged, never surfaced.
func (c *Controller) SubmitFeedback(ctx context.Context, messageID string, positive bool) error {
	if messageID == "" {
		return ErrNoMessageID
	}

	rating := api.RatingNegative
	if positive {
		rating = api.RatingPositive
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		err := c.backend.SubmitFeedback(ctx, api.FeedbackRequest{MessageID: messageID, Rating: rating})
		if err != nil {
			c.logger.Warn("feedback not recorded", "message_id", messageID, "error", err)
			return
		}
		c.mu.Lock()
		for i := range c.buffer {
			if c.buffer[i].ID == messageID {
				c.buffer[i].Rating = rating
				break
			}
		}
		c.mu.Unlock()
	}()
	return nil
}

// ToggleTrace flips trace visibility and returns the new value.
func (c *Controller) ToggleTrace() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showTrace = !c.showTrace
	return c.showTrace
}

// LastTrace returns the thinking trace of the most recent answered
// dispatch, or nil when none arrived since the last chat switch.
func (c *Controller) LastTrace() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyObject(c.lastTrace)
}

// Messages returns a copy of the active transcript buffer.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// Sessions returns a copy of the cached directory entries.
func (c *Controller) Sessions() []SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dir.snapshot()
}

// ActiveSession returns the active session id. It is empty on a freshly
// created controller and right after ClearAll.
func (c *Controller) ActiveSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Processing reports whether a query dispatch is in flight.
func (c *Controller) Processing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// Loading reports whether a transcript fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// HasMoreSessions reports whether another directory page may exist.
func (c *Controller) HasMoreSessions() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dir.hasMore
}

// HistoryLimit returns the directory page size.
func (c *Controller) HistoryLimit() int {
	return c.dir.pageSize
}

// TraceVisible reports whether thinking traces should be rendered.
func (c *Controller) TraceVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showTrace
}

// SessionRejections returns the cumulative directory ingestion drops,
// keyed by reason.
func (c *Controller) SessionRejections() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyCounts(c.dir.rejected)
}

// TranscriptRejections returns the cumulative transcript ingestion
// drops, keyed by reason.
func (c *Controller) TranscriptRejections() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyCounts(c.transcriptRejects)
}

// Events returns the notification channel. It closes after Close once
// all background work has drained.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Close stops the progress timer, waits for in-flight background work
// and closes the event channel. The controller must not be used
// afterwards. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	close(c.events)
}

func copyObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
