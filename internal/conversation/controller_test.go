package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glintlabs/glint/internal/api"
	"github.com/glintlabs/glint/internal/log"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubBackend implements Backend with overridable calls. Unset calls
// succeed with empty results.
type stubBackend struct {
	chatFn     func(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	sessionsFn func(ctx context.Context, limit, offset int) ([]json.RawMessage, error)
	messagesFn func(ctx context.Context, id string) ([]json.RawMessage, error)
	deleteFn   func(ctx context.Context, id string) error
	clearFn    func(ctx context.Context) error
	feedbackFn func(ctx context.Context, req api.FeedbackRequest) error
}

func (s *stubBackend) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	if s.chatFn == nil {
		return &api.ChatResponse{}, nil
	}
	return s.chatFn(ctx, req)
}

func (s *stubBackend) Sessions(ctx context.Context, limit, offset int) ([]json.RawMessage, error) {
	if s.sessionsFn == nil {
		return nil, nil
	}
	return s.sessionsFn(ctx, limit, offset)
}

func (s *stubBackend) SessionMessages(ctx context.Context, id string) ([]json.RawMessage, error) {
	if s.messagesFn == nil {
		return nil, nil
	}
	return s.messagesFn(ctx, id)
}

func (s *stubBackend) DeleteSession(ctx context.Context, id string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, id)
}

func (s *stubBackend) ClearMemory(ctx context.Context) error {
	if s.clearFn == nil {
		return nil
	}
	return s.clearFn(ctx)
}

func (s *stubBackend) SubmitFeedback(ctx context.Context, req api.FeedbackRequest) error {
	if s.feedbackFn == nil {
		return nil
	}
	return s.feedbackFn(ctx, req)
}

func newController(t *testing.T, backend Backend, opts ...func(*Config)) *Controller {
	t.Helper()
	cfg := Config{
		Backend: backend,
		Logger:  log.NewNop(),
		// Long enough that no progress tick fires unless a test
		// shrinks it.
		ProgressInterval: time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func nextEvent(t *testing.T, c *Controller) Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatal("event channel closed early")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return nil
}

func waitAnswered(t *testing.T, c *Controller) QueryAnswered {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatal("event channel closed before QueryAnswered")
			}
			if answered, isAnswer := ev.(QueryAnswered); isAnswer {
				return answered
			}
		case <-deadline:
			t.Fatal("timed out waiting for QueryAnswered")
		}
	}
}

func waitDiscarded(t *testing.T, c *Controller) QueryDiscarded {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatal("event channel closed before QueryDiscarded")
			}
			if discarded, isDiscard := ev.(QueryDiscarded); isDiscard {
				return discarded
			}
		case <-deadline:
			t.Fatal("timed out waiting for QueryDiscarded")
		}
	}
}

func waitRefreshed(t *testing.T, c *Controller) DirectoryRefreshed {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatal("event channel closed before DirectoryRefreshed")
			}
			if refreshed, isRefresh := ev.(DirectoryRefreshed); isRefresh {
				return refreshed
			}
		case <-deadline:
			t.Fatal("timed out waiting for DirectoryRefreshed")
		}
	}
}

func sessionList(ids ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, json.RawMessage(`{"session_id": "`+id+`"}`))
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Logger: log.NewNop()}); err == nil {
		t.Error("New() without backend: error = nil, want error")
	}
	if _, err := New(Config{Backend: &stubBackend{}}); err == nil {
		t.Error("New() without logger: error = nil, want error")
	}
}

func TestSend_AppendsUserTurnThenAnswer(t *testing.T) {
	var refreshes int32
	var gotReq api.ChatRequest
	backend := &stubBackend{
		chatFn: func(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
			gotReq = req
			return chatResponse(t, `{
				"answer": "Sales are up.",
				"session_id": "srv-1",
				"thinking_trace": {"steps": 2},
				"metadata": {"message_id": "m-1"}
			}`), nil
		},
		sessionsFn: func(_ context.Context, limit, offset int) ([]json.RawMessage, error) {
			atomic.AddInt32(&refreshes, 1)
			return sessionList("srv-1"), nil
		},
	}
	c := newController(t, backend)

	if err := c.Send(context.Background(), "  how are sales  "); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if _, ok := nextEvent(t, c).(QueryStarted); !ok {
		t.Fatal("first event is not QueryStarted")
	}
	answered := waitAnswered(t, c)
	if answered.Message.Failed {
		t.Error("answered.Message.Failed = true, want false")
	}
	if answered.SessionID != "srv-1" {
		t.Errorf("answered.SessionID = %q, want srv-1", answered.SessionID)
	}

	if gotReq.ConversationID != "" {
		t.Errorf("ConversationID = %q, want empty for a fresh conversation", gotReq.ConversationID)
	}
	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Origin != OriginUser || msgs[0].Query != "how are sales" {
		t.Errorf("msgs[0] = %+v, want trimmed user turn", msgs[0])
	}
	if msgs[1].Origin != OriginAssistant || msgs[1].Answer != "Sales are up." {
		t.Errorf("msgs[1] = %+v, want assistant turn", msgs[1])
	}
	if c.Processing() {
		t.Error("Processing() = true after resolution")
	}
	if c.ActiveSession() != "srv-1" {
		t.Errorf("ActiveSession() = %q, want adopted srv-1", c.ActiveSession())
	}
	if c.LastTrace() == nil {
		t.Error("LastTrace() = nil, want the answer's trace")
	}

	if refreshed := waitRefreshed(t, c); refreshed.Err != nil {
		t.Errorf("DirectoryRefreshed.Err = %v", refreshed.Err)
	}
	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Errorf("directory refreshes = %d, want 1", got)
	}
}

func TestSend_EmptyQueryRejected(t *testing.T) {
	c := newController(t, &stubBackend{})

	if err := c.Send(context.Background(), "   \n\t"); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Send() error = %v, want ErrEmptyQuery", err)
	}
	if got := len(c.Messages()); got != 0 {
		t.Errorf("len(Messages()) = %d, want 0", got)
	}
}

func TestSend_RejectsSecondWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	backend := &stubBackend{
		chatFn: func(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				<-release
			}
			return chatResponse(t, `{"answer": "ok"}`), nil
		},
	}
	c := newController(t, backend)

	if err := c.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send(first) error = %v", err)
	}
	if err := c.Send(context.Background(), "second"); !errors.Is(err, ErrQueryInFlight) {
		t.Fatalf("Send(second) error = %v, want ErrQueryInFlight", err)
	}

	close(release)
	waitAnswered(t, c)

	if err := c.Send(context.Background(), "third"); err != nil {
		t.Fatalf("Send(third) after resolution error = %v", err)
	}
	waitAnswered(t, c)

	msgs := c.Messages()
	if len(msgs) != 4 {
		t.Fatalf("len(Messages()) = %d, want 4 (the rejected send leaves no turn)", len(msgs))
	}
	for _, m := range msgs {
		if m.Query == "second" {
			t.Error("rejected query appeared in the buffer")
		}
	}
}

func TestSend_TransportErrorAppendsFailedTurn(t *testing.T) {
	var refreshes int32
	backend := &stubBackend{
		chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
			return nil, errors.New("connection refused")
		},
		sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
			atomic.AddInt32(&refreshes, 1)
			return nil, nil
		},
	}
	c := newController(t, backend)

	if err := c.Send(context.Background(), "doomed"); err != nil {
		t.Fatalf("Send() error = %v, want nil (failure surfaces as a turn)", err)
	}
	answered := waitAnswered(t, c)
	if !answered.Message.Failed {
		t.Error("answered.Message.Failed = false, want true")
	}

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if !msgs[1].Failed || msgs[1].Answer == "" {
		t.Errorf("msgs[1] = %+v, want failed turn with explanatory text", msgs[1])
	}
	if c.Processing() {
		t.Error("Processing() = true after failure")
	}

	c.Close()
	if got := atomic.LoadInt32(&refreshes); got != 0 {
		t.Errorf("directory refreshes = %d, want 0 after transport failure", got)
	}
}

func TestSend_ServerFlaggedFailureStillRefreshes(t *testing.T) {
	var refreshes int32
	backend := &stubBackend{
		chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
			return chatResponse(t, `{"error": true, "answer": "the SQL agent is down"}`), nil
		},
		sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
			atomic.AddInt32(&refreshes, 1)
			return nil, nil
		},
	}
	c := newController(t, backend)

	if err := c.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	answered := waitAnswered(t, c)
	if !answered.Message.Failed {
		t.Error("answered.Message.Failed = false, want true")
	}
	if answered.Message.Answer != "the SQL agent is down" {
		t.Errorf("Answer = %q", answered.Message.Answer)
	}
	waitRefreshed(t, c)

	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Errorf("directory refreshes = %d, want 1 (HTTP success path)", got)
	}
}

func TestSend_StaleAnswerDiscarded(t *testing.T) {
	release := make(chan struct{})
	var refreshes int32
	backend := &stubBackend{
		chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
			<-release
			return chatResponse(t, `{"answer": "late", "session_id": "srv-1"}`), nil
		},
		sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
			atomic.AddInt32(&refreshes, 1)
			return nil, nil
		},
	}
	c := newController(t, backend)

	first := c.NewChat()
	if err := c.Send(context.Background(), "slow question"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	started, ok := nextEvent(t, c).(QueryStarted)
	if !ok {
		t.Fatal("first event is not QueryStarted")
	}
	if started.SessionID != first {
		t.Errorf("started.SessionID = %q, want %q", started.SessionID, first)
	}

	second := c.NewChat()
	close(release)

	discarded := waitDiscarded(t, c)
	if discarded.SessionID != first {
		t.Errorf("discarded.SessionID = %q, want %q", discarded.SessionID, first)
	}
	if got := len(c.Messages()); got != 0 {
		t.Errorf("len(Messages()) = %d, want 0 (stale answer dropped)", got)
	}
	if c.ActiveSession() != second {
		t.Errorf("ActiveSession() = %q, want %q", c.ActiveSession(), second)
	}
	if c.Processing() {
		t.Error("Processing() = true, want false even for a discarded result")
	}
	if c.LastTrace() != nil {
		t.Error("LastTrace() != nil, want nil")
	}

	c.Close()
	if got := atomic.LoadInt32(&refreshes); got != 0 {
		t.Errorf("directory refreshes = %d, want 0 for a discarded answer", got)
	}
}

func TestNewChat(t *testing.T) {
	c := newController(t, &stubBackend{})

	id := c.NewChat()
	if !strings.HasPrefix(id, "session_") {
		t.Errorf("id = %q, want session_ prefix", id)
	}
	sessions := c.Sessions()
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Fatalf("Sessions() = %v, want the new chat at the front", sessions)
	}
	if sessions[0].Title != "New Chat" || sessions[0].MessageCount != 0 {
		t.Errorf("sessions[0] = %+v", sessions[0])
	}
	if got := len(c.Messages()); got != 0 {
		t.Errorf("len(Messages()) = %d, want 0", got)
	}
	if c.ActiveSession() != id {
		t.Errorf("ActiveSession() = %q, want %q", c.ActiveSession(), id)
	}

	second := c.NewChat()
	if second == id {
		t.Error("two NewChat calls produced the same id")
	}
	if c.Sessions()[0].ID != second {
		t.Error("second chat is not at the front of the directory")
	}
}

func TestSelectSession(t *testing.T) {
	t.Run("loads and normalizes the transcript", func(t *testing.T) {
		backend := &stubBackend{
			messagesFn: func(_ context.Context, id string) ([]json.RawMessage, error) {
				return []json.RawMessage{
					json.RawMessage(`{"role": "user", "content": "hi"}`),
					json.RawMessage(`{"role": "assistant", "content": "hello"}`),
					json.RawMessage(`"junk"`),
					json.RawMessage(`{"role": "assistant"}`),
				}, nil
			},
		}
		c := newController(t, backend)

		if err := c.SelectSession(context.Background(), "s-1"); err != nil {
			t.Fatalf("SelectSession() error = %v", err)
		}
		if got := len(c.Messages()); got != 2 {
			t.Errorf("len(Messages()) = %d, want 2", got)
		}
		if c.ActiveSession() != "s-1" {
			t.Errorf("ActiveSession() = %q, want s-1", c.ActiveSession())
		}
		if c.Loading() {
			t.Error("Loading() = true after the load finished")
		}
		rejects := c.TranscriptRejections()
		if rejects[RejectMalformed] != 1 || rejects[RejectMissingText] != 1 {
			t.Errorf("TranscriptRejections() = %v", rejects)
		}
	})

	t.Run("blank id is a no-op", func(t *testing.T) {
		var called int32
		backend := &stubBackend{
			messagesFn: func(context.Context, string) ([]json.RawMessage, error) {
				atomic.AddInt32(&called, 1)
				return nil, nil
			},
		}
		c := newController(t, backend)

		if err := c.SelectSession(context.Background(), "   "); err != nil {
			t.Fatalf("SelectSession() error = %v", err)
		}
		if atomic.LoadInt32(&called) != 0 {
			t.Error("backend called for a blank id")
		}
	})

	t.Run("failure keeps the previous transcript", func(t *testing.T) {
		backend := &stubBackend{
			messagesFn: func(_ context.Context, id string) ([]json.RawMessage, error) {
				if id == "bad" {
					return nil, errors.New("boom")
				}
				return []json.RawMessage{json.RawMessage(`{"role": "user", "content": "hi"}`)}, nil
			},
		}
		c := newController(t, backend)

		if err := c.SelectSession(context.Background(), "good"); err != nil {
			t.Fatalf("SelectSession(good) error = %v", err)
		}
		err := c.SelectSession(context.Background(), "bad")
		if err == nil {
			t.Fatal("SelectSession(bad) error = nil, want error")
		}
		if got := len(c.Messages()); got != 1 {
			t.Errorf("len(Messages()) = %d, want the previous transcript intact", got)
		}
		if c.ActiveSession() != "bad" {
			t.Errorf("ActiveSession() = %q, want bad (selection is not rolled back)", c.ActiveSession())
		}
		if c.Loading() {
			t.Error("Loading() = true after a failed load")
		}
	})
}

func TestDeleteSession(t *testing.T) {
	transcript := func(context.Context, string) ([]json.RawMessage, error) {
		return []json.RawMessage{json.RawMessage(`{"role": "user", "content": "hi"}`)}, nil
	}

	t.Run("active session starts a new chat", func(t *testing.T) {
		deleted := make(chan string, 1)
		backend := &stubBackend{
			sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
				return sessionList("s-1", "s-2"), nil
			},
			messagesFn: transcript,
			deleteFn: func(_ context.Context, id string) error {
				deleted <- id
				return nil
			},
		}
		c := newController(t, backend)
		if err := c.LoadSessions(context.Background()); err != nil {
			t.Fatalf("LoadSessions() error = %v", err)
		}
		if err := c.SelectSession(context.Background(), "s-1"); err != nil {
			t.Fatalf("SelectSession() error = %v", err)
		}

		c.DeleteSession(context.Background(), "s-1")

		select {
		case id := <-deleted:
			if id != "s-1" {
				t.Errorf("server delete id = %q, want s-1", id)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("server delete never issued")
		}
		for _, s := range c.Sessions() {
			if s.ID == "s-1" {
				t.Error("deleted session still listed")
			}
		}
		if !strings.HasPrefix(c.ActiveSession(), "session_") {
			t.Errorf("ActiveSession() = %q, want a fresh local chat", c.ActiveSession())
		}
		if got := len(c.Messages()); got != 0 {
			t.Errorf("len(Messages()) = %d, want 0", got)
		}
	})

	t.Run("server failure keeps the local removal", func(t *testing.T) {
		backend := &stubBackend{
			sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
				return sessionList("s-1"), nil
			},
			deleteFn: func(context.Context, string) error {
				return errors.New("boom")
			},
		}
		c := newController(t, backend)
		if err := c.LoadSessions(context.Background()); err != nil {
			t.Fatalf("LoadSessions() error = %v", err)
		}

		c.DeleteSession(context.Background(), "s-1")
		c.Close()

		if got := len(c.Sessions()); got != 0 {
			t.Errorf("len(Sessions()) = %d, want 0 (removal is never rolled back)", got)
		}
	})

	t.Run("inactive session keeps the buffer", func(t *testing.T) {
		backend := &stubBackend{
			sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
				return sessionList("s-1", "s-2"), nil
			},
			messagesFn: transcript,
		}
		c := newController(t, backend)
		if err := c.LoadSessions(context.Background()); err != nil {
			t.Fatalf("LoadSessions() error = %v", err)
		}
		if err := c.SelectSession(context.Background(), "s-1"); err != nil {
			t.Fatalf("SelectSession() error = %v", err)
		}

		c.DeleteSession(context.Background(), "s-2")
		c.Close()

		if c.ActiveSession() != "s-1" {
			t.Errorf("ActiveSession() = %q, want s-1", c.ActiveSession())
		}
		if got := len(c.Messages()); got != 1 {
			t.Errorf("len(Messages()) = %d, want 1", got)
		}
	})
}

func TestClearAll(t *testing.T) {
	t.Run("wipes local state after the server accepts", func(t *testing.T) {
		backend := &stubBackend{
			sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
				return sessionList("s-1", "s-2"), nil
			},
			messagesFn: func(context.Context, string) ([]json.RawMessage, error) {
				return []json.RawMessage{json.RawMessage(`{"role": "user", "content": "hi"}`)}, nil
			},
		}
		c := newController(t, backend)
		if err := c.LoadSessions(context.Background()); err != nil {
			t.Fatalf("LoadSessions() error = %v", err)
		}
		if err := c.SelectSession(context.Background(), "s-1"); err != nil {
			t.Fatalf("SelectSession() error = %v", err)
		}

		if err := c.ClearAll(context.Background()); err != nil {
			t.Fatalf("ClearAll() error = %v", err)
		}
		if got := len(c.Sessions()); got != 0 {
			t.Errorf("len(Sessions()) = %d, want 0", got)
		}
		if got := len(c.Messages()); got != 0 {
			t.Errorf("len(Messages()) = %d, want 0", got)
		}
		if c.ActiveSession() != "" {
			t.Errorf("ActiveSession() = %q, want empty", c.ActiveSession())
		}
		if !c.HasMoreSessions() {
			t.Error("HasMoreSessions() = false, want reset to true")
		}
	})

	t.Run("server failure skips the local wipe", func(t *testing.T) {
		backend := &stubBackend{
			sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
				return sessionList("s-1"), nil
			},
			clearFn: func(context.Context) error {
				return errors.New("boom")
			},
		}
		c := newController(t, backend)
		if err := c.LoadSessions(context.Background()); err != nil {
			t.Fatalf("LoadSessions() error = %v", err)
		}

		if err := c.ClearAll(context.Background()); err == nil {
			t.Fatal("ClearAll() error = nil, want error")
		}
		if got := len(c.Sessions()); got != 1 {
			t.Errorf("len(Sessions()) = %d, want 1 (local state untouched)", got)
		}
	})
}

func TestLoadSessions_FilterAndPaging(t *testing.T) {
	var mu sync.Mutex
	var offsets []int
	backend := &stubBackend{
		sessionsFn: func(_ context.Context, limit, offset int) ([]json.RawMessage, error) {
			mu.Lock()
			offsets = append(offsets, offset)
			mu.Unlock()
			if offset == 0 {
				return []json.RawMessage{
					json.RawMessage(`{"session_id": "a"}`),
					json.RawMessage(`"junk"`),
					json.RawMessage(`{"title": "no id"}`),
					json.RawMessage(`{"session_id": "a"}`),
					json.RawMessage(`{"id": 7}`),
				}, nil
			}
			return nil, nil
		},
	}
	c := newController(t, backend, func(cfg *Config) { cfg.HistoryLimit = 5 })

	if err := c.LoadSessions(context.Background()); err != nil {
		t.Fatalf("LoadSessions() error = %v", err)
	}

	sessions := c.Sessions()
	if len(sessions) != 2 || sessions[0].ID != "a" || sessions[1].ID != "7" {
		t.Fatalf("Sessions() = %v, want [a 7]", sessions)
	}
	rejects := c.SessionRejections()
	if rejects[RejectMalformed] != 1 || rejects[RejectMissingID] != 1 || rejects[RejectDuplicate] != 1 {
		t.Errorf("SessionRejections() = %v", rejects)
	}
	if !c.HasMoreSessions() {
		t.Fatal("HasMoreSessions() = false, want true for a full raw page")
	}

	if err := c.LoadMoreSessions(context.Background()); err != nil {
		t.Fatalf("LoadMoreSessions() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(offsets) != 2 || offsets[1] != 5 {
		t.Errorf("offsets = %v, want the second fetch at the raw count 5", offsets)
	}
}

func TestLoadMoreSessions_StopsAtShortPage(t *testing.T) {
	var calls int32
	backend := &stubBackend{
		sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				ids := make([]string, 10)
				for i := range ids {
					ids[i] = fmt.Sprintf("s%d", i)
				}
				return sessionList(ids...), nil
			}
			return sessionList("x0", "x1", "x2", "x3"), nil
		},
	}
	c := newController(t, backend)

	if err := c.LoadSessions(context.Background()); err != nil {
		t.Fatalf("LoadSessions() error = %v", err)
	}
	if !c.HasMoreSessions() {
		t.Fatal("HasMoreSessions() = false after a full page")
	}

	if err := c.LoadMoreSessions(context.Background()); err != nil {
		t.Fatalf("LoadMoreSessions() error = %v", err)
	}
	if got := len(c.Sessions()); got != 14 {
		t.Errorf("len(Sessions()) = %d, want 14", got)
	}
	if c.HasMoreSessions() {
		t.Error("HasMoreSessions() = true after a short page")
	}

	if err := c.LoadMoreSessions(context.Background()); err != nil {
		t.Fatalf("LoadMoreSessions() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("backend calls = %d, want 2 (exhausted directory is not re-fetched)", got)
	}
}

func TestLoadMoreSessions_SingleFetchAcrossBursts(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	backend := &stubBackend{
		sessionsFn: func(context.Context, int, int) ([]json.RawMessage, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(entered)
				<-release
			}
			return sessionList("a"), nil
		},
	}
	c := newController(t, backend)

	errCh := make(chan error, 1)
	go func() { errCh <- c.LoadMoreSessions(context.Background()) }()
	<-entered

	if err := c.LoadMoreSessions(context.Background()); err != nil {
		t.Fatalf("concurrent LoadMoreSessions() error = %v", err)
	}
	if err := c.LoadSessions(context.Background()); err != nil {
		t.Fatalf("concurrent LoadSessions() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("backend calls = %d, want 1 while a fetch is in flight", got)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("LoadMoreSessions() error = %v", err)
	}
}

func TestProgressTimer(t *testing.T) {
	release := make(chan struct{})
	backend := &stubBackend{
		chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
			<-release
			return chatResponse(t, `{"answer": "ok"}`), nil
		},
	}
	c := newController(t, backend, func(cfg *Config) { cfg.ProgressInterval = 5 * time.Millisecond })

	if err := c.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Ticks race the QueryStarted emit, so scan rather than assume
	// ordering.
	ticks := 0
	prev := -1
	deadline := time.After(2 * time.Second)
	for ticks < 3 {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatal("event channel closed early")
			}
			if p, isTick := ev.(QueryProgress); isTick {
				if p.Seconds < prev {
					t.Errorf("Seconds went backwards: %d after %d", p.Seconds, prev)
				}
				prev = p.Seconds
				ticks++
			}
		case <-deadline:
			t.Fatal("timed out waiting for progress ticks")
		}
	}
	if prev > 1 {
		t.Errorf("Seconds = %d, want whole elapsed seconds (0 for a short flight)", prev)
	}

	close(release)
	waitAnswered(t, c)

	// At most one tick emitted concurrently with the answer may still
	// arrive; after that the timer is stopped.
	extra := 0
	drain := time.After(50 * time.Millisecond)
	for done := false; !done; {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				done = true
				break
			}
			if _, isTick := ev.(QueryProgress); isTick {
				extra++
			}
		case <-drain:
			done = true
		}
	}
	if extra > 1 {
		t.Errorf("progress ticks after the answer = %d, want at most 1", extra)
	}
}

func TestToggleTrace(t *testing.T) {
	c := newController(t, &stubBackend{})

	if c.TraceVisible() {
		t.Fatal("TraceVisible() = true, want false by default")
	}
	if !c.ToggleTrace() {
		t.Error("ToggleTrace() = false, want true")
	}
	if c.ToggleTrace() {
		t.Error("second ToggleTrace() = true, want false")
	}
	if c.TraceVisible() {
		t.Error("TraceVisible() = true after two toggles, want the initial value")
	}

	visible := newController(t, &stubBackend{}, func(cfg *Config) { cfg.ShowTrace = true })
	if !visible.TraceVisible() {
		t.Error("TraceVisible() = false, want the configured true")
	}
}

func TestSubmitFeedback(t *testing.T) {
	answer := `{"answer": "ok", "metadata": {"message_id": "m-1"}}`

	t.Run("attaches the rating on success", func(t *testing.T) {
		got := make(chan api.FeedbackRequest, 1)
		backend := &stubBackend{
			chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
				return chatResponse(t, answer), nil
			},
			feedbackFn: func(_ context.Context, req api.FeedbackRequest) error {
				got <- req
				return nil
			},
		}
		c := newController(t, backend)
		if err := c.Send(context.Background(), "q"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		waitAnswered(t, c)

		if err := c.SubmitFeedback(context.Background(), "m-1", true); err != nil {
			t.Fatalf("SubmitFeedback() error = %v", err)
		}

		select {
		case req := <-got:
			if req.MessageID != "m-1" || req.Rating != api.RatingPositive {
				t.Errorf("request = %+v", req)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("feedback never sent")
		}
		c.Close()

		msgs := c.Messages()
		if msgs[1].Rating != api.RatingPositive {
			t.Errorf("Rating = %q, want %q", msgs[1].Rating, api.RatingPositive)
		}
	})

	t.Run("negative rating", func(t *testing.T) {
		got := make(chan api.FeedbackRequest, 1)
		backend := &stubBackend{
			feedbackFn: func(_ context.Context, req api.FeedbackRequest) error {
				got <- req
				return nil
			},
		}
		c := newController(t, backend)

		if err := c.SubmitFeedback(context.Background(), "m-9", false); err != nil {
			t.Fatalf("SubmitFeedback() error = %v", err)
		}
		select {
		case req := <-got:
			if req.Rating != api.RatingNegative {
				t.Errorf("Rating = %q, want %q", req.Rating, api.RatingNegative)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("feedback never sent")
		}
	})

	t.Run("empty message id is rejected", func(t *testing.T) {
		c := newController(t, &stubBackend{})
		if err := c.SubmitFeedback(context.Background(), "", true); !errors.Is(err, ErrNoMessageID) {
			t.Errorf("SubmitFeedback() error = %v, want ErrNoMessageID", err)
		}
	})

	t.Run("server rejection leaves the message unrated", func(t *testing.T) {
		backend := &stubBackend{
			chatFn: func(context.Context, api.ChatRequest) (*api.ChatResponse, error) {
				return chatResponse(t, answer), nil
			},
			feedbackFn: func(context.Context, api.FeedbackRequest) error {
				return errors.New("boom")
			},
		}
		c := newController(t, backend)
		if err := c.Send(context.Background(), "q"); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		waitAnswered(t, c)

		if err := c.SubmitFeedback(context.Background(), "m-1", true); err != nil {
			t.Fatalf("SubmitFeedback() error = %v (server failures are swallowed)", err)
		}
		c.Close()

		if got := c.Messages()[1].Rating; got != "" {
			t.Errorf("Rating = %q, want empty", got)
		}
	})
}

func TestClose(t *testing.T) {
	c := newController(t, &stubBackend{})

	c.Close()
	c.Close()

	if _, ok := <-c.Events(); ok {
		t.Error("event channel still open after Close")
	}
	if err := c.Send(context.Background(), "q"); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close error = %v, want ErrClosed", err)
	}
	if err := c.SubmitFeedback(context.Background(), "m-1", true); !errors.Is(err, ErrClosed) {
		t.Errorf("SubmitFeedback() after Close error = %v, want ErrClosed", err)
	}
	c.DeleteSession(context.Background(), "s-1")
}
