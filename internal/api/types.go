package api

import (
	"github.com/glintlabs/glint/internal/jsonx"
)

// Feedback rating values accepted by the backend.
const (
	RatingPositive = "positive"
	RatingNegative = "negative"
)

// ChatRequest is the body of POST /ai/chat. ConversationID is omitted for
// the first query of a new conversation; the backend then creates the
// session and reports its id back in the response.
type ChatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the answer payload of POST /ai/chat. The backend signals
// application-level failure with Failed=true under a 2xx status, so
// callers must check the flag even on a successful round trip. Most fields
// decode through jsonx because their shapes drift between backend
// versions.
type ChatResponse struct {
	Answer          jsonx.String     `json:"answer"`
	ThinkingTrace   jsonx.Object     `json:"thinking_trace"`
	Data            jsonx.ObjectList `json:"data"`
	ChartData       jsonx.Object     `json:"chart_data"`
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	AgentsUsed      jsonx.StringList `json:"agents_used"`
	AgentsBlocked   jsonx.StringList `json:"agents_blocked"`
	Metadata        jsonx.Object     `json:"metadata"`
	SessionID       jsonx.String     `json:"session_id"`
	ConversationID  jsonx.String     `json:"conversation_id"`
	Failed          jsonx.Bool       `json:"error"`
}

// Session returns the conversation id named anywhere in the response:
// top-level session_id or conversation_id first, then the metadata object.
// Empty when the backend reported none.
func (r *ChatResponse) Session() string {
	if r.SessionID != "" {
		return string(r.SessionID)
	}
	if r.ConversationID != "" {
		return string(r.ConversationID)
	}
	if s := jsonx.Text(r.Metadata, "session_id"); s != "" {
		return s
	}
	return jsonx.Text(r.Metadata, "conversation_id")
}

// MessageID returns the server-assigned id of this answer, read from the
// metadata object. Empty when absent; such answers cannot receive
// feedback.
func (r *ChatResponse) MessageID() string {
	return jsonx.Text(r.Metadata, "message_id")
}

// Insight is one key finding attached to an answer. The backend has sent
// insights both as objects and as bare strings; a bare scalar becomes the
// Title.
type Insight struct {
	Type  string
	Title string
	Value string
	Icon  string
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Insight) UnmarshalJSON(data []byte) error {
	var o jsonx.Object
	if err := o.UnmarshalJSON(data); err != nil {
		return err
	}
	if o == nil {
		var s jsonx.String
		if err := s.UnmarshalJSON(data); err != nil {
			return err
		}
		*i = Insight{Title: string(s)}
		return nil
	}
	*i = Insight{
		Type:  jsonx.Text(o, "type"),
		Title: jsonx.Text(o, "title"),
		Value: jsonx.Text(o, "value"),
		Icon:  jsonx.Text(o, "icon"),
	}
	return nil
}

// Recommendation is a suggested follow-up question attached to an answer.
// Decodes with the same leniency as Insight.
type Recommendation struct {
	Title       string
	Description string
	Priority    string
	Icon        string
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var o jsonx.Object
	if err := o.UnmarshalJSON(data); err != nil {
		return err
	}
	if o == nil {
		var s jsonx.String
		if err := s.UnmarshalJSON(data); err != nil {
			return err
		}
		*r = Recommendation{Title: string(s)}
		return nil
	}
	*r = Recommendation{
		Title:       jsonx.Text(o, "title"),
		Description: jsonx.Text(o, "description"),
		Priority:    jsonx.Text(o, "priority"),
		Icon:        jsonx.Text(o, "icon"),
	}
	return nil
}

// Session is the tolerant decode of one directory entry from the session
// listing. The id arrives under session_id or, in older payloads, id;
// numeric ids coerce to strings. Entries with no id at all are dropped by
// the caller's ingestion filter, not here.
type Session struct {
	SessionID    jsonx.String `json:"session_id"`
	ID           jsonx.String `json:"id"`
	Title        jsonx.String `json:"title"`
	Query        jsonx.String `json:"query"`
	MessageCount jsonx.Int    `json:"message_count"`
	FirstMessage jsonx.String `json:"first_message"`
	LastMessage  jsonx.String `json:"last_message"`
}

// Ident returns the session identifier under either of its wire names.
func (s *Session) Ident() string {
	if s.SessionID != "" {
		return string(s.SessionID)
	}
	return string(s.ID)
}

// HistoryEntry is one stored turn from a session transcript. User turns
// carry role/content/timestamp; assistant turns add the originating query
// and the structured answer fields. Text and chart fields have legacy
// aliases, resolved by the consumer.
type HistoryEntry struct {
	Role            jsonx.String     `json:"role"`
	Content         jsonx.String     `json:"content"`
	Response        jsonx.String     `json:"response"`
	Answer          jsonx.String     `json:"answer"`
	Query           jsonx.String     `json:"query"`
	Timestamp       jsonx.String     `json:"timestamp"`
	AgentsUsed      jsonx.StringList `json:"agents_used"`
	AgentsBlocked   jsonx.StringList `json:"agents_blocked"`
	ChartData       jsonx.Object     `json:"chart_data"`
	Chart           jsonx.Object     `json:"chart"`
	Data            jsonx.ObjectList `json:"data"`
	Insights        []Insight        `json:"insights"`
	KeyFindings     []Insight        `json:"key_findings"`
	Recommendations []Recommendation `json:"recommendations"`
	Metadata        jsonx.Object     `json:"metadata"`
}

// TokenResponse is the result of POST /auth/login.
type TokenResponse struct {
	AccessToken jsonx.String `json:"access_token"`
	TokenType   jsonx.String `json:"token_type"`
	User        User         `json:"user"`
}

// User describes an authenticated account, as returned by login and
// GET /auth/me.
type User struct {
	ID           jsonx.String     `json:"id"`
	Username     jsonx.String     `json:"username"`
	Email        jsonx.String     `json:"email"`
	Role         jsonx.String     `json:"role"`
	DomainAgents jsonx.StringList `json:"domain_agents"`
}

// FeedbackRequest is the body of POST /ai/feedback.
type FeedbackRequest struct {
	MessageID string `json:"message_id"`
	Rating    string `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}
