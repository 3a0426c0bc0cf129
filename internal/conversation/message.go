package conversation

import (
	"encoding/json"
	"time"

	"github.com/glintlabs/glint/internal/api"
	"github.com/glintlabs/glint/internal/jsonx"
)

// Origin tells which side authored a turn.
type Origin string

// The two turn origins.
const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Rejection reasons recorded when raw server entries are dropped during
// ingestion.
const (
	RejectMalformed   = "malformed"
	RejectMissingID   = "missing_id"
	RejectMissingText = "missing_text"
	RejectDuplicate   = "duplicate"
)

// failedAnswer is the transcript text of an assistant turn standing in
// for a dispatch that never produced an answer.
const failedAnswer = "The assistant could not be reached. Check the backend connection and try again."

// Message is one conversational turn, shaped the same regardless of
// which wire form it came from. A message is never mutated after it is
// appended, except to attach a feedback rating.
type Message struct {
	ID              string // server-assigned, empty for local turns
	Origin          Origin
	Query           string // the user text that opened the turn
	Answer          string // assistant text, empty on user turns
	Chart           map[string]any
	Rows            []map[string]any // tabular slice of the result set
	Insights        []api.Insight
	Recommendations []api.Recommendation
	AgentsUsed      []string
	AgentsBlocked   []string
	Trace           map[string]any // thinking trace, assistant turns only
	Rating          string         // api.RatingPositive or Negative once feedback lands
	Failed          bool
	CreatedAt       time.Time
}

// UserMessage builds the local echo of an outgoing query. It exists
// before any network round trip so the text shows up instantly.
func UserMessage(text string) Message {
	return Message{
		Origin:    OriginUser,
		Query:     text,
		CreatedAt: time.Now(),
	}
}

// AnswerMessage builds the assistant turn for one chat response, paired
// with the query that produced it. Responses the server flagged as
// failed keep their human-readable answer and drop the structured
// fields.
func AnswerMessage(query string, resp *api.ChatResponse) Message {
	msg := Message{
		ID:        resp.MessageID(),
		Origin:    OriginAssistant,
		Query:     query,
		Answer:    string(resp.Answer),
		Failed:    bool(resp.Failed),
		CreatedAt: time.Now(),
	}
	if msg.Failed {
		if msg.Answer == "" {
			msg.Answer = failedAnswer
		}
		return msg
	}
	msg.Chart = resp.ChartData
	msg.Rows = resp.Data
	msg.Insights = resp.Insights
	msg.Recommendations = resp.Recommendations
	msg.AgentsUsed = resp.AgentsUsed
	msg.AgentsBlocked = resp.AgentsBlocked
	msg.Trace = resp.ThinkingTrace
	return msg
}

// failedTurn is the assistant turn recorded when a dispatch errored
// before producing any response at all.
func failedTurn(query string) Message {
	return Message{
		Origin:    OriginAssistant,
		Query:     query,
		Answer:    failedAnswer,
		Failed:    true,
		CreatedAt: time.Now(),
	}
}

// MessageFromHistory builds a Message from one stored-transcript entry,
// resolving the text, chart and insight aliases that differ between
// backend versions. Absent fields coalesce to zero values.
func MessageFromHistory(entry api.HistoryEntry) Message {
	created := parseTimestamp(string(entry.Timestamp))

	if entry.Role == "user" {
		return Message{
			Origin:    OriginUser,
			Query:     firstOf(string(entry.Content), string(entry.Query)),
			CreatedAt: created,
		}
	}

	chart := map[string]any(entry.ChartData)
	if chart == nil {
		chart = entry.Chart
	}
	insights := entry.Insights
	if len(insights) == 0 {
		insights = entry.KeyFindings
	}
	return Message{
		ID:              jsonx.Text(entry.Metadata, "message_id"),
		Origin:          OriginAssistant,
		Query:           string(entry.Query),
		Answer:          firstOf(string(entry.Content), string(entry.Response), string(entry.Answer)),
		Chart:           chart,
		Rows:            entry.Data,
		Insights:        insights,
		Recommendations: entry.Recommendations,
		AgentsUsed:      entry.AgentsUsed,
		AgentsBlocked:   entry.AgentsBlocked,
		CreatedAt:       created,
	}
}

// textAliases are the keys under which a stored turn may carry its text.
// An entry with none of them is not a renderable turn.
var textAliases = []string{"content", "query", "response", "answer"}

// ParseTranscript converts raw stored-transcript entries to Messages
// using the same ingestion rules SelectSession applies. The returned
// map counts dropped entries by reason. Exists so batch consumers, the
// session export command among them, see the transcript exactly as the
// interactive view does.
func ParseTranscript(raw []json.RawMessage) ([]Message, map[string]int) {
	return normalizeTranscript(raw)
}

// normalizeTranscript converts raw stored-transcript entries to
// Messages, dropping entries that are not JSON objects or carry no text
// under any alias. The returned map counts the drops by reason.
func normalizeTranscript(raw []json.RawMessage) ([]Message, map[string]int) {
	msgs := make([]Message, 0, len(raw))
	rejected := make(map[string]int)

	for _, r := range raw {
		var fields map[string]any
		if err := json.Unmarshal(r, &fields); err != nil || fields == nil {
			rejected[RejectMalformed]++
			continue
		}
		if !hasTextKey(fields) {
			rejected[RejectMissingText]++
			continue
		}
		var entry api.HistoryEntry
		if err := json.Unmarshal(r, &entry); err != nil {
			rejected[RejectMalformed]++
			continue
		}
		msgs = append(msgs, MessageFromHistory(entry))
	}
	return msgs, rejected
}

// hasTextKey reports whether the entry carries at least one text alias
// with a non-null value.
func hasTextKey(fields map[string]any) bool {
	for _, key := range textAliases {
		if v, ok := fields[key]; ok && v != nil {
			return true
		}
	}
	return false
}

// firstOf returns the first non-empty string.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseTimestamp reads the timestamp formats the backend has been seen
// to emit, falling back to now; a transcript never fails over
// formatting.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Now()
}
