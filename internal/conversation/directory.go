package conversation

import (
	"encoding/json"

	"github.com/glintlabs/glint/internal/api"
)

// SessionSummary is one session directory entry.
type SessionSummary struct {
	ID           string
	Title        string
	Query        string // first query of the session, used as a title fallback
	MessageCount int
	FirstAt      string // timestamp strings pass through as the server sent them
	LastAt       string
}

// DisplayTitle returns the best available label for listing the session.
func (s SessionSummary) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	if s.Query != "" {
		return snippet(s.Query, 50)
	}
	return "New Chat"
}

// snippet truncates s to at most n runes, marking the cut with an
// ellipsis.
func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// directory is the paginated session cache. Its methods do no locking
// and no I/O; the Controller guards access and hands in fetched pages.
type directory struct {
	entries  []SessionSummary
	offset   int
	hasMore  bool
	pageSize int
	rejected map[string]int
}

func newDirectory(pageSize int) *directory {
	return &directory{
		hasMore:  true,
		pageSize: pageSize,
		rejected: make(map[string]int),
	}
}

// ParseSummary decodes one raw listing entry with the same rules the
// session directory applies during LoadSessions. The second return is
// the rejection reason for unusable entries, empty on success. Batch
// consumers such as the sessions list command use it to stay consistent
// with the interactive directory.
func ParseSummary(raw json.RawMessage) (SessionSummary, string) {
	return decodeSummary(raw)
}

// decodeSummary validates one raw listing entry. The second return is
// the rejection reason for unusable entries, empty on success.
func decodeSummary(raw json.RawMessage) (SessionSummary, string) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return SessionSummary{}, RejectMalformed
	}
	var entry api.Session
	if err := json.Unmarshal(raw, &entry); err != nil {
		return SessionSummary{}, RejectMalformed
	}
	id := entry.Ident()
	if id == "" {
		return SessionSummary{}, RejectMissingID
	}
	return SessionSummary{
		ID:           id,
		Title:        string(entry.Title),
		Query:        string(entry.Query),
		MessageCount: int(entry.MessageCount),
		FirstAt:      string(entry.FirstMessage),
		LastAt:       string(entry.LastMessage),
	}, ""
}

// replaceAll installs a freshly fetched first page, deduplicating by id.
// The offset advances by the raw count so server-side paging stays
// aligned even when entries were dropped client-side. Returns how many
// entries were dropped.
func (d *directory) replaceAll(raw []json.RawMessage) int {
	entries := make([]SessionSummary, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	dropped := 0
	for _, r := range raw {
		summary, reason := decodeSummary(r)
		if reason == "" {
			if _, dup := seen[summary.ID]; dup {
				reason = RejectDuplicate
			}
		}
		if reason != "" {
			d.rejected[reason]++
			dropped++
			continue
		}
		seen[summary.ID] = struct{}{}
		entries = append(entries, summary)
	}
	d.entries = entries
	d.offset = len(raw)
	d.hasMore = len(raw) >= d.pageSize
	return dropped
}

// appendPage adds one fetched page to the cache. Cross-page duplicates
// are left alone; the server may shift entries between pages and a full
// reload squares that up. Returns how many entries were dropped.
func (d *directory) appendPage(raw []json.RawMessage) int {
	dropped := 0
	for _, r := range raw {
		summary, reason := decodeSummary(r)
		if reason != "" {
			d.rejected[reason]++
			dropped++
			continue
		}
		d.entries = append(d.entries, summary)
	}
	d.offset += len(raw)
	if len(raw) < d.pageSize {
		d.hasMore = false
	}
	return dropped
}

// insertFront puts a summary at position 0.
func (d *directory) insertFront(s SessionSummary) {
	d.entries = append([]SessionSummary{s}, d.entries...)
}

// remove drops the entry with the given id, reporting whether it was
// present.
func (d *directory) remove(id string) bool {
	for i, e := range d.entries {
		if e.ID == id {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true
		}
	}
	return false
}

// reset returns the directory to its initial empty state. Rejection
// counters survive; they are cumulative diagnostics.
func (d *directory) reset() {
	d.entries = nil
	d.offset = 0
	d.hasMore = true
}

// snapshot copies the entries for handing outside the lock.
func (d *directory) snapshot() []SessionSummary {
	out := make([]SessionSummary, len(d.entries))
	copy(out, d.entries)
	return out
}
