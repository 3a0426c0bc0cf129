package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

type sessionsEnvelope struct {
	Status   string            `json:"status"`
	Sessions []json.RawMessage `json:"sessions"`
}

type messagesEnvelope struct {
	Status    string            `json:"status"`
	SessionID string            `json:"session_id"`
	Messages  []json.RawMessage `json:"messages"`
}

// Sessions lists stored conversations, newest first. limit and offset
// drive the backend's pagination. Entries come back undecoded so the
// caller can apply its own ingestion filter; see [Session] for the decoded
// shape of one entry.
func (c *Client) Sessions(ctx context.Context, limit, offset int) ([]json.RawMessage, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var env sessionsEnvelope
	if err := c.getJSON(ctx, "/ai/conversations/sessions", query, &env); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return env.Sessions, nil
}

// SessionMessages fetches the full stored transcript of one session as raw
// turn entries; see [HistoryEntry] for the decoded shape of one turn.
func (c *Client) SessionMessages(ctx context.Context, id string) ([]json.RawMessage, error) {
	var env messagesEnvelope
	if err := c.getJSON(ctx, "/ai/conversations/sessions/"+id+"/messages", nil, &env); err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return env.Messages, nil
}

// DeleteSession removes one stored conversation. Callers treat failures as
// advisory; by the time this runs the local removal has already happened.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.delete(ctx, "/ai/conversations/sessions/"+id, nil); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// ClearMemory wipes every stored conversation for the authenticated user.
func (c *Client) ClearMemory(ctx context.Context) error {
	if err := c.delete(ctx, "/ai/memory", nil); err != nil {
		return fmt.Errorf("clearing memory: %w", err)
	}
	return nil
}
