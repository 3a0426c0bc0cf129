package api

import (
	"context"
	"fmt"
)

// Chat submits one query to the assistant pipeline via POST /ai/chat. The
// call is never retried; a failed dispatch is terminal for that attempt.
// A nil error does not mean the pipeline succeeded: check
// [ChatResponse.Failed] for application-level errors reported under a 2xx
// status.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.postJSON(ctx, "/ai/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("sending chat query: %w", err)
	}
	return &resp, nil
}
