package api

import (
	"context"
	"errors"
	"fmt"
)

// SubmitFeedback records a rating for one assistant answer.
func (c *Client) SubmitFeedback(ctx context.Context, req FeedbackRequest) error {
	if req.MessageID == "" {
		return errors.New("feedback needs a message id")
	}
	if req.Rating != RatingPositive && req.Rating != RatingNegative {
		return fmt.Errorf("invalid rating %q", req.Rating)
	}
	if err := c.postJSON(ctx, "/ai/feedback", req, nil); err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}
	return nil
}
