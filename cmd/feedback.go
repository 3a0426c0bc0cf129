package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glintlabs/glint/internal/api"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Rate assistant answers",
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit <message-id>",
	Short: "Submit a rating for an answer",
	Long: `Submit a rating for an assistant answer by its message ID.

Message IDs appear in exported transcripts (sessions export) and in
one-shot answers (chat --query).`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedbackSubmit,
}

func init() {
	feedbackSubmitCmd.Flags().String("rating", api.RatingPositive, "rating: positive or negative")
	feedbackSubmitCmd.Flags().String("comment", "", "optional comment to attach")
	feedbackCmd.AddCommand(feedbackSubmitCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedbackSubmit(cmd *cobra.Command, args []string) error {
	rating, err := cmd.Flags().GetString("rating")
	if err != nil {
		return err
	}
	if rating != api.RatingPositive && rating != api.RatingNegative {
		return fmt.Errorf("rating must be %q or %q", api.RatingPositive, api.RatingNegative)
	}
	comment, err := cmd.Flags().GetString("comment")
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	req := api.FeedbackRequest{
		MessageID: args[0],
		Rating:    rating,
		Comment:   comment,
	}
	if err := rt.client.SubmitFeedback(cmd.Context(), req); err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}
	fmt.Printf("Recorded %s feedback for message %s\n", rating, args[0])
	return nil
}
