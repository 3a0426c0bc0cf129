// Package export renders stored conversations as portable documents in
// JSON, YAML or Markdown.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/glintlabs/glint/internal/conversation"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding.
type Format string

// The supported export formats.
const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a user-supplied format name. The empty string
// means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported export format %q; use json, yaml or markdown", s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatMarkdown:
		return "md"
	default:
		return "json"
	}
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Filename returns the default export file name for a session. The id
// is flattened first so a hostile value cannot point outside the target
// directory.
func Filename(sessionID string, f Format) string {
	id := unsafeFilename.ReplaceAllString(sessionID, "-")
	if id == "" {
		id = "session"
	}
	return fmt.Sprintf("session-%s.%s", id, f.Ext())
}

// Document is the portable form of one conversation.
type Document struct {
	SessionID  string `json:"session_id" yaml:"session_id"`
	Title      string `json:"title" yaml:"title"`
	ExportedAt string `json:"exported_at" yaml:"exported_at"`
	Turns      []Turn `json:"messages" yaml:"messages"`
}

// Turn is one exported conversational turn.
type Turn struct {
	Role       string   `json:"role" yaml:"role"`
	Text       string   `json:"text" yaml:"text"`
	Failed     bool     `json:"failed,omitempty" yaml:"failed,omitempty"`
	AgentsUsed []string `json:"agents_used,omitempty" yaml:"agents_used,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Build assembles a Document from a directory summary and its
// transcript.
func Build(summary conversation.SessionSummary, msgs []conversation.Message) Document {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turn := Turn{
			Role:       string(m.Origin),
			Failed:     m.Failed,
			AgentsUsed: m.AgentsUsed,
		}
		if !m.CreatedAt.IsZero() {
			turn.Timestamp = m.CreatedAt.UTC().Format(time.RFC3339)
		}
		if m.Origin == conversation.OriginUser {
			turn.Text = m.Query
		} else {
			turn.Text = m.Answer
		}
		turns = append(turns, turn)
	}
	return Document{
		SessionID:  summary.ID,
		Title:      summary.DisplayTitle(),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Turns:      turns,
	}
}

// Write renders doc to w in the given format.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml export: %w", err)
		}
		return enc.Close()
	case FormatMarkdown:
		_, err := io.WriteString(w, renderMarkdown(doc))
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding json export: %w", err)
		}
		return nil
	}
}
