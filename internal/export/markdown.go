package export

import "strings"

// titleReplacer strips newlines so a title cannot break out of its
// heading. strings.Replacer is safe for concurrent use.
var titleReplacer = strings.NewReplacer("\n", " ", "\r", " ")

func sanitizeTitle(s string) string {
	return titleReplacer.Replace(s)
}

// renderMarkdown lays the conversation out as a Markdown document. Turn
// text passes through escaping so stored content cannot inject headings
// into the export.
func renderMarkdown(doc Document) string {
	var b strings.Builder
	title := sanitizeTitle(doc.Title)
	if title == "" {
		title = "Untitled Session"
	}
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if doc.ExportedAt != "" {
		b.WriteString("Exported ")
		b.WriteString(doc.ExportedAt)
		b.WriteString("\n\n")
	}

	for _, turn := range doc.Turns {
		label := turn.Role
		switch turn.Role {
		case "user":
			label = "User"
		case "assistant":
			label = "Assistant"
		}
		if turn.Failed {
			label += " (failed)"
		}
		b.WriteString("**")
		b.WriteString(label)
		b.WriteString("**: ")
		b.WriteString(escapeContent(turn.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// escapeContent escapes leading Markdown structural characters, ATX
// heading markers and setext underlines. Answers routinely carry their
// own Markdown; only constructs that would restructure the surrounding
// document are touched.
func escapeContent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, "#"):
			indent := line[:len(line)-len(trimmed)]
			lines[i] = indent + `\` + trimmed
		case isSetextUnderline(trimmed):
			indent := line[:len(line)-len(trimmed)]
			lines[i] = indent + `\` + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

// isSetextUnderline reports whether trimmed consists entirely of '=' or
// entirely of '-' characters. Such a line promotes the previous line to
// a heading in CommonMark.
func isSetextUnderline(trimmed string) bool {
	s := strings.TrimRight(trimmed, " \t")
	if s == "" {
		return false
	}
	return strings.Trim(s, "=") == "" || strings.Trim(s, "-") == ""
}
