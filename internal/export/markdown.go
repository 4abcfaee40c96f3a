// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/atlas-tui/internal/chat"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts session snapshots to Markdown format.
func (e *MarkdownExporter) Export(sessions []chat.ExportSession) ([]byte, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	var sb strings.Builder

	for i, sess := range sessions {
		e.writeSession(&sb, sess)
		if i < len(sessions)-1 {
			sb.WriteString("\n\n---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from Atlas on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeSession(sb *strings.Builder, sess chat.ExportSession) {
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(sess.Title)))
	sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(sess.CreatedAt)))
	sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(sess.UpdatedAt)))
	sb.WriteString(fmt.Sprintf("- **Messages**: %d\n\n", len(sess.Messages)))

	for i, msg := range sess.Messages {
		label := roleLabel(msg.Sender)
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if badges := payloadBadges(msg); len(badges) > 0 {
			sb.WriteString(fmt.Sprintf("<sub>Includes: %s</sub>\n\n", strings.Join(badges, " | ")))
		}

		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// roleLabel returns a formatted label for the message sender.
func roleLabel(sender string) string {
	switch sender {
	case chat.SenderUser:
		return "[You]"
	case chat.SenderAI:
		return "[Atlas]"
	case "":
		return "Unknown"
	default:
		runes := []rune(sender)
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
