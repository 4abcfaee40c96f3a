// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/chat"
	"github.com/jeranaias/atlas-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer renders chat messages into styled terminal blocks. AI
// content is markdown and goes through glamour; user content is shown
// verbatim.
type MessageRenderer struct {
	theme          *styles.Theme
	glamour        *glamour.TermRenderer
	width          int
	showTimestamps bool
}

// NewMessageRenderer creates a renderer for the given width.
func NewMessageRenderer(theme *styles.Theme, width int, showTimestamps bool) *MessageRenderer {
	r := &MessageRenderer{
		theme:          theme,
		width:          width,
		showTimestamps: showTimestamps,
	}
	r.rebuildGlamour()
	return r
}

// SetWidth updates the wrap width.
func (r *MessageRenderer) SetWidth(width int) {
	if width == r.width {
		return
	}
	r.width = width
	r.rebuildGlamour()
}

func (r *MessageRenderer) rebuildGlamour() {
	wrap := r.width - 4
	if wrap < 20 {
		wrap = 20
	}
	gr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		// Glamour only fails on bad options; fall back to plain text.
		gr = nil
	}
	r.glamour = gr
}

// Render produces the full transcript for a session.
func (r *MessageRenderer) Render(sess api.Session) string {
	var sb strings.Builder
	for _, msg := range sess.Messages {
		sb.WriteString(r.renderMessage(msg))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *MessageRenderer) renderMessage(msg api.Message) string {
	header := "You"
	bubble := r.theme.UserBubble
	body := strings.TrimSpace(msg.Content)

	if msg.Sender == chat.SenderAI {
		header = "Atlas"
		bubble = r.theme.AIBubble
		if r.glamour != nil {
			if rendered, err := r.glamour.Render(msg.Content); err == nil {
				body = strings.TrimSpace(rendered)
			}
		}
	}

	if r.showTimestamps && !msg.Timestamp.IsZero() {
		header += r.theme.MessageMeta.Render("  " + msg.Timestamp.Format("15:04:05"))
	}

	block := r.theme.MessageMeta.Render(header) + "\n" +
		bubble.Width(r.width-2).Render(body)

	if note := payloadNote(msg); note != "" {
		block += "\n" + r.theme.PayloadNote.Render(note)
	}
	return block + "\n"
}

// payloadNote summarizes the rich payloads attached to an AI message.
func payloadNote(msg api.Message) string {
	var kinds []string
	if api.HasPayload(msg.Visualizations) {
		kinds = append(kinds, "visualizations")
	}
	if api.HasPayload(msg.Insights) {
		kinds = append(kinds, "insights")
	}
	if api.HasPayload(msg.Policies) {
		kinds = append(kinds, "policies")
	}
	if len(kinds) == 0 {
		return ""
	}
	return fmt.Sprintf("· includes %s (see exported report)", strings.Join(kinds, ", "))
}
