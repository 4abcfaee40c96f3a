// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/atlas-tui/internal/api"
)

// =============================================================================
// EXPORT SNAPSHOTS
// =============================================================================

// ExportMessage is the serializable form of a message: sender, content,
// timestamp, and presence flags for the rich AI payloads. The payloads
// themselves are not exported; downstream formats only advertise that
// they existed.
type ExportMessage struct {
	Sender            string    `json:"sender"`
	Content           string    `json:"content"`
	Timestamp         time.Time `json:"timestamp"`
	HasVisualizations bool      `json:"has_visualizations"`
	HasInsights       bool      `json:"has_insights"`
	HasPolicies       bool      `json:"has_policies"`
}

// ExportSession is a point-in-time snapshot of one conversation.
type ExportSession struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []ExportMessage `json:"messages"`
}

// ExportCurrent snapshots the active session. Returns false when the
// session has no messages to export.
func (s *Store) ExportCurrent() (ExportSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.current.Messages) == 0 {
		return ExportSession{}, false
	}
	return snapshotSession(*s.current), true
}

// ExportAll snapshots every known session, the active one included when
// it has messages but no server id yet.
func (s *Store) ExportAll() []ExportSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ExportSession, 0, len(s.sessions)+1)
	for _, sess := range s.sessions {
		out = append(out, snapshotSession(sess))
	}
	if s.current.ID == "" && len(s.current.Messages) > 0 {
		out = append(out, snapshotSession(*s.current))
	}
	return out
}

func snapshotSession(sess api.Session) ExportSession {
	out := ExportSession{
		ID:        sess.ID.String(),
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  make([]ExportMessage, 0, len(sess.Messages)),
	}
	for _, m := range sess.Messages {
		out.Messages = append(out.Messages, ExportMessage{
			Sender:            m.Sender,
			Content:           m.Content,
			Timestamp:         m.Timestamp,
			HasVisualizations: api.HasPayload(m.Visualizations),
			HasInsights:       api.HasPayload(m.Insights),
			HasPolicies:       api.HasPayload(m.Policies),
		})
	}
	return out
}
