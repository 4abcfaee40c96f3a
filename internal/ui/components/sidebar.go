// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/ui/styles"
)

// =============================================================================
// SESSION SIDEBAR
// =============================================================================

// Sidebar renders the session list with a movable cursor.
type Sidebar struct {
	sessions []api.Session
	cursor   int
	offset   int

	width   int
	height  int
	compact bool
}

// NewSidebar creates an empty sidebar.
func NewSidebar(compact bool) *Sidebar {
	return &Sidebar{compact: compact}
}

// SetSessions replaces the listed sessions, clamping the cursor.
func (s *Sidebar) SetSessions(sessions []api.Session) {
	s.sessions = sessions
	if s.cursor >= len(sessions) {
		s.cursor = len(sessions) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// SetSize sets the render dimensions.
// SetCompact switches between the one-line and two-line entry layouts.
func (s *Sidebar) SetCompact(compact bool) {
	s.compact = compact
}

func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// MoveUp moves the cursor one entry up.
func (s *Sidebar) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
	s.scrollIntoView()
}

// MoveDown moves the cursor one entry down.
func (s *Sidebar) MoveDown() {
	if s.cursor < len(s.sessions)-1 {
		s.cursor++
	}
	s.scrollIntoView()
}

// Selected returns the session under the cursor.
func (s *Sidebar) Selected() (api.Session, bool) {
	if s.cursor < 0 || s.cursor >= len(s.sessions) {
		return api.Session{}, false
	}
	return s.sessions[s.cursor], true
}

// SelectID moves the cursor to the session with the given normalized id.
func (s *Sidebar) SelectID(id string) {
	for i := range s.sessions {
		if s.sessions[i].ID.String() == id {
			s.cursor = i
			s.scrollIntoView()
			return
		}
	}
}

func (s *Sidebar) rowsPerEntry() int {
	if s.compact {
		return 1
	}
	return 2
}

func (s *Sidebar) visibleEntries() int {
	rows := s.rowsPerEntry()
	if rows == 0 || s.height <= 0 {
		return len(s.sessions)
	}
	n := s.height / rows
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Sidebar) scrollIntoView() {
	visible := s.visibleEntries()
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+visible {
		s.offset = s.cursor - visible + 1
	}
}

// View renders the sidebar contents.
func (s *Sidebar) View(theme *styles.Theme) string {
	if len(s.sessions) == 0 {
		return theme.SessionMeta.Render("No conversations yet")
	}

	textWidth := s.width - 2
	if textWidth < 8 {
		textWidth = 8
	}

	var sb strings.Builder
	end := s.offset + s.visibleEntries()
	if end > len(s.sessions) {
		end = len(s.sessions)
	}

	for i := s.offset; i < end; i++ {
		sess := s.sessions[i]
		title := runewidth.Truncate(sess.Title, textWidth, "…")

		if i == s.cursor {
			sb.WriteString(theme.SessionItemSelected.Render("> " + title))
		} else {
			sb.WriteString(theme.SessionItem.Render("  " + title))
		}
		sb.WriteString("\n")

		if !s.compact {
			meta := sess.UpdatedAt.Format("Jan 2 15:04")
			sb.WriteString(theme.SessionMeta.Render("  " + meta))
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
