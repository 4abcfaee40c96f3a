// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/ui/styles"
)

func testSessions(n int) []api.Session {
	sessions := make([]api.Session, n)
	for i := range sessions {
		sessions[i] = api.Session{
			ID:        api.FlexID(api.NormalizeID(i + 1)),
			Title:     "Conversation " + api.NormalizeID(i+1),
			UpdatedAt: time.Now(),
		}
	}
	return sessions
}

func TestSidebar_CursorBounds(t *testing.T) {
	s := NewSidebar(false)
	s.SetSize(28, 20)
	s.SetSessions(testSessions(3))

	s.MoveUp()
	_, ok := s.Selected()
	require.True(t, ok)

	for i := 0; i < 10; i++ {
		s.MoveDown()
	}
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "3", sel.ID.String())
}

func TestSidebar_SelectID(t *testing.T) {
	s := NewSidebar(true)
	s.SetSize(28, 20)
	s.SetSessions(testSessions(5))

	s.SelectID("4")
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "4", sel.ID.String())

	// Unknown id leaves the cursor alone.
	s.SelectID("nope")
	sel, _ = s.Selected()
	assert.Equal(t, "4", sel.ID.String())
}

func TestSidebar_ShrinkingListClampsCursor(t *testing.T) {
	s := NewSidebar(true)
	s.SetSessions(testSessions(5))
	s.SelectID("5")

	s.SetSessions(testSessions(2))
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "2", sel.ID.String())
}

func TestSidebar_EmptyView(t *testing.T) {
	s := NewSidebar(false)
	theme := styles.NewTheme("dark")
	assert.Contains(t, s.View(theme), "No conversations yet")
}

func TestToast_ExpiryMatchesShownToast(t *testing.T) {
	var tst Toast
	tst.Show("first", ToastInfo)
	assert.True(t, tst.Visible())

	// A second toast supersedes the first; the first timer's expiry
	// must not clear it.
	tst.Show("second", ToastError)
	tst.Expire(ToastExpiredMsg{ID: 1})
	assert.True(t, tst.Visible())

	tst.Expire(ToastExpiredMsg{ID: 2})
	assert.False(t, tst.Visible())
}

func TestMessageRenderer_PayloadNote(t *testing.T) {
	msg := api.Message{
		Sender:   "ai",
		Content:  "done",
		Insights: json.RawMessage(`[1]`),
	}
	note := payloadNote(msg)
	assert.Contains(t, note, "insights")
	assert.NotContains(t, note, "policies")

	assert.Empty(t, payloadNote(api.Message{Sender: "user", Content: "hi"}))
}
