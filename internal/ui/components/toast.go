// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view components for the atlas TUI.
package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/atlas-tui/internal/ui/styles"
)

// =============================================================================
// TOAST
// =============================================================================

// ToastLevel selects the toast styling.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastError
)

// toastTTL is how long a toast stays visible.
const toastTTL = 4 * time.Second

// ToastExpiredMsg asks the model to clear an expired toast.
type ToastExpiredMsg struct {
	ID int
}

// Toast is a transient notification shown over the status bar.
type Toast struct {
	id      int
	message string
	level   ToastLevel
	visible bool
}

// Show replaces the current toast and returns the expiry command.
func (t *Toast) Show(message string, level ToastLevel) tea.Cmd {
	t.id++
	t.message = message
	t.level = level
	t.visible = true

	id := t.id
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return ToastExpiredMsg{ID: id}
	})
}

// Expire clears the toast if the expiry matches the visible one. A toast
// shown after the timer was armed keeps its own, later expiry.
func (t *Toast) Expire(msg ToastExpiredMsg) {
	if msg.ID == t.id {
		t.visible = false
	}
}

// Visible reports whether a toast should render.
func (t *Toast) Visible() bool {
	return t.visible
}

// View renders the toast.
func (t *Toast) View(theme *styles.Theme) string {
	if !t.visible {
		return ""
	}
	if t.level == ToastError {
		return theme.ToastError.Render(t.message)
	}
	return theme.ToastInfo.Render(t.message)
}
