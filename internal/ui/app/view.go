// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "starting atlas..."
	}
	if m.view == viewLogin {
		return m.login.view(m.width, m.height)
	}
	return m.chatView()
}

func (m *Model) chatView() string {
	var sb strings.Builder

	sb.WriteString(m.headerView())
	sb.WriteString("\n")

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.Sidebar.Width(sidebarWidth).Height(m.viewport.Height).Render(m.sidebar.View(m.theme)),
		m.viewport.View(),
	)
	sb.WriteString(body)
	sb.WriteString("\n")

	sb.WriteString(m.inputView())
	sb.WriteString("\n")
	sb.WriteString(m.statusView())

	return m.theme.App.Render(sb.String())
}

func (m *Model) headerView() string {
	title := m.theme.HeaderTitle.Render("Atlas")
	session := m.store.Current().Title

	identity := ""
	if user := m.auth.User(); user != nil {
		identity = m.theme.HeaderMeta.Render(user.Email)
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(session) - lipgloss.Width(identity) - 6
	if gap < 1 {
		gap = 1
	}

	return m.theme.Header.Width(m.width).Render(
		title + "  " + m.theme.HeaderMeta.Render(session) + strings.Repeat(" ", gap) + identity)
}

func (m *Model) inputView() string {
	prompt := m.theme.InputPrompt.Render("> ")
	if m.thinking {
		prompt = m.spinner.View() + " "
	}
	return m.theme.InputContainer.Width(m.width).Render(prompt + m.input.View())
}

func (m *Model) statusView() string {
	if m.toast.Visible() {
		return m.toast.View(m.theme)
	}

	if m.store.Loading() {
		return m.theme.StatusBar.Render(m.spinner.View() + " loading conversation...")
	}

	shortcuts := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+n", "new"},
		{"ctrl+j/k", "select"},
		{"ctrl+o", "open"},
		{"ctrl+d", "delete"},
		{"ctrl+l", "logout"},
		{"ctrl+c", "quit"},
	}

	parts := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		parts[i] = m.theme.ShortcutKey.Render(s.key) + " " + m.theme.ShortcutDesc.Render(s.desc)
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
