// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/atlas-tui/internal/ui/components"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case components.ToastExpiredMsg:
		m.toast.Expire(msg)
		return m, nil

	case authCheckedMsg:
		if !msg.authenticated && m.view == viewChat {
			m.view = viewLogin
			m.login.focusFirst()
		}
		return m, nil

	case loginResultMsg:
		m.login.submitting = false
		if msg.err != nil {
			m.login.errMsg = msg.err.Error()
			return m, nil
		}
		return m, m.enterChat()

	case loggedOutMsg:
		m.view = viewLogin
		m.login.focusFirst()
		return m, nil

	case historyLoadedMsg:
		m.refreshSidebar()
		m.refreshTranscript()
		if msg.err != nil {
			return m, m.toast.Show("couldn't reach the server; showing local history", components.ToastInfo)
		}
		return m, nil

	case sessionSwitchedMsg:
		m.refreshSidebar()
		m.refreshTranscript()
		if msg.err != nil {
			return m, m.toast.Show("failed to open conversation: "+msg.err.Error(), components.ToastError)
		}
		return m, nil

	case chatReplyMsg:
		m.thinking = false
		m.refreshSidebar()
		m.refreshTranscript()
		if msg.err != nil {
			return m, m.toast.Show("message failed: "+msg.err.Error(), components.ToastError)
		}
		return m, nil

	case deleteDoneMsg:
		if msg.err != nil {
			return m, m.toast.Show("delete failed: "+msg.err.Error(), components.ToastError)
		}
		m.refreshSidebar()
		m.refreshTranscript()
		return m, m.toast.Show("conversation deleted", components.ToastInfo)

	case loadingStuckMsg:
		if m.store.Loading() {
			return m, m.toast.Show("still loading... press esc for a new chat", components.ToastError)
		}
		return m, nil

	case transcriptRefreshMsg:
		m.refreshTranscript()
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Cfg)
		return m, nil
	}

	return m, m.updateFocused(msg)
}

// updateFocused forwards non-key messages (blink ticks and the like) to
// the focused inputs.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	if m.view == viewLogin {
		return m.login.update(msg)
	}
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.view == viewLogin {
		return m.handleLoginKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.login.cycle(1)
		return m, nil
	case "shift+tab", "up":
		m.login.cycle(-1)
		return m, nil
	case "ctrl+r":
		m.login.toggleMode()
		return m, nil
	case "enter":
		if m.login.submitting {
			return m, nil
		}
		return m, m.login.submit(m)
	}
	return m, m.login.update(msg)
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		content := strings.TrimSpace(m.input.Value())
		if content == "" || m.thinking {
			return m, nil
		}
		m.input.SetValue("")
		m.thinking = true
		// Send applies the user message optimistically as its first
		// step; the short tick repaints once it has landed.
		return m, tea.Batch(sendCmd(m.store, content), refreshSoonCmd())

	case "ctrl+n":
		m.store.NewChat()
		m.refreshSidebar()
		m.refreshTranscript()
		return m, nil

	case "ctrl+k":
		m.sidebar.MoveUp()
		return m, nil

	case "ctrl+j":
		m.sidebar.MoveDown()
		return m, nil

	case "ctrl+o":
		sess, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		return m, tea.Batch(
			switchCmd(m.store, sess.ID.String()),
			watchLoadingCmd(m.store),
		)

	case "ctrl+d":
		sess, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		return m, deleteCmd(m.store, sess.ID.String())

	case "ctrl+l":
		return m, logoutCmd(m.auth)

	case "esc":
		// Escape hatch for a stuck or unwanted load.
		if m.store.Loading() {
			m.store.NewChat()
			m.refreshSidebar()
			m.refreshTranscript()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	chatWidth := width - sidebarWidth - 2
	if chatWidth < 20 {
		chatWidth = 20
	}
	// Header, input and status bar each take a row plus borders.
	bodyHeight := height - 6
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = bodyHeight
	m.input.Width = chatWidth - 4
	m.sidebar.SetSize(sidebarWidth, bodyHeight)

	if m.renderer == nil {
		m.renderer = components.NewMessageRenderer(m.theme, chatWidth, m.cfg.UI.ShowTimestamps)
	} else {
		m.renderer.SetWidth(chatWidth)
	}
	m.refreshTranscript()
}
