// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/atlas-tui/internal/auth"
	"github.com/jeranaias/atlas-tui/internal/chat"
	"github.com/jeranaias/atlas-tui/internal/config"
)

// =============================================================================
// MESSAGES
// =============================================================================

// authCheckedMsg reports a background CheckAuth pass.
type authCheckedMsg struct {
	authenticated bool
}

// loginResultMsg reports a login or register attempt.
type loginResultMsg struct {
	err error
}

// historyLoadedMsg reports the session list load.
type historyLoadedMsg struct {
	err error
}

// sessionSwitchedMsg reports a SwitchTo round trip.
type sessionSwitchedMsg struct {
	id  string
	err error
}

// chatReplyMsg reports a Send round trip.
type chatReplyMsg struct {
	err error
}

// deleteDoneMsg reports a delete round trip.
type deleteDoneMsg struct {
	err error
}

// loadingStuckMsg fires when a session load exceeds its patience window.
type loadingStuckMsg struct{}

// transcriptRefreshMsg asks for a repaint of the chat transcript.
type transcriptRefreshMsg struct{}

// loggedOutMsg reports logout completion.
type loggedOutMsg struct{}

// ConfigReloadedMsg carries a fresh configuration picked up from disk.
// It is sent from outside the program by the config watcher.
type ConfigReloadedMsg struct {
	Cfg *config.Config
}

// loadingEscapeAfter is how long a session switch may spin before the UI
// offers a way out.
const loadingEscapeAfter = 5 * time.Second

// =============================================================================
// COMMANDS
// =============================================================================

func checkAuthCmd(controller *auth.Controller) tea.Cmd {
	return func() tea.Msg {
		ok := controller.CheckAuth(context.Background(), auth.RouteChat)
		return authCheckedMsg{authenticated: ok}
	}
}

func loginCmd(controller *auth.Controller, email, password string) tea.Cmd {
	return func() tea.Msg {
		return loginResultMsg{err: controller.Login(context.Background(), email, password)}
	}
}

func registerCmd(controller *auth.Controller, email, password, name string) tea.Cmd {
	return func() tea.Msg {
		return loginResultMsg{err: controller.Register(context.Background(), email, password, name)}
	}
}

func logoutCmd(controller *auth.Controller) tea.Cmd {
	return func() tea.Msg {
		controller.Logout(context.Background())
		return loggedOutMsg{}
	}
}

func loadHistoryCmd(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{err: store.LoadHistory(context.Background())}
	}
}

func switchCmd(store *chat.Store, id string) tea.Cmd {
	return func() tea.Msg {
		return sessionSwitchedMsg{id: id, err: store.SwitchTo(context.Background(), id)}
	}
}

func sendCmd(store *chat.Store, content string) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Send(context.Background(), content)
		return chatReplyMsg{err: err}
	}
}

func deleteCmd(store *chat.Store, id string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{err: store.Delete(context.Background(), id)}
	}
}

// refreshSoonCmd schedules a near-immediate transcript repaint, giving
// an in-flight optimistic append time to land.
func refreshSoonCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return transcriptRefreshMsg{}
	})
}

// watchLoadingCmd arms a loading watch alongside a switch. If the store
// is still loading when the patience window elapses the command delivers
// loadingStuckMsg; otherwise it expires quietly.
func watchLoadingCmd(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		stuck := make(chan struct{})
		w := chat.WatchLoading(store, loadingEscapeAfter, func() { close(stuck) })
		defer w.Cancel()

		select {
		case <-stuck:
			return loadingStuckMsg{}
		case <-time.After(loadingEscapeAfter + 250*time.Millisecond):
			return nil
		}
	}
}
