// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the atlas TUI: a login form and the chat layout,
// both driven by the auth controller and the chat store. The app itself
// holds no session or auth correctness logic; it renders store state and
// calls store actions.
package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/atlas-tui/internal/auth"
	"github.com/jeranaias/atlas-tui/internal/chat"
	"github.com/jeranaias/atlas-tui/internal/config"
	"github.com/jeranaias/atlas-tui/internal/ui/components"
	"github.com/jeranaias/atlas-tui/internal/ui/styles"
)

// =============================================================================
// VIEWS
// =============================================================================

// view selects which top-level screen is shown.
type view int

const (
	viewLogin view = iota
	viewChat
)

// sidebarWidth is the fixed width of the session list column.
const sidebarWidth = 28

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the atlas application.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config

	auth  *auth.Controller
	store *chat.Store

	view   view
	width  int
	height int

	// Chat layout
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	sidebar  *components.Sidebar
	renderer *components.MessageRenderer
	toast    components.Toast

	// A reply is being generated
	thinking bool

	// Login form
	login loginForm
}

// New creates the application model.
func New(cfg *config.Config, controller *auth.Controller, store *chat.Store) *Model {
	theme := styles.NewTheme(cfg.UI.Theme)

	input := textinput.New()
	input.Placeholder = "Ask about a policy, bill, or dataset..."
	input.Prompt = ""
	input.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := &Model{
		theme:    theme,
		cfg:      cfg,
		auth:     controller,
		store:    store,
		viewport: viewport.New(0, 0),
		input:    input,
		spinner:  sp,
		sidebar:  components.NewSidebar(cfg.UI.CompactSidebar),
		login:    newLoginForm(theme),
	}

	if controller.IsAuthenticated() {
		m.view = viewChat
		m.input.Focus()
	} else {
		m.view = viewLogin
		m.login.focusFirst()
	}
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, checkAuthCmd(m.auth)}
	if m.view == viewChat {
		cmds = append(cmds, loadHistoryCmd(m.store))
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// refreshTranscript re-renders the active session into the viewport.
func (m *Model) refreshTranscript() {
	if m.renderer == nil {
		return
	}
	m.viewport.SetContent(m.renderer.Render(m.store.Current()))
	m.viewport.GotoBottom()
}

// refreshSidebar reloads the session list into the sidebar.
func (m *Model) refreshSidebar() {
	m.sidebar.SetSessions(m.store.Sessions())
	m.sidebar.SelectID(m.store.Current().ID.String())
}

// applyConfig swaps in a reloaded configuration, rebuilding anything
// derived from it.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.theme = styles.NewTheme(cfg.UI.Theme)
	m.spinner.Style = m.theme.Spinner
	m.sidebar.SetCompact(cfg.UI.CompactSidebar)
	m.login.theme = m.theme

	if m.width > 0 && m.height > 0 {
		m.renderer = nil
		m.resize(m.width, m.height)
	}
}

// enterChat switches to the chat screen after authentication.
func (m *Model) enterChat() tea.Cmd {
	m.view = viewChat
	m.login.reset()
	m.input.Focus()
	return loadHistoryCmd(m.store)
}
