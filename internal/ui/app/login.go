// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/atlas-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

// loginForm is the email/password (and optional name) form shown before
// authentication. Tab cycles fields, Ctrl+R toggles register mode.
type loginForm struct {
	theme *styles.Theme

	email    textinput.Model
	password textinput.Model
	name     textinput.Model

	registering bool
	focus       int
	errMsg      string
	submitting  bool
}

func newLoginForm(theme *styles.Theme) loginForm {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 120

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 120
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	name := textinput.New()
	name.Placeholder = "display name"
	name.CharLimit = 80

	return loginForm{
		theme:    theme,
		email:    email,
		password: password,
		name:     name,
	}
}

func (f *loginForm) fields() []*textinput.Model {
	fields := []*textinput.Model{&f.email, &f.password}
	if f.registering {
		fields = append(fields, &f.name)
	}
	return fields
}

func (f *loginForm) focusFirst() {
	f.focus = 0
	f.applyFocus()
}

func (f *loginForm) applyFocus() {
	for i, field := range f.fields() {
		if i == f.focus {
			field.Focus()
		} else {
			field.Blur()
		}
	}
}

func (f *loginForm) cycle(delta int) {
	n := len(f.fields())
	f.focus = (f.focus + delta + n) % n
	f.applyFocus()
}

func (f *loginForm) toggleMode() {
	f.registering = !f.registering
	f.errMsg = ""
	if f.focus >= len(f.fields()) {
		f.focus = 0
	}
	f.applyFocus()
}

func (f *loginForm) reset() {
	f.password.SetValue("")
	f.errMsg = ""
	f.submitting = false
}

// update routes key and blink messages into the focused field.
func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, field := range f.fields() {
		var cmd tea.Cmd
		*field, cmd = field.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// submit validates the form and returns the auth command, or nil with an
// inline error.
func (f *loginForm) submit(m *Model) tea.Cmd {
	email := strings.TrimSpace(f.email.Value())
	password := f.password.Value()

	if email == "" || password == "" {
		f.errMsg = "email and password are required"
		return nil
	}

	f.submitting = true
	f.errMsg = ""
	if f.registering {
		name := strings.TrimSpace(f.name.Value())
		if name == "" {
			name = email
		}
		return registerCmd(m.auth, email, password, name)
	}
	return loginCmd(m.auth, email, password)
}

// view renders the centered form box.
func (f *loginForm) view(width, height int) string {
	title := "Sign in to Atlas"
	action := "sign in"
	if f.registering {
		title = "Create an Atlas account"
		action = "register"
	}

	var sb strings.Builder
	sb.WriteString(f.theme.LoginTitle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(f.email.View())
	sb.WriteString("\n")
	sb.WriteString(f.password.View())
	sb.WriteString("\n")
	if f.registering {
		sb.WriteString(f.name.View())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if f.errMsg != "" {
		sb.WriteString(f.theme.LoginError.Render(f.errMsg))
		sb.WriteString("\n")
	}
	if f.submitting {
		sb.WriteString(f.theme.LoginHint.Render("signing in..."))
		sb.WriteString("\n")
	}

	sb.WriteString(f.theme.LoginHint.Render(
		"enter " + action + " · tab next field · ctrl+r toggle register · ctrl+c quit"))
	sb.WriteString("\n")
	sb.WriteString(f.theme.LoginHint.Render("google sign-in: run `atlas login --google`"))

	box := f.theme.LoginBox.Render(sb.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
