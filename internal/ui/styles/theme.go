// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the atlas TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble  lipgloss.Style
	AIBubble    lipgloss.Style
	MessageMeta lipgloss.Style
	PayloadNote lipgloss.Style

	// ==========================================================================
	// SIDEBAR STYLES
	// ==========================================================================

	Sidebar             lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionMeta         lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// STATUS AND FEEDBACK STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	ToastError   lipgloss.Style
	ToastInfo    lipgloss.Style

	// ==========================================================================
	// LOGIN FORM STYLES
	// ==========================================================================

	LoginBox   lipgloss.Style
	LoginTitle lipgloss.Style
	LoginError lipgloss.Style
	LoginHint  lipgloss.Style
}

// palette holds the raw colors for one theme variant.
type palette struct {
	accent    lipgloss.Color
	accentDim lipgloss.Color
	fg        lipgloss.Color
	muted     lipgloss.Color
	border    lipgloss.Color
	errFg     lipgloss.Color
	userBg    lipgloss.Color
	aiBg      lipgloss.Color
}

func darkPalette() palette {
	return palette{
		accent:    lipgloss.Color("#7aa2f7"),
		accentDim: lipgloss.Color("#3b4261"),
		fg:        lipgloss.Color("#c0caf5"),
		muted:     lipgloss.Color("#565f89"),
		border:    lipgloss.Color("#3b4261"),
		errFg:     lipgloss.Color("#f7768e"),
		userBg:    lipgloss.Color("#1f2335"),
		aiBg:      lipgloss.Color("#16161e"),
	}
}

func lightPalette() palette {
	return palette{
		accent:    lipgloss.Color("#2e5aac"),
		accentDim: lipgloss.Color("#c4d0e8"),
		fg:        lipgloss.Color("#343b58"),
		muted:     lipgloss.Color("#8990b3"),
		border:    lipgloss.Color("#c4c8da"),
		errFg:     lipgloss.Color("#8c4351"),
		userBg:    lipgloss.Color("#e6ebf5"),
		aiBg:      lipgloss.Color("#f2f3f7"),
	}
}

// NewTheme builds a theme for the named variant ("dark" or "light").
func NewTheme(variant string) *Theme {
	p := darkPalette()
	isDark := true
	if variant == "light" {
		p = lightPalette()
		isDark = false
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.App = lipgloss.NewStyle().Foreground(p.fg)
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(p.border).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(p.accent)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(p.muted)

	t.UserBubble = lipgloss.NewStyle().
		Background(p.userBg).
		Foreground(p.fg).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.accentDim)
	t.AIBubble = lipgloss.NewStyle().
		Background(p.aiBg).
		Foreground(p.fg).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.border)
	t.MessageMeta = lipgloss.NewStyle().Foreground(p.muted)
	t.PayloadNote = lipgloss.NewStyle().Foreground(p.muted).Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(p.border).
		Padding(0, 1)
	t.SessionItem = lipgloss.NewStyle().Foreground(p.fg)
	t.SessionItemSelected = lipgloss.NewStyle().
		Foreground(p.accent).
		Bold(true)
	t.SessionMeta = lipgloss.NewStyle().Foreground(p.muted)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.border).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(p.accent).Bold(true)

	t.StatusBar = lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(p.accent)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(p.muted)
	t.Spinner = lipgloss.NewStyle().Foreground(p.accent)
	t.ToastError = lipgloss.NewStyle().
		Foreground(p.errFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.errFg).
		Padding(0, 1)
	t.ToastInfo = lipgloss.NewStyle().
		Foreground(p.accent).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.accentDim).
		Padding(0, 1)

	t.LoginBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.border).
		Padding(1, 3)
	t.LoginTitle = lipgloss.NewStyle().Bold(true).Foreground(p.accent).MarginBottom(1)
	t.LoginError = lipgloss.NewStyle().Foreground(p.errFg)
	t.LoginHint = lipgloss.NewStyle().Foreground(p.muted)

	return t
}

// GlamourStyle returns the glamour style name matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
