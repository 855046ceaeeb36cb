// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/modechat/internal/router"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat view.
type KeyMap struct {
	Submit        key.Binding
	Newline       key.Binding
	ModeCode      key.Binding
	ModeChat      key.Binding
	ModeExplain   key.Binding
	ModeRoadmap   key.Binding
	NextMode      key.Binding
	PrevMode      key.Binding
	FocusSidebar  key.Binding
	ToggleSidebar key.Binding
	Up            key.Binding
	Down          key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	NewChat       key.Binding
	DeleteChat    key.Binding
	Retry         key.Binding
	CopyReply     key.Binding
	Dismiss       key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		ModeCode: key.NewBinding(
			key.WithKeys("alt+1"),
			key.WithHelp("alt+1", "code"),
		),
		ModeChat: key.NewBinding(
			key.WithKeys("alt+2"),
			key.WithHelp("alt+2", "chat"),
		),
		ModeExplain: key.NewBinding(
			key.WithKeys("alt+3"),
			key.WithHelp("alt+3", "explain"),
		),
		ModeRoadmap: key.NewBinding(
			key.WithKeys("alt+4"),
			key.WithHelp("alt+4", "roadmap"),
		),
		NextMode: key.NewBinding(
			key.WithKeys("ctrl+right"),
			key.WithHelp("C-→", "next mode"),
		),
		PrevMode: key.NewBinding(
			key.WithKeys("ctrl+left"),
			key.WithHelp("C-←", "prev mode"),
		),
		FocusSidebar: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "chats"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "sidebar"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		DeleteChat: key.NewBinding(
			key.WithKeys("ctrl+d", "delete"),
			key.WithHelp("C-d", "delete chat"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "retry"),
		),
		CopyReply: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.FocusSidebar, k.NewChat, k.Retry, k.Quit}
}

// FullHelp returns every binding, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.Retry, k.CopyReply},
		{k.ModeCode, k.ModeChat, k.ModeExplain, k.ModeRoadmap, k.NextMode, k.PrevMode},
		{k.FocusSidebar, k.ToggleSidebar, k.Up, k.Down, k.NewChat, k.DeleteChat},
		{k.PageUp, k.PageDown, k.Dismiss, k.Quit},
	}
}

// modeFor returns the mode a direct mode binding selects.
func (k KeyMap) modeFor(msg tea.KeyMsg) (router.Mode, bool) {
	switch {
	case key.Matches(msg, k.ModeCode):
		return router.ModeCode, true
	case key.Matches(msg, k.ModeChat):
		return router.ModeChat, true
	case key.Matches(msg, k.ModeExplain):
		return router.ModeExplain, true
	case key.Matches(msg, k.ModeRoadmap):
		return router.ModeRoadmap, true
	}
	return router.ModeCode, false
}
