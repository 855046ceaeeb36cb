// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/ui/components"
	"github.com/jeranaias/modechat/internal/ui/styles"
)

// focusArea is the part of the screen receiving keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// Options configures the chat view.
type Options struct {
	// Sidebar shows the chat list when the terminal is wide enough.
	Sidebar bool
	// Markdown renders assistant replies with glamour.
	Markdown bool
	// MarkdownStyle is a glamour style name; empty means auto.
	MarkdownStyle string
	// ToastDuration is how long mode notifications stay up.
	ToastDuration time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Copy writes text to the clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl   *session.Controller
	events *session.Queue

	// Styling
	theme *styles.Theme
	md    *components.MarkdownRenderer

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	toasts   *components.ToastManager
	keys     KeyMap

	// Dimensions
	width  int
	height int

	// Sidebar
	showSidebar bool
	focus       focusArea
	cursor      int

	now         func() time.Time
	copy        func(string) error
	ticking     bool
	lastWarning string
	lastContent string
	quitting    bool
}

// New creates the chat view over ctrl. events must be the Queue the
// controller emits notifications to.
func New(ctrl *session.Controller, events *session.Queue, opts Options) Model {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	keys := DefaultKeyMap()

	input := textarea.New()
	input.Placeholder = "Ask anything. The mode follows your message."
	input.ShowLineNumbers = false
	input.Prompt = "┃ "
	input.CharLimit = 0
	input.SetHeight(3)
	input.KeyMap.InsertNewline = keys.Newline
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme := styles.NewTheme()
	sp.Style = theme.Spinner

	toasts := components.NewToastManager(opts.ToastDuration)
	toasts.SetClock(opts.Clock)

	m := Model{
		ctrl:        ctrl,
		events:      events,
		theme:       theme,
		md:          components.NewMarkdownRenderer(opts.Markdown, opts.MarkdownStyle),
		viewport:    viewport.New(80, 20),
		input:       input,
		spinner:     sp,
		toasts:      toasts,
		keys:        keys,
		showSidebar: opts.Sidebar,
		cursor:      -1,
		now:         opts.Clock,
		copy:        opts.Copy,
	}
	m.resize(80, 24)
	return m
}

// Init loads the chats of the starting mode.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ctrl.Init(), textarea.Blink, m.spinner.Tick)
}

// Controller returns the session behind the view.
func (m Model) Controller() *session.Controller {
	return m.ctrl
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// sidebarWidth is the chat list's width, or 0 when hidden.
func (m Model) sidebarWidth() int {
	if !m.showSidebar {
		return 0
	}
	return m.theme.SidebarWidth()
}

// resize lays out the fixed-size parts for a width x height terminal.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)

	m.input.SetWidth(max(width-4, 10))

	vpWidth := width - m.sidebarWidth()
	if m.sidebarWidth() > 0 {
		vpWidth -= 2
	}
	m.viewport.Width = max(vpWidth, 20)
	m.viewport.Height = max(height-chromeHeight, 3)
	m.lastContent = ""
}

// chromeHeight is everything that is not transcript: tab bar (2), input
// box (5) and status bar (1).
const chromeHeight = 8
