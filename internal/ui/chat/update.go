// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/ui/components"
)

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case session.ChatsLoadedMsg, session.SwitchTimeoutMsg, session.DispatchResultMsg:
		cmds = append(cmds, m.ctrl.Update(msg))

	case components.ToastTickMsg:
		m.toasts.Tick()
		if m.toasts.HasToasts() {
			cmds = append(cmds, components.ToastTickCmd())
		} else {
			m.ticking = false
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.collectNotifications())
	m.refresh()
	if m.quitting {
		return m, tea.Quit
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if !m.toasts.DismissNewest() && m.focus == focusSidebar {
			m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextMode):
		return m.changeMode(m.shiftMode(1))

	case key.Matches(msg, m.keys.PrevMode):
		return m.changeMode(m.shiftMode(-1))

	case key.Matches(msg, m.keys.FocusSidebar):
		if m.focus == focusSidebar {
			m.focusInput()
		} else if m.sidebarWidth() > 0 {
			m.focusChats()
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.focusInput()
		}
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.report(m.ctrl.NewChat())
		m.cursor = -1
		if m.focus == focusSidebar {
			m.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		cmd, err := m.ctrl.Retry()
		m.report(err)
		return m, cmd

	case key.Matches(msg, m.keys.CopyReply):
		m.copyLastReply()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if mode, ok := m.keys.modeFor(msg); ok {
		return m.changeMode(mode)
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}
	if key.Matches(msg, m.keys.DeleteChat) && m.input.Value() == "" {
		m.deleteChat(m.ctrl.Snapshot().ActiveID)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	chats := m.ctrl.Snapshot().Chats
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(chats)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if m.cursor < 0 || m.cursor >= len(chats) {
			return m, nil
		}
		cmd, err := m.ctrl.SelectChat(chats[m.cursor].ID, m.ctrl.Mode())
		m.report(err)
		m.focusInput()
		return m, cmd
	case key.Matches(msg, m.keys.DeleteChat):
		if m.cursor >= 0 && m.cursor < len(chats) {
			m.deleteChat(chats[m.cursor].ID)
		}
	}
	return m, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) submit() (Model, tea.Cmd) {
	cmd, err := m.ctrl.Submit(m.input.Value())
	switch {
	case errors.Is(err, session.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, session.ErrBusy):
		m.toasts.AddStatus("Still waiting for the last reply")
		return m, m.startTicking()
	case err != nil:
		m.report(err)
		return m, nil
	}
	m.input.Reset()
	return m, cmd
}

// changeMode switches tabs. A message that was queued for another mode is
// put back into the input so it is not lost.
func (m Model) changeMode(mode router.Mode) (Model, tea.Cmd) {
	cmd, err := m.ctrl.ChangeMode(mode)
	m.report(err)
	if draft := m.ctrl.TakeDraft(); draft != "" && m.input.Value() == "" {
		m.input.SetValue(draft)
	}
	if m.focus == focusSidebar {
		m.cursor = 0
	}
	return m, cmd
}

func (m Model) shiftMode(delta int) router.Mode {
	modes := router.AllModes()
	idx := 0
	for i, mode := range modes {
		if mode == m.ctrl.Mode() {
			idx = i
		}
	}
	idx = (idx + delta + len(modes)) % len(modes)
	return modes[idx]
}

func (m *Model) deleteChat(id string) {
	if id == "" {
		return
	}
	if err := m.ctrl.DeleteChat(id); err != nil {
		m.report(err)
		return
	}
	if n := len(m.ctrl.Snapshot().Chats); m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m *Model) copyLastReply() {
	reply, ok := lastReply(m.ctrl.Snapshot().Transcript)
	if !ok {
		m.toasts.AddStatus("No reply to copy")
		return
	}
	if err := m.copy(reply); err != nil {
		m.toasts.AddWarning("Clipboard unavailable: " + err.Error())
		return
	}
	m.toasts.AddStatus("Copied reply to clipboard")
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.cursor = -1
	m.input.Focus()
}

func (m *Model) focusChats() {
	m.focus = focusSidebar
	m.input.Blur()
	m.cursor = 0
	snap := m.ctrl.Snapshot()
	if i := snap.Chats.Index(snap.ActiveID); i >= 0 {
		m.cursor = i
	}
}

// report shows a controller error as a toast.
func (m *Model) report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, session.ErrBusy):
		m.toasts.AddStatus("Busy switching modes, try again in a moment")
	case errors.Is(err, session.ErrNothingToRetry):
		m.toasts.AddStatus("Nothing to retry")
	default:
		m.toasts.AddWarning(err.Error())
	}
}

// =============================================================================
// NOTIFICATIONS AND REFRESH
// =============================================================================

// collectNotifications turns mode notifications and new storage warnings
// into toasts.
func (m *Model) collectNotifications() tea.Cmd {
	for _, n := range m.events.Drain() {
		m.toasts.AddMode(n.Mode, n.At)
	}
	if w := m.ctrl.Snapshot().Warning; w != m.lastWarning {
		m.lastWarning = w
		if w != "" {
			m.toasts.AddWarning(w)
		}
	}
	return m.startTicking()
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking || !m.toasts.HasToasts() {
		return nil
	}
	m.ticking = true
	return components.ToastTickCmd()
}

// refresh re-renders the transcript into the viewport when it changed.
func (m *Model) refresh() {
	snap := m.ctrl.Snapshot()
	waiting := ""
	if snap.Outgoing != nil {
		waiting = m.spinner.View() + " Thinking…"
	}
	content := components.RenderTranscript(m.theme, m.md, snap.Transcript, snap.Outgoing, waiting, m.viewport.Width-2)
	if len(snap.Transcript) == 0 && snap.Outgoing == nil {
		content = m.renderWelcome(snap)
	}
	if content == m.lastContent {
		return
	}
	m.lastContent = content
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func lastReply(msgs []model.Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i].Content, true
		}
	}
	return "", false
}
