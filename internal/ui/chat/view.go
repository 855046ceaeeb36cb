// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/ui/components"
	"github.com/jeranaias/modechat/internal/ui/styles"
)

// View renders the chat view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	snap := m.ctrl.Snapshot()

	tabs := components.RenderTabs(m.theme, snap.Mode, snap.State == session.StateSwitching, m.width)

	body := m.viewport.View()
	if sw := m.sidebarWidth(); sw > 0 {
		sidebar := components.RenderSidebar(m.theme, components.SidebarProps{
			Mode:     snap.Mode,
			Chats:    snap.Chats,
			ActiveID: snap.ActiveID,
			Cursor:   m.cursor,
			Loading:  snap.State == session.StateSwitching,
			Width:    sw,
			Height:   m.viewport.Height,
		})
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", body)
	}

	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		body = overlayBottomRight(body, components.RenderToastStack(toasts, m.width, m.now()), m.width)
	}

	inputStyle := m.theme.InputContainer
	if m.focus == focusSidebar {
		inputStyle = m.theme.InputDisabled
	}
	input := inputStyle.Width(max(m.width-2, 10)).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, tabs, body, input, m.renderStatusBar(snap))
}

// renderStatusBar shows the session state on the left and shortcuts on the
// right.
func (m Model) renderStatusBar(snap session.Snapshot) string {
	var left string
	switch snap.State {
	case session.StateSending:
		left = m.spinner.View() + " Waiting for reply"
	case session.StateSwitching:
		left = m.spinner.View() + " Loading " + snap.Mode.Label() + " chats"
		if snap.Pending != nil && snap.Pending.Kind == session.PendingSend {
			left += ", message queued"
		}
	default:
		left = styles.StatusIndicators.Active + " " + snap.Mode.Label()
	}
	left += "  " + m.theme.ShortcutDesc.Render(snap.User.DisplayName+" · "+snap.Language)
	if !snap.HasAPIKey {
		left += "  " + m.theme.Warning.Render("no API key")
	}
	if snap.Warning != "" {
		left += "  " + m.theme.Warning.Render(styles.StatusIndicators.Warning+" storage")
	}

	hints := make([]string, 0, 5)
	for _, b := range m.keys.ShortHelp() {
		if b.Help().Key == "C-r" && !snap.CanRetry {
			continue
		}
		hints = append(hints, m.theme.ShortcutKey.Render(b.Help().Key)+" "+m.theme.ShortcutDesc.Render(b.Help().Desc))
	}
	right := strings.Join(hints, "  ")

	inner := max(m.width-2, 0)
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	line := left
	if gap >= 2 {
		line = left + strings.Repeat(" ", gap) + right
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(line)
}

// renderWelcome is shown in place of an empty transcript.
func (m Model) renderWelcome(snap session.Snapshot) string {
	var b strings.Builder
	b.WriteString(m.theme.WelcomeTitle.Render(snap.Mode.Label() + " mode"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render(snap.Mode.Description()))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Messages that belong to another mode switch tabs on their own."))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// overlayBottomRight draws overlay over the bottom right corner of base.
func overlayBottomRight(base, overlay string, width int) string {
	baseLines := strings.Split(base, "\n")
	overLines := strings.Split(overlay, "\n")
	if len(overLines) > len(baseLines) {
		overLines = overLines[len(overLines)-len(baseLines):]
	}
	offset := len(baseLines) - len(overLines)
	for i, ol := range overLines {
		ow := lipgloss.Width(ol)
		keep := max(width-ow-1, 0)
		line := baseLines[offset+i]
		prefix := ansi.Truncate(line, keep, "")
		if pad := keep - ansi.StringWidth(prefix); pad > 0 {
			prefix += strings.Repeat(" ", pad)
		}
		baseLines[offset+i] = prefix + ol
	}
	return strings.Join(baseLines, "\n")
}
