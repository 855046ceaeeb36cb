// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/ui/styles"
)

// RenderMessage renders one transcript entry: a role line with the local
// time, then the content in a bubble. Assistant content goes through md.
func RenderMessage(theme *styles.Theme, md *MarkdownRenderer, m model.Message, width int) string {
	if width < 20 {
		width = 20
	}
	header := theme.RoleLabel.Render(m.Role.DisplayName())
	if !m.Timestamp.IsZero() {
		header += " " + theme.Timestamp.Render(m.Timestamp.Local().Format("15:04"))
	}

	bubble := theme.AssistantBubble
	content := m.Content
	if m.IsUser() {
		bubble = theme.UserBubble
	} else {
		content = md.Render(content, width-4)
	}
	return header + "\n" + bubble.MaxWidth(width).Render(lipgloss.NewStyle().Width(width-4).Render(content))
}

// RenderTranscript renders messages in order, followed by an optional
// outgoing message that is still waiting for its reply.
func RenderTranscript(theme *styles.Theme, md *MarkdownRenderer, msgs []model.Message, outgoing *model.Message, waiting string, width int) string {
	parts := make([]string, 0, len(msgs)+2)
	for _, m := range msgs {
		parts = append(parts, RenderMessage(theme, md, m, width))
	}
	if outgoing != nil {
		parts = append(parts, RenderMessage(theme, md, *outgoing, width))
	}
	if waiting != "" {
		parts = append(parts, theme.PendingText.Render(waiting))
	}
	return strings.Join(parts, "\n\n")
}
