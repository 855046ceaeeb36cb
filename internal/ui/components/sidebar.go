// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/ui/styles"
	"github.com/jeranaias/modechat/internal/util"
)

// SidebarProps is everything the chat list needs to render.
type SidebarProps struct {
	Mode     router.Mode
	Chats    model.Conversations
	ActiveID string
	// Cursor is the highlighted row when the sidebar has focus, -1 otherwise.
	Cursor  int
	Loading bool
	Width   int
	Height  int
}

// RenderSidebar renders the chat list for one mode. Each chat takes two
// lines: its title and a muted preview.
func RenderSidebar(theme *styles.Theme, p SidebarProps) string {
	inner := p.Width - 2
	if inner < 8 {
		inner = 8
	}

	var b strings.Builder
	b.WriteString(theme.SidebarTitle.Render(util.TruncateWidth(p.Mode.Label()+" chats", inner)))
	b.WriteString("\n")

	switch {
	case p.Loading:
		b.WriteString(theme.SidebarEmpty.Render("Loading…"))
	case len(p.Chats) == 0:
		b.WriteString(theme.SidebarEmpty.Render(util.TruncateWidth("No chats yet", inner)))
	default:
		rows := (p.Height - 2) / 2
		if rows < 1 {
			rows = len(p.Chats)
		}
		start := 0
		if p.Cursor >= rows {
			start = p.Cursor - rows + 1
		}
		for i := start; i < len(p.Chats) && i < start+rows; i++ {
			c := p.Chats[i]
			marker := "  "
			if c.ID == p.ActiveID {
				marker = "> "
			}
			title := util.PadWidth(util.TruncateWidth(marker+c.Title, inner), inner)
			style := theme.SidebarItem
			if i == p.Cursor || (p.Cursor < 0 && c.ID == p.ActiveID) {
				style = theme.SidebarSelected
			}
			b.WriteString(style.Render(title))
			b.WriteString("\n")
			b.WriteString(theme.SidebarPreview.Render(util.TruncateWidth("  "+c.Preview, inner)))
			b.WriteString("\n")
		}
	}

	out := theme.Sidebar.Width(p.Width)
	if p.Height > 0 {
		out = out.Height(p.Height)
	}
	return out.Render(strings.TrimRight(b.String(), "\n"))
}
