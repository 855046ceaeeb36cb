// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/ui/styles"
)

// RenderTabs renders the mode tab bar. Each tab shows its number shortcut.
// A loading mode is marked with a trailing ellipsis.
func RenderTabs(theme *styles.Theme, active router.Mode, loading bool, width int) string {
	modes := router.AllModes()
	tabs := make([]string, 0, len(modes))
	for i, m := range modes {
		label := strconv.Itoa(i+1) + " " + m.Label()
		if m == active && loading {
			label += "…"
		}
		tabs = append(tabs, theme.Tab(m, m == active).Render(label))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if width > 0 {
		return theme.TabBar.Width(width).Render(row)
	}
	return theme.TabBar.Render(row)
}
