// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the modechat TUI.
//
// All colors are lipgloss.AdaptiveColor values so the UI reads on light and
// dark terminals alike. Each mode has its own accent color, used for its tab
// and for the switch notification.
//
// # Usage
//
//	theme := styles.NewTheme()
//	theme.SetSize(width, height)
//	tab := theme.Tab(router.ModeCode, true).Render("Code")
package styles
