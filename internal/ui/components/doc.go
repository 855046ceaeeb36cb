// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable pieces of the modechat TUI.
//
// # Key Types
//
//   - ToastManager: auto-dismissing notifications such as mode switches
//   - MarkdownRenderer: glamour rendering with a plain text fallback
//
// Rendering helpers (RenderTabs, RenderSidebar, RenderMessage) are pure
// functions of their inputs so they can be tested without a terminal.
package components
