// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across modechat.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal columns
//   - PadWidth: right-pad to a display width
//   - CollapseSpace: fold runs of whitespace for one-line previews
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateRunes(firstMessage, 30)
//	cell := util.PadWidth(util.TruncateWidth(title, 24), 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
