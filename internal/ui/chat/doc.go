// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat view for modechat.

The view is a Bubble Tea model wrapped around a session.Controller. It owns
no conversation state of its own: every frame is rendered from the
controller's Snapshot, and every asynchronous result (chat loads, switch
timeouts, replies) is handed back to the controller's Update.

# Layout

	┌ tabs: 1 Code  2 Chat  3 Explain  4 Roadmap ───────────┐
	│ chats for the mode │ transcript (viewport)            │
	│                    │                                  │
	├────────────────────┴──────────────────────────────────┤
	│ input                                                 │
	│ status bar                                            │
	└───────────────────────────────────────────────────────┘

Mode switches, whether chosen by the user or by the classifier, are
announced with a toast. Storage warnings from the controller are shown the
same way.

# Keys

Enter sends, Alt+Enter inserts a newline. Alt+1..4 or Ctrl+Left/Right change
mode. Tab moves focus between the input and the chat list, where Up/Down and
Enter open a chat. Ctrl+N starts a chat, Ctrl+D deletes one, Ctrl+R retries
the last request and Ctrl+Y copies the last reply. Esc dismisses the newest
toast and Ctrl+C quits.
*/
package chat
