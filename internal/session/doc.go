// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat session: the active mode, the conversation
// list for that mode, the active transcript and the one request that may be
// in flight.
//
// # Key Types
//
//   - Controller: the session state machine (Idle, Switching, Sending)
//   - Emitter: receives a Notification whenever a message switches modes
//   - Snapshot: read-only view of the controller for renderers
//
// # Usage
//
// The controller follows the Bubble Tea model. Operations mutate state and
// return a tea.Cmd for the I/O they need; results come back as messages that
// are fed to Update:
//
//	ctrl, err := session.New(deps, session.DefaultConfig())
//	cmd, err := ctrl.Submit("write a sorting function")
//	// inside a tea.Program the runtime executes cmd and calls Update;
//	// outside one, Drive does it:
//	err = session.Drive(ctx, ctrl, cmd)
//
// # Mode switches
//
// When a message classifies to a mode other than the active one, the
// controller announces the switch, reloads that mode's chats, and only then
// sends the message as the first turn of a new conversation. Messages typed
// while a switch is still loading replace each other; only the last one is
// sent. A watchdog completes the switch with a synchronous load if the
// reload never reports back.
package session
