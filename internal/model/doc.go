// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// Conversations belong to exactly one mode for their whole life. Messages are
// values and are never edited once appended; updating a conversation returns
// a new Conversation value with a fresh message slice.
//
// # Key Types
//
//   - Message: one turn with role, content and timestamp
//   - Conversation: a titled, timestamped, mode-scoped list of messages
//   - Conversations: helpers over an ordered chat list (Find, Upsert, Remove, Dedupe)
//
// # Usage
//
//	conv := model.NewConversation(router.ModeCode, time.Now())
//	conv = conv.WithMessages(append(conv.Messages,
//	    model.NewUserMessage("write a function", now),
//	    model.NewAssistantMessage("func f() {}", now)), now)
//	chats = chats.Upsert(conv)
package model
