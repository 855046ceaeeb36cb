// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat lists and the per-user API key override.
//
// Everything is stored through a small key-value Backend. Chat lists live
// under "chats:<user>:<mode>" and are always read and written whole. The API
// key override lives under "api_key:<user>".
//
// # Key Types
//
//   - Backend: injected durable key-value capability
//   - MemoryBackend, FileBackend, SQLiteBackend: Backend implementations
//   - ConversationStore: fail-soft Load and best-effort Save of chat lists
//   - CredentialStore: the API key override
//
// # Usage
//
//	backend, err := storage.OpenBackend(storage.BackendFile, dir)
//	store := storage.NewConversationStore(backend, log)
//	chats, warn := store.Load(ctx, "alice", router.ModeCode) // never nil
//	err = store.Save(ctx, "alice", router.ModeCode, chats)
//
// # Storage Location
//
// The file backend keeps one JSON file per key in ~/.modechat/data/.
// The sqlite backend keeps a single kv table in ~/.modechat/modechat.db.
package storage
