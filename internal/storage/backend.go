// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jeranaias/modechat/internal/router"
)

// =============================================================================
// BACKEND
// =============================================================================

// Backend is a durable key-value store. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Get returns the value for key. The bool is false when the key is unset.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put sets key to value, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend.
	Close() error
}

// Backend kinds accepted by OpenBackend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// OpenBackend opens a backend of the given kind. path is the directory for
// the file backend and the database file for sqlite; memory ignores it.
func OpenBackend(kind, path string) (Backend, error) {
	switch kind {
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile:
		return NewFileBackend(path)
	case BackendSQLite:
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// =============================================================================
// KEYS
// =============================================================================

const (
	chatsPrefix  = "chats:"
	apiKeyPrefix = "api_key:"
)

// ChatsKey is the key holding the chat list for (user, mode).
func ChatsKey(user string, mode router.Mode) string {
	return chatsPrefix + escapeUser(user) + ":" + mode.String()
}

// APIKeyKey is the key holding user's API key override.
func APIKeyKey(user string) string {
	return apiKeyPrefix + escapeUser(user)
}

// escapeUser keeps a ':' in a user id from reaching into the mode segment.
func escapeUser(user string) string {
	return url.QueryEscape(strings.TrimSpace(user))
}
