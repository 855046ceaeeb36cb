// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/modechat/internal/router"
)

// backendFactories returns one constructor per Backend implementation so the
// same contract runs against each.
func backendFactories(t *testing.T) map[string]func() Backend {
	return map[string]func() Backend{
		BackendMemory: func() Backend { return NewMemoryBackend() },
		BackendFile: func() Backend {
			b, err := NewFileBackend(filepath.Join(t.TempDir(), "data"))
			require.NoError(t, err)
			return b
		},
		BackendSQLite: func() Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "modechat.db"))
			require.NoError(t, err)
			return b
		},
	}
}

func TestBackend_Contract(t *testing.T) {
	ctx := context.Background()

	for name, open := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			b := open()
			defer b.Close()

			_, ok, err := b.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Put(ctx, "chats:alice:code", []byte(`[1]`)))
			require.NoError(t, b.Put(ctx, "chats:alice:chat", []byte(`[2]`)))
			require.NoError(t, b.Put(ctx, "api_key:alice", []byte(`k`)))

			v, ok, err := b.Get(ctx, "chats:alice:code")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `[1]`, string(v))

			require.NoError(t, b.Put(ctx, "chats:alice:code", []byte(`[3]`)))
			v, _, _ = b.Get(ctx, "chats:alice:code")
			assert.Equal(t, `[3]`, string(v))

			keys, err := b.Keys(ctx, "chats:alice:")
			require.NoError(t, err)
			assert.Equal(t, []string{"chats:alice:chat", "chats:alice:code"}, keys)

			require.NoError(t, b.Delete(ctx, "chats:alice:code"))
			require.NoError(t, b.Delete(ctx, "chats:alice:code"))
			_, ok, _ = b.Get(ctx, "chats:alice:code")
			assert.False(t, ok)
		})
	}
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b1, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, b1.Put(ctx, "chats:a:b:code", []byte("x")))

	b2, err := NewFileBackend(dir)
	require.NoError(t, err)
	v, ok, err := b2.Get(ctx, "chats:a:b:code")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", string(v))

	// Colons never reach the file name.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	b1, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, b1.Put(ctx, "k", []byte("v")))
	require.NoError(t, b1.Close())

	b2, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	defer b2.Close()
	v, ok, err := b2.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestOpenBackend(t *testing.T) {
	b, err := OpenBackend(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	_, err = OpenBackend("redis", "")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "chats:alice:code", ChatsKey("alice", router.ModeCode))
	assert.Equal(t, "api_key:alice", APIKeyKey("alice"))
	// A colon in the user id cannot forge another user's key.
	assert.NotEqual(t, ChatsKey("a:chats", router.ModeCode), ChatsKey("a", router.ModeCode))
	assert.Equal(t, "chats:a%3Ab:chat", ChatsKey("a:b", router.ModeChat))
}
