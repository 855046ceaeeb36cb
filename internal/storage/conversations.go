// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a conversation id is in no mode's list.
var ErrNotFound = errors.New("conversation not found")

// StoreError is a read or write failure against the backend. Load and Save
// return it as a warning; the caller keeps going.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore reads and writes whole chat lists per (user, mode).
type ConversationStore struct {
	backend Backend
	log     zerolog.Logger
}

// NewConversationStore creates a store over backend.
func NewConversationStore(backend Backend, log zerolog.Logger) *ConversationStore {
	return &ConversationStore{
		backend: backend,
		log:     log.With().Str("component", "store").Logger(),
	}
}

// Load returns the chat list for (user, mode). It never fails the caller:
// on a backend or decode error it returns an empty list together with a
// *StoreError describing what went wrong. Duplicate ids are dropped, as are
// conversations recorded under another mode.
func (s *ConversationStore) Load(ctx context.Context, user string, mode router.Mode) (model.Conversations, error) {
	key := ChatsKey(user, mode)

	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("store load failed")
		return model.Conversations{}, &StoreError{Op: "load", Key: key, Err: err}
	}
	if !ok || len(data) == 0 {
		return model.Conversations{}, nil
	}

	var stored model.Conversations
	if err := json.Unmarshal(data, &stored); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("store load: corrupt chat list, starting empty")
		return model.Conversations{}, &StoreError{Op: "decode", Key: key, Err: err}
	}

	out := make(model.Conversations, 0, len(stored))
	for _, c := range stored {
		switch {
		case c.Mode == "":
			c.Mode = mode
		case c.Mode != mode:
			s.log.Warn().Str("key", key).Str("chat", c.ID).Str("chat_mode", c.Mode.String()).
				Msg("store load: dropping chat filed under the wrong mode")
			continue
		}
		if c.Messages == nil {
			c.Messages = []model.Message{}
		}
		out = append(out, c)
	}

	deduped := out.Dedupe()
	if len(deduped) != len(out) {
		s.log.Warn().Str("key", key).Int("dropped", len(out)-len(deduped)).Msg("store load: dropped duplicate chat ids")
	}
	return deduped, nil
}

// Save overwrites the chat list for (user, mode). Conversations of another
// mode are not written. Failures are logged and returned; nothing panics.
func (s *ConversationStore) Save(ctx context.Context, user string, mode router.Mode, chats model.Conversations) error {
	key := ChatsKey(user, mode)

	out := make(model.Conversations, 0, len(chats))
	for _, c := range chats.Dedupe() {
		if c.Mode != mode {
			s.log.Warn().Str("key", key).Str("chat", c.ID).Str("chat_mode", c.Mode.String()).
				Msg("store save: refusing chat of another mode")
			continue
		}
		out = append(out, c)
	}

	data, err := json.Marshal(out)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("store save: encode failed")
		return &StoreError{Op: "encode", Key: key, Err: err}
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("store save failed")
		return &StoreError{Op: "save", Key: key, Err: err}
	}
	s.log.Debug().Str("key", key).Int("chats", len(out)).Msg("store saved")
	return nil
}

// StoredModes lists the modes that have a saved chat list for user, in tab
// order. Keys for unknown modes are skipped.
func (s *ConversationStore) StoredModes(ctx context.Context, user string) ([]router.Mode, error) {
	prefix := chatsPrefix + escapeUser(user) + ":"
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		return nil, &StoreError{Op: "list", Key: prefix, Err: err}
	}
	stored := make(map[router.Mode]bool, len(keys))
	for _, key := range keys {
		stored[router.Mode(strings.TrimPrefix(key, prefix))] = true
	}
	var modes []router.Mode
	for _, mode := range router.AllModes() {
		if stored[mode] {
			modes = append(modes, mode)
		}
	}
	return modes, nil
}

// searchModes is StoredModes, or every mode when the backend cannot list.
func (s *ConversationStore) searchModes(ctx context.Context, user string) []router.Mode {
	modes, err := s.StoredModes(ctx, user)
	if err != nil {
		s.log.Warn().Err(err).Msg("store list failed, reading every mode")
		return router.AllModes()
	}
	return modes
}

// ListAll loads every mode's chat list for user. Every mode has an entry;
// modes with nothing stored, or that fail to load, come back empty.
func (s *ConversationStore) ListAll(ctx context.Context, user string) map[router.Mode]model.Conversations {
	all := make(map[router.Mode]model.Conversations, len(router.AllModes()))
	for _, mode := range router.AllModes() {
		all[mode] = model.Conversations{}
	}
	for _, mode := range s.searchModes(ctx, user) {
		chats, _ := s.Load(ctx, user, mode)
		all[mode] = chats
	}
	return all
}

// Find looks a conversation up across every mode. ref is a full id or the
// ShortID shown in listings.
func (s *ConversationStore) Find(ctx context.Context, user, ref string) (model.Conversation, error) {
	for _, mode := range s.searchModes(ctx, user) {
		chats, _ := s.Load(ctx, user, mode)
		for _, c := range chats {
			if MatchID(c.ID, ref) {
				return c, nil
			}
		}
	}
	return model.Conversation{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Delete removes a conversation from whichever mode holds it.
func (s *ConversationStore) Delete(ctx context.Context, user, ref string) (model.Conversation, error) {
	c, err := s.Find(ctx, user, ref)
	if err != nil {
		return model.Conversation{}, err
	}
	chats, _ := s.Load(ctx, user, c.Mode)
	rest, _ := chats.Remove(c.ID)
	return c, s.Save(ctx, user, c.Mode, rest)
}

// MatchID reports whether ref names id, either in full or as its ShortID.
func MatchID(id, ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	return id == ref || ShortID(id) == ref
}
