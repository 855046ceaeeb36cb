// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// CredentialStore keeps the per-user API key override for the inference
// service. The key is never logged.
type CredentialStore struct {
	backend Backend
	log     zerolog.Logger
}

// NewCredentialStore creates a credential store over backend.
func NewCredentialStore(backend Backend, log zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		backend: backend,
		log:     log.With().Str("component", "credentials").Logger(),
	}
}

// APIKey returns user's override, or "" when none is set.
func (c *CredentialStore) APIKey(ctx context.Context, user string) (string, error) {
	key := APIKeyKey(user)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Msg("api key load failed")
		return "", &StoreError{Op: "load", Key: key, Err: err}
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(string(data)), nil
}

// SetAPIKey stores user's override. An empty value clears it.
func (c *CredentialStore) SetAPIKey(ctx context.Context, user, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return c.ClearAPIKey(ctx, user)
	}
	key := APIKeyKey(user)
	if err := c.backend.Put(ctx, key, []byte(apiKey)); err != nil {
		c.log.Error().Err(err).Msg("api key save failed")
		return &StoreError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// ClearAPIKey removes user's override.
func (c *CredentialStore) ClearAPIKey(ctx context.Context, user string) error {
	key := APIKeyKey(user)
	if err := c.backend.Delete(ctx, key); err != nil {
		c.log.Error().Err(err).Msg("api key clear failed")
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
