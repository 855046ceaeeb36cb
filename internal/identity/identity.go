// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity resolves who is using modechat.
//
// Chat history and the API key override are scoped by the user id a
// Provider returns. Authentication itself happens elsewhere; a Provider only
// hands over an id, a display name and an optional bearer token.
package identity

import (
	"context"
	"errors"
	"os/user"
	"strings"
)

// FallbackUserID is used when no id is configured and the OS account cannot
// be read.
const FallbackUserID = "local"

// ErrNoUser is returned by providers that have no signed-in user.
var ErrNoUser = errors.New("no signed-in user")

// User is the signed-in user.
type User struct {
	ID          string
	DisplayName string
	// Token is forwarded to the inference service as a bearer token.
	Token string
}

// Provider returns the current user.
type Provider interface {
	CurrentUser(ctx context.Context) (User, error)
}

// StaticProvider always returns the same user.
type StaticProvider struct {
	user User
}

// NewStaticProvider builds a provider from configured values. An empty id
// falls back to the OS account name, then to FallbackUserID.
func NewStaticProvider(id, displayName, token string) *StaticProvider {
	id = strings.TrimSpace(id)
	if id == "" {
		id = osUserID()
	}
	if displayName == "" {
		displayName = id
	}
	return &StaticProvider{user: User{ID: id, DisplayName: displayName, Token: strings.TrimSpace(token)}}
}

// CurrentUser implements Provider.
func (p *StaticProvider) CurrentUser(ctx context.Context) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if p.user.ID == "" {
		return User{}, ErrNoUser
	}
	return p.user, nil
}

// TokenSource adapts a Provider to the bearer token callback the HTTP
// client expects.
func TokenSource(p Provider) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		u, err := p.CurrentUser(ctx)
		if err != nil {
			return "", err
		}
		return u.Token, nil
	}
}

func osUserID() string {
	u, err := user.Current()
	if err != nil || strings.TrimSpace(u.Username) == "" {
		return FallbackUserID
	}
	name := u.Username
	// DOMAIN\name on Windows.
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
