// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"testing"
)

func TestStaticProvider_Configured(t *testing.T) {
	p := NewStaticProvider(" alice ", "Alice", "tok")
	u, err := p.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.ID != "alice" || u.DisplayName != "Alice" || u.Token != "tok" {
		t.Errorf("user = %+v", u)
	}
}

func TestStaticProvider_FallsBackToOSUser(t *testing.T) {
	u, err := NewStaticProvider("", "", "").CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.ID == "" {
		t.Error("fallback user id is empty")
	}
	if u.DisplayName != u.ID {
		t.Errorf("DisplayName = %q, want %q", u.DisplayName, u.ID)
	}
}

func TestStaticProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStaticProvider("a", "", "").CurrentUser(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTokenSource(t *testing.T) {
	ts := TokenSource(NewStaticProvider("a", "", "secret"))
	tok, err := ts(context.Background())
	if err != nil || tok != "secret" {
		t.Errorf("token = %q, %v", tok, err)
	}
}
