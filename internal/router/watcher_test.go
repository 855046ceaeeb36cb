// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRulesWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")
	if err := os.WriteFile(path, DefaultRulesTOML(), 0600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	c := NewDefaultClassifier()
	reloaded := make(chan error, 8)
	w, err := NewRulesWatcher(path, c, zerolog.Nop(),
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(_ RuleSet, err error) { reloaded <- err }),
	)
	if err != nil {
		t.Fatalf("NewRulesWatcher: %v", err)
	}
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if got := c.Classify("banana"); got != ModeChat {
		t.Fatalf("before reload = %s, want chat", got)
	}

	if err := os.WriteFile(path, []byte("[[group]]\nmode = \"code\"\nphrases = [\"banana\"]\n"), 0600); err != nil {
		t.Fatalf("rewrite rules: %v", err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := c.Classify("banana"); got != ModeCode {
		t.Errorf("after reload = %s, want code", got)
	}
}

func TestRulesWatcher_InvalidFileKeepsRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.toml")
	if err := os.WriteFile(path, DefaultRulesTOML(), 0600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	c := NewDefaultClassifier()
	reloaded := make(chan error, 8)
	w, err := NewRulesWatcher(path, c, zerolog.Nop(),
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(_ RuleSet, err error) { reloaded <- err }),
	)
	if err != nil {
		t.Fatalf("NewRulesWatcher: %v", err)
	}
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[[group]]\nmode = \"chat\"\nphrases = [\"x\"]\n"), 0600); err != nil {
		t.Fatalf("rewrite rules: %v", err)
	}

	select {
	case err := <-reloaded:
		if err == nil {
			t.Fatal("expected reload error for chat group")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := c.Classify("explain recursion"); got != ModeExplain {
		t.Errorf("rules changed after rejected reload: got %s", got)
	}
}
