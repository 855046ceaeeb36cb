// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
)

func newTestClient(url string) *Client {
	return NewClient(url, zerolog.Nop()).WithRateLimit(0, 0).WithTimeout(5 * time.Second)
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_Success(t *testing.T) {
	var got chatRequest
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		requestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"func reverse() {}","role":"assistant","timestamp":"2025-01-02T03:04:05.123456","language":"go","has_code":true}`))
	}))
	defer server.Close()

	now := time.Now()
	history := []model.Message{
		model.NewUserMessage("hi", now),
		model.NewAssistantMessage("hello", now),
	}
	turn, err := newTestClient(server.URL).Send(context.Background(), Request{
		Message:  "write a function to reverse a string",
		Mode:     router.ModeCode,
		History:  history,
		Language: "go",
		APIKey:   "sk-user",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if turn.Content != "func reverse() {}" {
		t.Errorf("Content = %q", turn.Content)
	}
	if want := time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC); !turn.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", turn.Timestamp, want)
	}
	if !turn.HasCode || turn.Language != "go" {
		t.Errorf("turn metadata = %+v", turn)
	}

	if got.Message != "write a function to reverse a string" || got.Mode != "code" || got.Language != "go" || got.APIKey != "sk-user" {
		t.Errorf("wire request = %+v", got)
	}
	if len(got.ConversationHistory) != 2 || got.ConversationHistory[1].Role != "assistant" || got.ConversationHistory[1].Content != "hello" {
		t.Errorf("history = %+v", got.ConversationHistory)
	}
	if requestID == "" {
		t.Error("X-Request-ID header not set")
	}
	if history[0].Content != "hi" || len(history) != 2 {
		t.Error("Send modified the caller's history")
	}
}

func TestSend_DefaultsAndOmissions(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"message":"ok","timestamp":"not a time"}`))
	}))
	defer server.Close()

	before := time.Now().Add(-time.Second)
	turn, err := newTestClient(server.URL).Send(context.Background(), Request{Message: "hi", Mode: router.ModeChat})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if raw["language"] != DefaultLanguage {
		t.Errorf("language = %v, want %s", raw["language"], DefaultLanguage)
	}
	if _, ok := raw["api_key"]; ok {
		t.Error("api_key should be omitted when empty")
	}
	if hist, ok := raw["conversation_history"].([]any); !ok || len(hist) != 0 {
		t.Errorf("conversation_history = %v, want []", raw["conversation_history"])
	}
	if turn.Timestamp.Before(before) {
		t.Errorf("bad timestamp should fall back to now, got %v", turn.Timestamp)
	}
}

func TestSend_BearerToken(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL).WithTokenSource(func(context.Context) (string, error) { return "id-token", nil })
	if _, err := c.Send(context.Background(), Request{Message: "hi", Mode: router.ModeChat}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if auth != "Bearer id-token" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestSend_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		kind       Kind
		sentinel   error
		auth       bool
		detail     string
		userSubstr string
	}{
		{"unauthorized", 401, `{"detail":"Invalid token"}`, KindServerRejected, ErrServerRejected, true, "Invalid token", "Authentication failed"},
		{"forbidden", 403, `{}`, KindServerRejected, ErrServerRejected, true, "", "Authentication failed (HTTP 403)"},
		{"server error", 500, `{"detail":"Error processing chat request: boom"}`, KindServerRejected, ErrServerRejected, false, "Error processing chat request: boom", "HTTP 500"},
		{"validation", 422, `{"detail":[{"msg":"field required"},{"msg":"too long"}]}`, KindServerRejected, ErrServerRejected, false, "field required; too long", "field required"},
		{"plain text", 502, `Bad Gateway`, KindServerRejected, ErrServerRejected, false, "Bad Gateway", "HTTP 502"},
		{"malformed", 200, `{"message":`, KindUnexpected, ErrUnexpected, false, "", "unexpected"},
		{"missing message", 200, `{"timestamp":"2025-01-01T00:00:00Z"}`, KindUnexpected, ErrUnexpected, false, "", "unexpected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Send(context.Background(), Request{Message: "hi", Mode: router.ModeChat})
			var de *DispatchError
			if !errors.As(err, &de) {
				t.Fatalf("error %v is not a *DispatchError", err)
			}
			if de.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", de.Kind, tt.kind)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if de.IsAuth() != tt.auth {
				t.Errorf("IsAuth = %v, want %v", de.IsAuth(), tt.auth)
			}
			if tt.kind == KindServerRejected {
				if de.Status != tt.status {
					t.Errorf("Status = %d, want %d", de.Status, tt.status)
				}
				if de.Detail != tt.detail {
					t.Errorf("Detail = %q, want %q", de.Detail, tt.detail)
				}
			}
			if msg := UserMessage(err); !strings.Contains(msg, tt.userSubstr) {
				t.Errorf("UserMessage = %q, want substring %q", msg, tt.userSubstr)
			}
		})
	}
}

func TestSend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Send(context.Background(), Request{Message: "hi", Mode: router.ModeChat})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
	if msg := UserMessage(err); !strings.Contains(msg, "backend server is running") {
		t.Errorf("UserMessage = %q", msg)
	}
}

func TestSend_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), Request{Message: "hi", Mode: router.ModeChat})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want exactly 1", n)
	}
}

func TestSend_RateLimiterRespectsContext(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", zerolog.Nop()).WithRateLimit(0.001, 1)
	// Drain the single token.
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Send(ctx, Request{Message: "hi", Mode: router.ModeChat})
	if !errors.Is(err, ErrUnexpected) {
		t.Fatalf("err = %v, want ErrUnexpected from limiter", err)
	}
}

// =============================================================================
// LANGUAGES / HEALTH TESTS
// =============================================================================

func TestLanguagesAndHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/languages":
			w.Write([]byte(`{"languages":[{"id":"python","name":"Python","icon":"🐍"},{"id":"go","name":"Go","icon":"🔷"}]}`))
		case "/health":
			w.Write([]byte(`{"status":"healthy","service":"ai-chatbot-backend"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	langs, err := c.Languages(context.Background())
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if len(langs) != 2 || langs[1].ID != "go" {
		t.Errorf("Languages = %+v", langs)
	}

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "healthy" {
		t.Errorf("Health = %+v", h)
	}
}

func TestKeyFingerprint(t *testing.T) {
	if KeyFingerprint("") != "none" {
		t.Error("empty key fingerprint should be none")
	}
	fp := KeyFingerprint("sk-secret-value")
	if len(fp) != 8 || strings.Contains("sk-secret-value", fp) {
		t.Errorf("fingerprint %q leaks or has wrong length", fp)
	}
	if fp != KeyFingerprint("sk-secret-value") {
		t.Error("fingerprint not deterministic")
	}
}
