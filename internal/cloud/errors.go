// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/modechat/internal/util"
)

// Kind classifies a DispatchError.
type Kind int

const (
	// KindUnexpected is anything else, including a malformed response.
	KindUnexpected Kind = iota
	// KindUnreachable means no response came back at all.
	KindUnreachable
	// KindServerRejected means a non-2xx response.
	KindServerRejected
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindServerRejected:
		return "server_rejected"
	default:
		return "unexpected"
	}
}

// Sentinels matched by DispatchError.Is, one per Kind.
var (
	ErrUnreachable    = errors.New("inference service unreachable")
	ErrServerRejected = errors.New("inference service rejected the request")
	ErrUnexpected     = errors.New("unexpected inference service failure")
)

// DispatchError is every failure Send can return.
type DispatchError struct {
	Kind Kind
	// Status is the HTTP status for KindServerRejected.
	Status int
	// Detail is the server's own message, when it sent one.
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	switch e.Kind {
	case KindServerRejected:
		if e.Detail != "" {
			return fmt.Sprintf("%s (HTTP %d): %s", e.sentinel(), e.Status, e.Detail)
		}
		return fmt.Sprintf("%s (HTTP %d)", e.sentinel(), e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
		}
		return e.sentinel().Error()
	}
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *DispatchError) Is(target error) bool {
	return target == e.sentinel()
}

// IsAuth reports a 401 or 403 rejection.
func (e *DispatchError) IsAuth() bool {
	return e.Kind == KindServerRejected &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

func (e *DispatchError) sentinel() error {
	switch e.Kind {
	case KindUnreachable:
		return ErrUnreachable
	case KindServerRejected:
		return ErrServerRejected
	default:
		return ErrUnexpected
	}
}

// UserMessage is the diagnosis shown as the assistant's reply.
func (e *DispatchError) UserMessage() string {
	switch {
	case e.Kind == KindUnreachable:
		return "Sorry, I couldn't reach the chat service. Please make sure the backend server is running and try again."
	case e.IsAuth():
		msg := fmt.Sprintf("Authentication failed (HTTP %d). Check your API key with /key and try again.", e.Status)
		if e.Detail != "" {
			msg += "\n\nServer said: " + e.Detail
		}
		return msg
	case e.Kind == KindServerRejected:
		msg := fmt.Sprintf("The chat service returned an error (HTTP %d).", e.Status)
		if e.Detail != "" {
			msg += "\n\nServer said: " + e.Detail
		}
		return msg + "\n\nYou can retry the last request."
	default:
		msg := "Sorry, something unexpected went wrong while talking to the chat service."
		if e.Err != nil {
			msg += "\n\n" + e.Err.Error()
		}
		return msg
	}
}

// UserMessage turns any error into an assistant-facing diagnosis.
func UserMessage(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.UserMessage()
	}
	return (&DispatchError{Kind: KindUnexpected, Err: err}).UserMessage()
}

// serverDetail pulls a human message out of an error body. FastAPI sends
// {"detail": "..."} or, for validation errors, {"detail": [{"msg": ...}]}.
func serverDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return util.TruncateRunes(strings.TrimSpace(string(body)), 200)
	}
	for _, raw := range []json.RawMessage{payload.Detail, payload.Error} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			var msgs []string
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return ""
}
