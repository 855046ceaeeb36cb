// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"time"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
)

// DefaultLanguage is sent when no language has been chosen.
const DefaultLanguage = "python"

// Request is one outgoing chat turn.
type Request struct {
	Message string
	Mode    router.Mode
	// History is the prior turns used as context. Send does not modify it.
	History  []model.Message
	Language string
	// APIKey overrides the service's own credential when set.
	APIKey string
}

// Turn is the service's answer.
type Turn struct {
	Content   string
	Timestamp time.Time
	Language  string
	HasCode   bool
}

// Language is one entry of GET /api/languages.
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []historyTurn `json:"conversation_history"`
	Language            string        `json:"language"`
	Mode                string        `json:"mode"`
	APIKey              string        `json:"api_key,omitempty"`
}

type chatResponse struct {
	Message   *string `json:"message"`
	Timestamp string  `json:"timestamp"`
	Language  string  `json:"language"`
	HasCode   bool    `json:"has_code"`
}

type languagesResponse struct {
	Languages []Language `json:"languages"`
}

func toWire(req Request) chatRequest {
	history := make([]historyTurn, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, historyTurn{Role: m.Role.String(), Content: m.Content})
	}
	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	return chatRequest{
		Message:             req.Message,
		ConversationHistory: history,
		Language:            lang,
		Mode:                req.Mode.String(),
		APIKey:              req.APIKey,
	}
}

// timestampLayouts covers RFC 3339 and the zone-less ISO form Python emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string, fallback time.Time) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback.UTC()
}
