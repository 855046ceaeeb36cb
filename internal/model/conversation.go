// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/util"
)

const (
	// DefaultTitle is the title of a conversation with no user message yet.
	DefaultTitle = "New Chat"
	// EmptyPreview is the preview of a conversation with no messages.
	EmptyPreview = "No messages yet"
	// TitleRunes is how much of the first user message becomes the title.
	TitleRunes = 30
	// PreviewRunes caps the preview of the last message.
	PreviewRunes = 50
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a chat: an ordered list of messages within one mode.
type Conversation struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Preview   string      `json:"preview"`
	Mode      router.Mode `json:"mode"`
	Messages  []Message   `json:"messages"`
}

// NewConversation creates an empty conversation in mode.
func NewConversation(mode router.Mode, now time.Time) Conversation {
	now = now.UTC()
	return Conversation{
		ID:        NewConversationID(),
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Preview:   EmptyPreview,
		Mode:      mode,
		Messages:  []Message{},
	}
}

// NewConversationWithMessages creates a conversation that starts with msgs,
// deriving its title and preview from them.
func NewConversationWithMessages(mode router.Mode, msgs []Message, now time.Time) Conversation {
	return NewConversation(mode, now).WithMessages(msgs, now)
}

// NewConversationID returns a time-ordered unique id (UUIDv7).
func NewConversationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only fails if the random source does.
		return uuid.NewString()
	}
	return id.String()
}

// WithMessages returns a copy of c holding msgs. The title is derived from
// the first user message while it is still the default; once set it is kept.
// Mode and ID never change.
func (c Conversation) WithMessages(msgs []Message, now time.Time) Conversation {
	out := c
	out.Messages = CloneMessages(msgs)
	if out.Title == "" || out.Title == DefaultTitle {
		out.Title = GenerateTitle(out.Messages)
	}
	out.Preview = GeneratePreview(out.Messages)
	out.UpdatedAt = now.UTC()
	return out
}

// Clone returns a deep copy of c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = CloneMessages(c.Messages)
	return out
}

// LastMessage returns the final message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// IsEmpty reports whether the conversation has no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// DERIVED FIELDS
// =============================================================================

// GenerateTitle returns the first TitleRunes runes of the first user message,
// with "..." when it was cut, or DefaultTitle when there is none.
func GenerateTitle(msgs []Message) string {
	for _, m := range msgs {
		if m.IsUser() {
			title := util.TruncateRunes(util.CollapseSpace(m.Content), TitleRunes)
			if title == "" {
				break
			}
			return title
		}
	}
	return DefaultTitle
}

// GeneratePreview returns at most PreviewRunes runes of the last message on
// one line, or EmptyPreview when there are no messages.
func GeneratePreview(msgs []Message) string {
	if len(msgs) == 0 {
		return EmptyPreview
	}
	return util.TruncateRunesNoEllipsis(util.CollapseSpace(msgs[len(msgs)-1].Content), PreviewRunes)
}
