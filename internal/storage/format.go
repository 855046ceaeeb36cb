// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/util"
)

// =============================================================================
// CHAT LIST FORMATTING
// =============================================================================

// FormatChatList renders chats as a plain-text table. The active chat is
// marked with '*'.
func FormatChatList(chats model.Conversations, activeID string) string {
	if len(chats) == 0 {
		return "No chats yet."
	}

	var sb strings.Builder
	sb.WriteString("  " + util.PadWidth("ID", 10) + " " + util.PadWidth("Updated", 17) + " " +
		util.PadWidth("Msgs", 5) + " " + util.PadWidth("Title", 34) + " Preview\n")
	sb.WriteString("  " + strings.Repeat("-", 90) + "\n")

	for _, c := range chats {
		marker := "  "
		if c.ID == activeID {
			marker = "* "
		}
		sb.WriteString(marker +
			util.PadWidth(ShortID(c.ID), 10) + " " +
			util.PadWidth(c.UpdatedAt.Local().Format("2006-01-02 15:04"), 17) + " " +
			util.PadWidth(strconv.Itoa(len(c.Messages)), 5) + " " +
			util.PadWidth(util.TruncateWidth(c.Title, 34), 34) + " " +
			util.TruncateWidth(c.Preview, 40) + "\n")
	}
	return sb.String()
}

// ShortID returns the trailing eight characters of a conversation id, which
// carry the random part of a UUIDv7.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as Markdown.
func ExportMarkdown(c model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + c.Title + "\n\n")
	sb.WriteString("Mode: " + c.Mode.Label() + "  \n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Local().Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders a conversation as indented JSON.
func ExportJSON(c model.Conversation) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ExportJSONList renders a chat list in its stored form.
func ExportJSONList(chats model.Conversations) ([]byte, error) {
	return json.MarshalIndent(chats, "", "  ")
}
