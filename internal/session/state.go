// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"time"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/identity"
	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage is returned by Submit for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned when an operation cannot run in the current state:
	// sending while a reply is outstanding, or editing the chat list while a
	// mode switch is still loading it.
	ErrBusy = errors.New("session is busy")

	// ErrNothingToRetry is returned by Retry before any request was sent or
	// once the chat it was sent into is deleted.
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrUnknownChat is returned when a chat id is not in the active list.
	ErrUnknownChat = errors.New("unknown chat")
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's externally visible state.
type State int

const (
	// StateIdle accepts any operation.
	StateIdle State = iota
	// StateSwitching is waiting for a mode's chat list to load.
	StateSwitching
	// StateSending is waiting for a reply.
	StateSending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSwitching:
		return "switching"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// PendingKind says what to do once a mode switch has loaded.
type PendingKind int

const (
	// PendingSend sends Content as the first turn of a new conversation.
	PendingSend PendingKind = iota
	// PendingOpen makes ChatID the active conversation.
	PendingOpen
)

// PendingAction is the single deferred action attached to a mode switch.
// A newer action always replaces an older one.
type PendingAction struct {
	Kind    PendingKind
	Target  router.Mode
	Content string
	ChatID  string
	// History is always empty for sends: an auto-switched message starts
	// a new conversation.
	History []model.Message
	// ChatsSnapshot is the chat list that was visible when the switch began.
	ChatsSnapshot model.Conversations
}

// =============================================================================
// MESSAGES
// =============================================================================

// ChatsLoadedMsg carries the result of a mode reload.
type ChatsLoadedMsg struct {
	Seq   uint64
	Mode  router.Mode
	Chats model.Conversations
	Err   error
}

// SwitchTimeoutMsg fires when a reload has not reported back in time.
type SwitchTimeoutMsg struct {
	Seq uint64
}

// DispatchResultMsg carries the outcome of a send.
type DispatchResultMsg struct {
	ID   uint64
	Turn cloud.Turn
	Err  error
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a copy of everything a renderer needs.
type Snapshot struct {
	State      State
	Mode       router.Mode
	User       identity.User
	Chats      model.Conversations
	ActiveID   string
	Transcript []model.Message
	// Outgoing is the user message awaiting a reply, set only while the
	// reply belongs to the visible conversation.
	Outgoing *model.Message
	// Pending is the action queued behind a mode switch.
	Pending   *PendingAction
	InFlight  bool
	Language  string
	HasAPIKey bool
	CanRetry  bool
	// Warning describes the last storage problem, if any.
	Warning   string
	UpdatedAt time.Time
}

// Active returns the active conversation, if any.
func (s Snapshot) Active() (model.Conversation, bool) {
	if s.ActiveID == "" {
		return model.Conversation{}, false
	}
	return s.Chats.Find(s.ActiveID)
}
