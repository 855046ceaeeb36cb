// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
)

// Update applies an asynchronous result. Messages that do not belong to the
// controller are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ChatsLoadedMsg:
		return c.handleLoaded(msg)
	case SwitchTimeoutMsg:
		return c.handleSwitchTimeout(msg)
	case DispatchResultMsg:
		return c.handleResult(msg)
	}
	return nil
}

func (c *Controller) handleLoaded(msg ChatsLoadedMsg) tea.Cmd {
	if c.switching == nil || msg.Seq != c.switching.seq || msg.Mode != c.mode {
		c.log.Debug().Uint64("seq", msg.Seq).Str("mode", msg.Mode.String()).Msg("ignoring stale reload")
		return nil
	}
	return c.completeSwitch(msg.Chats, msg.Err)
}

func (c *Controller) handleSwitchTimeout(msg SwitchTimeoutMsg) tea.Cmd {
	if c.switching == nil || msg.Seq != c.switching.seq {
		return nil
	}
	c.log.Warn().Str("mode", c.mode.String()).Dur("timeout", c.cfg.SwitchTimeout).
		Msg("mode reload timed out, loading synchronously")
	chats, err := c.loadWithin(c.mode, c.cfg.SwitchTimeout)
	return c.completeSwitch(chats, err)
}

// loadWithin loads mode's chats but gives up after d. A store that ignores
// its context is abandoned; its result is dropped.
func (c *Controller) loadWithin(mode router.Mode, d time.Duration) (model.Conversations, error) {
	ctx, cancel := context.WithTimeout(c.ctx, d)
	defer cancel()

	type loaded struct {
		chats model.Conversations
		err   error
	}
	done := make(chan loaded, 1)
	store, user := c.deps.Store, c.user.ID
	go func() {
		chats, err := store.Load(ctx, user, mode)
		done <- loaded{chats, err}
	}()

	select {
	case r := <-done:
		return r.chats, r.err
	case <-ctx.Done():
		c.log.Error().Str("mode", mode.String()).Dur("timeout", d).Msg("chat store did not answer, continuing with an empty list")
		return nil, fmt.Errorf("loading %s chats timed out: %w", mode, ctx.Err())
	}
}

// completeSwitch installs the loaded list and runs the queued action if it
// targets the loaded mode.
func (c *Controller) completeSwitch(chats model.Conversations, err error) tea.Cmd {
	if chats == nil {
		chats = model.Conversations{}
	}
	c.switching = nil
	c.chats = chats
	c.activeID = ""
	c.transcript = []model.Message{}
	if err != nil {
		c.setWarning(err)
	}
	c.touch()
	c.log.Debug().Str("mode", c.mode.String()).Int("chats", len(chats)).Msg("mode loaded")

	p := c.pending
	c.pending = nil
	if p == nil {
		return nil
	}
	if p.Target != c.mode {
		c.log.Warn().Str("target", p.Target.String()).Str("mode", c.mode.String()).Msg("discarding queued action for another mode")
		return nil
	}

	switch p.Kind {
	case PendingSend:
		if c.flight != nil {
			// Submit refuses while a reply is outstanding, so this only
			// happens if the queue was filled before the send began.
			c.draft = p.Content
			return nil
		}
		return c.dispatch(p.Content, p.History, "", c.viewSeq)
	case PendingOpen:
		conv, ok := c.chats.Find(p.ChatID)
		if !ok {
			c.log.Warn().Str("chat", p.ChatID).Msg("queued chat no longer exists")
			return nil
		}
		c.activeID = conv.ID
		c.transcript = model.CloneMessages(conv.Messages)
	}
	return nil
}

// handleResult files a reply into the conversation it was sent from. If the
// user has not navigated since, that is the visible conversation; otherwise
// the reply is merged into its mode's stored list in the background.
func (c *Controller) handleResult(msg DispatchResultMsg) tea.Cmd {
	f := c.flight
	if f == nil || msg.ID != f.id {
		c.log.Debug().Uint64("request", msg.ID).Msg("ignoring stale reply")
		return nil
	}
	c.flight = nil

	now := c.deps.Clock()
	var reply model.Message
	if msg.Err != nil {
		c.log.Warn().Err(msg.Err).Uint64("request", f.id).Msg("dispatch failed")
		reply = model.NewAssistantMessage(cloud.UserMessage(msg.Err), now)
	} else {
		ts := msg.Turn.Timestamp
		if ts.IsZero() {
			ts = now
		}
		reply = model.NewAssistantMessage(msg.Turn.Content, ts)
		c.log.Info().Uint64("request", f.id).Int("chars", len(msg.Turn.Content)).Msg("reply received")
	}

	msgs := make([]model.Message, 0, len(f.history)+2)
	msgs = append(msgs, model.CloneMessages(f.history)...)
	msgs = append(msgs, f.userMsg, reply)

	if f.viewSeq == c.viewSeq && f.mode == c.mode && c.switching == nil {
		conv := c.merge(c.chats, f, msgs, now)
		c.chats = c.chats.Upsert(conv)
		c.save(f.mode, c.chats)
		c.activeID = conv.ID
		c.transcript = model.CloneMessages(conv.Messages)
		c.touch()
		return nil
	}
	return c.applyInBackground(f, msgs, now)
}

func (c *Controller) applyInBackground(f *inflight, msgs []model.Message, now time.Time) tea.Cmd {
	visible := f.mode == c.mode && c.switching == nil

	var base model.Conversations
	if visible {
		base = c.chats
	} else {
		loaded, err := c.deps.Store.Load(c.ctx, c.user.ID, f.mode)
		if err != nil {
			c.setWarning(err)
		}
		base = loaded
	}

	if f.convID != "" {
		if _, ok := base.Find(f.convID); !ok {
			c.log.Info().Str("chat", f.convID).Str("mode", f.mode.String()).Msg("reply target was deleted, discarding reply")
			return nil
		}
	}

	conv := c.merge(base, f, msgs, now)
	updated := base.Upsert(conv)
	c.save(f.mode, updated)
	c.log.Info().Str("chat", conv.ID).Str("mode", f.mode.String()).Msg("reply filed in background")

	switch {
	case visible:
		c.chats = updated
		if c.activeID == conv.ID {
			c.transcript = model.CloneMessages(conv.Messages)
		}
		c.touch()
	case c.switching != nil && c.switching.target == f.mode:
		// The running reload may have read the list before this save.
		return c.startReload(f.mode)
	}
	return nil
}

// merge returns the conversation the reply lands in. The exchange replaces
// everything after the request's history, so a retried reply supersedes the
// attempt it repeats.
func (c *Controller) merge(base model.Conversations, f *inflight, msgs []model.Message, now time.Time) model.Conversation {
	if f.convID != "" {
		if conv, ok := base.Find(f.convID); ok {
			return conv.WithMessages(msgs, now)
		}
	}
	conv := model.NewConversationWithMessages(f.mode, msgs, now)
	// A retry of this request lands in the chat it created.
	f.last.convID = conv.ID
	return conv
}
