// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/jeranaias/modechat/internal/router"
)

// Notification announces an automatic mode switch.
type Notification struct {
	Mode router.Mode
	At   time.Time
}

// Text is the user-facing announcement.
func (n Notification) Text() string {
	return "Switched to " + n.Mode.Label() + " mode"
}

// Emitter receives mode switch notifications. Emit is called synchronously
// from the controller and must not block.
type Emitter interface {
	Emit(n Notification)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Notification)

// Emit implements Emitter.
func (f EmitterFunc) Emit(n Notification) { f(n) }

type nopEmitter struct{}

func (nopEmitter) Emit(Notification) {}

// Queue buffers notifications until a renderer drains them. It is safe for
// concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []Notification
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Emit implements Emitter.
func (q *Queue) Emit(n Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

// Drain returns and clears the buffered notifications, oldest first.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of buffered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
