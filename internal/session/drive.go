// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Drive runs cmd and every command that follows from it, feeding results to
// the controller until it settles. It stands in for the Bubble Tea runtime
// in line-oriented front ends.
func Drive(ctx context.Context, c *Controller, cmd tea.Cmd) error {
	msgs := make(chan tea.Msg, 8)
	done := make(chan struct{})
	defer close(done)

	run := func(cmd tea.Cmd) {
		if cmd == nil {
			return
		}
		go func() {
			msg := cmd()
			if msg == nil {
				return
			}
			select {
			case msgs <- msg:
			case <-done:
			}
		}()
	}

	run(cmd)
	for !c.Settled() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					run(sub)
				}
				continue
			}
			run(c.Update(msg))
		}
	}
	return nil
}
