// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/ui/chat"
)

// runTUI opens the full-screen chat.
func runTUI(ctx context.Context, opts *globalOptions) error {
	app, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	events := session.NewQueue()
	ctrl, err := app.NewController(ctx, events)
	if err != nil {
		return err
	}

	m := chat.New(ctrl, events, chat.Options{
		Sidebar:       app.Config.UI.Sidebar,
		Markdown:      app.Config.UI.Markdown,
		ToastDuration: app.Config.Session.NotificationDuration.Std(),
	})

	app.Log.Info().Str("user", app.User.ID).Str("mode", ctrl.Mode().String()).Msg("tui started")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	app.Log.Info().Msg("tui exited")
	return nil
}
