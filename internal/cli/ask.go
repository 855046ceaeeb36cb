// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/ui/components"
)

// askResult is the --json payload of ask.
type askResult struct {
	Mode           router.Mode `json:"mode"`
	Switched       bool        `json:"switched"`
	ConversationID string      `json:"conversation_id"`
	Reply          string      `json:"reply"`
}

func newAskCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "ask TEXT...",
		Short: "Ask one question and print the reply",
		Long: `Send a single message and print the reply. The message is routed like any
chat message: if it belongs to another mode than the starting one (--mode),
the session switches first and the reply starts a new chat in that mode.`,
		Example: `  modechat ask "write a function that reverses a string"
  modechat ask --mode explain "what is a closure?"
  modechat ask --json "give me a roadmap for learning Rust"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			app, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			switched := false
			ctrl, err := app.NewController(ctx, session.EmitterFunc(func(n session.Notification) {
				switched = true
				if !jsonOut {
					fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render(n.Text()))
				}
			}))
			if err != nil {
				return err
			}
			if err := session.Drive(ctx, ctrl, ctrl.Init()); err != nil {
				return err
			}

			send, err := ctrl.Submit(strings.Join(args, " "))
			if err != nil {
				return commandErr("ask", "submit", err)
			}
			if err := session.Drive(ctx, ctrl, send); err != nil {
				return commandErr("ask", "wait", err)
			}

			snap := ctrl.Snapshot()
			reply, _ := lastAssistant(snap)
			return OutputJSON(out, jsonOut, "ask", func() (any, error) {
				if !jsonOut {
					md := components.NewMarkdownRenderer(app.Config.UI.Markdown && IsStdoutTTY(), "")
					fmt.Fprintln(out, md.Render(reply, GetTerminalWidth()-2))
				}
				return askResult{
					Mode:           snap.Mode,
					Switched:       switched,
					ConversationID: snap.ActiveID,
					Reply:          reply,
				}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

// lastAssistant returns the last reply of the visible transcript.
func lastAssistant(snap session.Snapshot) (string, bool) {
	for i := len(snap.Transcript) - 1; i >= 0; i-- {
		if !snap.Transcript[i].IsUser() {
			return snap.Transcript[i].Content, true
		}
	}
	return "", false
}
