// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/modechat/internal/cloud"
)

func newKeyCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage your API key override",
		Long: `The API key override is sent with every request in place of the service's
own credential. It is stored per user next to the chats and is only ever
shown as a fingerprint.`,
	}

	set := &cobra.Command{
		Use:   "set [KEY]",
		Short: "Store an API key override (prompts when KEY is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				if key, err = readSecret(cmd.InOrStdin(), "API key: "); err != nil {
					return commandErr("key", "set", err)
				}
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return &UsageError{Reason: "API key is empty", Example: "modechat key clear"}
			}

			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.Credentials.SetAPIKey(cmd.Context(), app.User.ID, key); err != nil {
				return commandErr("key", "set", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s API key saved (%s)\n", RenderStatus("ok"), cloud.KeyFingerprint(key))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the API key override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.Credentials.ClearAPIKey(cmd.Context(), app.User.ID); err != nil {
				return commandErr("key", "clear", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s API key cleared\n", RenderStatus("ok"))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show whether an override is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			key, err := app.Credentials.APIKey(cmd.Context(), app.User.ID)
			if err != nil {
				return commandErr("key", "show", err)
			}
			out := cmd.OutOrStdout()
			if key == "" {
				fmt.Fprintln(out, "No API key override for", app.User.ID)
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", RenderLabel("Fingerprint"), cloud.KeyFingerprint(key))
			return nil
		},
	}

	cmd.AddCommand(set, clearCmd, show)
	return cmd
}

// readSecret prompts without echo on a terminal and reads one line
// otherwise.
func readSecret(in io.Reader, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)
		return line.PasswordPrompt(prompt)
	}
	s := bufio.NewScanner(in)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.Text(), nil
}
