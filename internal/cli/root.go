// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information, set by main from build flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand builds the modechat command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "modechat",
		Short: "Programming help chat that routes every message to the right mode",
		Long: `modechat is a chat client for a programming-help service. Each message is
classified into one of four modes (Code, Chat, Explain, Roadmap) and the
session switches to that mode's chat list before sending.

With no subcommand modechat opens the full-screen chat on a terminal and a
line-oriented REPL otherwise.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if IsTTY() && IsStdoutTTY() {
				return runTUI(cmd.Context(), opts)
			}
			return runREPL(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.modechat/config.toml)")
	pf.BoolVar(&opts.logStderr, "log-stderr", false, "log to stderr instead of the log file")
	pf.StringVarP(&opts.mode, "mode", "m", "", "starting mode: code, chat, explain or roadmap")
	pf.StringVar(&opts.url, "url", "", "inference service base URL")
	pf.StringVar(&opts.user, "user", "", "user id that scopes stored chats")
	pf.StringVar(&opts.language, "lang", "", "programming language sent with requests")

	root.AddCommand(
		newChatCommand(opts),
		newAskCommand(opts),
		newClassifyCommand(opts),
		newChatsCommand(opts),
		newKeyCommand(opts),
		newLanguagesCommand(opts),
		newDoctorCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and exits with a code derived from the
// error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(ExitCode(err))
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "modechat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
