// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the modechat command line.

Running modechat with no subcommand opens the full-screen chat when stdout is
a terminal and the line-oriented REPL otherwise. Subcommands cover one-shot
questions, inspecting the classifier, managing stored chats and the API key
override, and checking the installation.

# Commands

	modechat                       TUI, or REPL when not on a terminal
	modechat chat                  Line-oriented REPL
	modechat ask TEXT              One-shot question, routed by mode
	modechat classify TEXT         Show which mode a message routes to
	modechat chats list|show|delete|export
	modechat key set|clear|show    Per-user API key override
	modechat languages             Languages the service supports
	modechat doctor                Health checks
	modechat config show|path|init
	modechat version

Global flags override the config file and environment: --config, --mode,
--url, --user, --lang and --log-stderr.
*/
package cli
