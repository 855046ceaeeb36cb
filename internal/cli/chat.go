// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/config"
	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/session"
	"github.com/jeranaias/modechat/internal/storage"
	"github.com/jeranaias/modechat/internal/ui/components"
)

func newChatCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the line-oriented chat REPL",
		Long: `Start an interactive chat on plain standard input and output.

Messages are routed to a mode exactly as in the full-screen chat. Lines
starting with / are commands; /help lists them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of input per prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// historyReader is a liner prompt with a persistent history file.
type historyReader struct {
	line        *liner.State
	historyFile string
}

func newHistoryReader() *historyReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &historyReader{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		r.historyFile = filepath.Join(dir, "chat_history")
		if f, err := os.Open(r.historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *historyReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if keepInHistory(input) {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// keepInHistory reports whether a line may be written to the history file.
// A /key line carrying a key never is.
func keepInHistory(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if !strings.HasPrefix(input, "/") {
		return true
	}
	name, arg := parseSlash(input)
	return name != "key" || arg == "" || strings.EqualFold(arg, "clear")
}

// Close saves history with owner-only permissions and restores the
// terminal.
func (r *historyReader) Close() error {
	defer r.line.Close()
	if r.historyFile == "" {
		return nil
	}
	if _, err := config.EnsureConfigDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.line.WriteHistory(f)
	return err
}

// plainReader reads lines from a non-terminal input and echoes nothing.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(in io.Reader) *plainReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &plainReader{scanner: s}
}

func (r *plainReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *plainReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// repl is a chat session on a line-oriented terminal.
type repl struct {
	ctx         context.Context
	app         *App
	ctrl        *session.Controller
	out         io.Writer
	md          *components.MarkdownRenderer
	highlight   bool
	lastWarning string
}

func runREPL(ctx context.Context, opts *globalOptions, in io.Reader, out io.Writer) error {
	app, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	var reader lineReader
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		reader = newHistoryReader()
	} else {
		reader = newPlainReader(in)
	}
	defer reader.Close()

	r, err := newREPL(ctx, app, out)
	if err != nil {
		return err
	}
	return r.run(reader)
}

func newREPL(ctx context.Context, app *App, out io.Writer) (*repl, error) {
	markdown := app.Config.UI.Markdown && IsStdoutTTY()
	r := &repl{
		ctx:       ctx,
		app:       app,
		out:       out,
		md:        components.NewMarkdownRenderer(markdown, ""),
		highlight: !markdown && ColorsEnabled(),
	}
	ctrl, err := app.NewController(ctx, session.EmitterFunc(r.announce))
	if err != nil {
		return nil, err
	}
	r.ctrl = ctrl
	if err := session.Drive(ctx, ctrl, ctrl.Init()); err != nil {
		return nil, err
	}
	return r, nil
}

// announce prints a mode switch notification.
func (r *repl) announce(n session.Notification) {
	fmt.Fprintln(r.out, DimStyle.Render("↪ ")+RenderMode(n.Mode)+DimStyle.Render(" mode: switched automatically"))
}

func (r *repl) prompt() string {
	return PromptStyle.Render("modechat") + " [" + RenderMode(r.ctrl.Mode()) + "]> "
}

func (r *repl) run(in lineReader) error {
	r.printWelcome()
	for {
		input, err := in.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			quit, err := r.command(input)
			if err != nil {
				fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.send(input); err != nil {
			fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
		}
	}
}

// drive runs cmd to completion and reports any new storage warning.
func (r *repl) drive(cmd tea.Cmd) error {
	if err := session.Drive(r.ctx, r.ctrl, cmd); err != nil {
		return err
	}
	if w := r.ctrl.Snapshot().Warning; w != r.lastWarning {
		r.lastWarning = w
		if w != "" {
			fmt.Fprintln(r.out, WarningStyle.Render("[Warning] "+w))
		}
	}
	return nil
}

func (r *repl) send(text string) error {
	cmd, err := r.ctrl.Submit(text)
	if err != nil {
		return err
	}
	if err := r.drive(cmd); err != nil {
		return err
	}
	r.printLastReply()
	return nil
}

func (r *repl) printLastReply() {
	msgs := r.ctrl.Snapshot().Transcript
	if len(msgs) == 0 || msgs[len(msgs)-1].IsUser() {
		return
	}
	r.printMessage(msgs[len(msgs)-1])
}

func (r *repl) printMessage(m model.Message) {
	if m.IsUser() {
		fmt.Fprintln(r.out, DimStyle.Render("You: ")+m.Content)
		return
	}
	content := m.Content
	if r.highlight {
		content = components.HighlightFences(content, r.ctrl.Language())
	}
	fmt.Fprintln(r.out, r.md.Render(content, GetTerminalWidth()-2))
	fmt.Fprintln(r.out)
}

func (r *repl) printWelcome() {
	snap := r.ctrl.Snapshot()
	fmt.Fprintln(r.out, TitleStyle.Render("modechat"))
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("User"), snap.User.DisplayName)
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Mode"), RenderMode(snap.Mode))
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Language"), snap.Language)
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("Chats"), len(snap.Chats))
	fmt.Fprintln(r.out, DimStyle.Render("Type a message, or /help for commands."))
	fmt.Fprintln(r.out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// replHelp lists the slash commands.
var replHelp = [][2]string{
	{"/mode [MODE]", "show or change the mode (code, chat, explain, roadmap)"},
	{"/new", "start a new chat in this mode"},
	{"/chats", "list this mode's chats"},
	{"/open ID", "open a chat from any mode"},
	{"/delete ID", "delete a chat of this mode"},
	{"/retry", "resend the last request"},
	{"/lang [LANG]", "show or set the programming language"},
	{"/key [KEY|clear]", "show, set or clear your API key override"},
	{"/help", "show this help"},
	{"/quit", "leave"},
}

// parseSlash splits "/name arg..." into its lower-cased name and the rest.
func parseSlash(input string) (name, arg string) {
	input = strings.TrimSpace(strings.TrimPrefix(input, "/"))
	name, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// command runs a slash command. It reports whether the REPL should exit.
func (r *repl) command(input string) (bool, error) {
	name, arg := parseSlash(input)
	switch name {
	case "quit", "q", "exit":
		return true, nil

	case "help", "h", "?":
		for _, h := range replHelp {
			fmt.Fprintf(r.out, "  %s %s\n", PromptStyle.Render(fmt.Sprintf("%-18s", h[0])), DimStyle.Render(h[1]))
		}
		return false, nil

	case "mode", "m":
		if arg == "" {
			fmt.Fprintln(r.out, "Mode:", RenderMode(r.ctrl.Mode()))
			return false, nil
		}
		mode, err := router.ParseMode(arg)
		if err != nil {
			return false, err
		}
		cmd, err := r.ctrl.ChangeMode(mode)
		if err != nil {
			return false, err
		}
		if err := r.drive(cmd); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Now in %s mode (%d chats)\n", RenderMode(mode), len(r.ctrl.Snapshot().Chats))
		return false, nil

	case "new", "n":
		if err := r.ctrl.NewChat(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new chat"))
		return false, nil

	case "chats", "ls":
		snap := r.ctrl.Snapshot()
		fmt.Fprint(r.out, storage.FormatChatList(snap.Chats, snap.ActiveID))
		if len(snap.Chats) == 0 {
			fmt.Fprintln(r.out)
		}
		return false, nil

	case "open", "o":
		return false, r.open(arg)

	case "delete", "rm":
		id, err := r.resolveVisible(arg)
		if err != nil {
			return false, err
		}
		if err := r.ctrl.DeleteChat(id); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Deleted "+storage.ShortID(id)))
		return false, nil

	case "retry", "r":
		cmd, err := r.ctrl.Retry()
		if err != nil {
			return false, err
		}
		if err := r.drive(cmd); err != nil {
			return false, err
		}
		r.printLastReply()
		return false, nil

	case "lang", "language":
		if arg == "" {
			fmt.Fprintln(r.out, "Language:", r.ctrl.Language())
			return false, nil
		}
		if err := r.ctrl.SetLanguage(arg); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Language:", r.ctrl.Language())
		return false, nil

	case "key":
		switch strings.ToLower(arg) {
		case "":
			if r.ctrl.Snapshot().HasAPIKey {
				fmt.Fprintln(r.out, "An API key override is set.")
			} else {
				fmt.Fprintln(r.out, "No API key override; the service's own key is used.")
			}
			return false, nil
		case "clear":
			arg = ""
		}
		if err := r.ctrl.SetAPIKey(arg); err != nil {
			return false, err
		}
		if arg == "" {
			fmt.Fprintln(r.out, SuccessStyle.Render("API key cleared"))
		} else {
			fmt.Fprintln(r.out, SuccessStyle.Render("API key saved ("+cloud.KeyFingerprint(arg)+")"))
		}
		return false, nil
	}
	return false, &UsageError{Reason: "unknown command /" + name, Example: "/help"}
}

// open activates a chat, switching modes when it belongs to another one.
func (r *repl) open(ref string) error {
	if ref == "" {
		return &UsageError{Reason: "missing chat id", Example: "/open 1a2b3c4d"}
	}
	conv, err := r.app.Store.Find(r.ctx, r.ctrl.User().ID, ref)
	if err != nil {
		return err
	}
	cmd, err := r.ctrl.SelectChat(conv.ID, conv.Mode)
	if err != nil {
		return err
	}
	if err := r.drive(cmd); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Opened %q in %s mode\n", conv.Title, RenderMode(conv.Mode))
	for _, m := range r.ctrl.Snapshot().Transcript {
		r.printMessage(m)
	}
	return nil
}

// resolveVisible finds a chat of the current mode by full or short id.
func (r *repl) resolveVisible(ref string) (string, error) {
	if ref == "" {
		return "", &UsageError{Reason: "missing chat id", Example: "/delete 1a2b3c4d"}
	}
	for _, c := range r.ctrl.Snapshot().Chats {
		if storage.MatchID(c.ID, ref) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", session.ErrUnknownChat, ref)
}
