// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/modechat/internal/model"
	"github.com/jeranaias/modechat/internal/router"
	"github.com/jeranaias/modechat/internal/storage"
	"github.com/jeranaias/modechat/internal/ui/components"
	"github.com/jeranaias/modechat/internal/util"
)

func newChatsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"chat-list"},
		Short:   "List, show, delete and export stored chats",
		Long: `Manage the chats stored for the current user. Chats are kept per mode;
list shows the starting mode (--mode) unless --all is given. Chats are
referred to by the short id shown in listings or by their full id.`,
	}
	cmd.AddCommand(
		newChatsListCommand(opts),
		newChatsShowCommand(opts),
		newChatsDeleteCommand(opts),
		newChatsExportCommand(opts),
	)
	return cmd
}

func newChatsListCommand(opts *globalOptions) *cobra.Command {
	var all, jsonOut bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List chats",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			modes := []router.Mode{app.StartMode()}
			if all {
				modes = router.AllModes()
			}
			byMode := make(map[router.Mode]model.Conversations, len(modes))
			for _, m := range modes {
				chats, err := app.Store.Load(cmd.Context(), app.User.ID, m)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("[Warning] "+err.Error()))
				}
				byMode[m] = chats
			}

			return OutputJSON(out, jsonOut, "chats list", func() (any, error) {
				if !jsonOut {
					for i, m := range modes {
						if i > 0 {
							fmt.Fprintln(out)
						}
						fmt.Fprintf(out, "%s (%d)\n", RenderMode(m), len(byMode[m]))
						fmt.Fprint(out, storage.FormatChatList(byMode[m], ""))
						if len(byMode[m]) == 0 {
							fmt.Fprintln(out)
						}
					}
				}
				return byMode, nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every mode")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newChatsShowCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			conv, err := app.Store.Find(cmd.Context(), app.User.ID, args[0])
			if err != nil {
				return commandErr("chats", "show", err)
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSONExport(out, conv)
			}
			md := components.NewMarkdownRenderer(app.Config.UI.Markdown && IsStdoutTTY(), "")
			fmt.Fprintln(out, md.Render(storage.ExportMarkdown(conv), GetTerminalWidth()-2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newChatsDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a chat",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			conv, err := app.Store.Delete(cmd.Context(), app.User.ID, args[0])
			if err != nil {
				return commandErr("chats", "delete", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %q from %s\n", RenderStatus("ok"), conv.Title, RenderMode(conv.Mode))
			return nil
		},
	}
}

func newChatsExportCommand(opts *globalOptions) *cobra.Command {
	var (
		format, output string
		all            bool
	)
	cmd := &cobra.Command{
		Use:   "export [ID]",
		Short: "Export a chat as Markdown or JSON",
		Example: `  modechat chats export 1a2b3c4d
  modechat chats export 1a2b3c4d --format json -o chat.json
  modechat chats export --all -o backup.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "md" && format != "json" {
				return &UsageError{Reason: "format must be md or json", Example: "--format json"}
			}
			if all == (len(args) == 1) {
				return &UsageError{Reason: "give a chat id or --all", Example: "modechat chats export 1a2b3c4d"}
			}
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			data, err := exportData(cmd, app, args, all, format)
			if err != nil {
				return commandErr("chats", "export", err)
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := util.AtomicWriteFileWithDir(output, data, 0600, 0700); err != nil {
				return commandErr("chats", "export", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Wrote %s\n", RenderStatus("ok"), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md or json (--all is always json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "export every chat of every mode as one JSON list")
	return cmd
}

func exportData(cmd *cobra.Command, app *App, args []string, all bool, format string) ([]byte, error) {
	if all {
		var every model.Conversations
		byMode := app.Store.ListAll(cmd.Context(), app.User.ID)
		for _, m := range router.AllModes() {
			every = append(every, byMode[m]...)
		}
		data, err := storage.ExportJSONList(every)
		return append(data, '\n'), err
	}

	conv, err := app.Store.Find(cmd.Context(), app.User.ID, args[0])
	if err != nil {
		return nil, err
	}
	if format == "md" {
		return []byte(storage.ExportMarkdown(conv)), nil
	}
	data, err := storage.ExportJSON(conv)
	return append(data, '\n'), err
}

func writeJSONExport(w io.Writer, conv model.Conversation) error {
	data, err := storage.ExportJSON(conv)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
