// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLanguagesCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the programming languages the service supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonOut, "languages", func() (any, error) {
				langs, err := app.Client.Languages(cmd.Context())
				if err != nil {
					return nil, commandErr("languages", "fetch", err)
				}
				if !jsonOut {
					for _, l := range langs {
						marker := "  "
						if l.ID == app.Config.Session.Language {
							marker = "* "
						}
						fmt.Fprintf(out, "%s%s %s\n", marker, RenderLabel(l.ID), l.Name)
					}
				}
				return langs, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
