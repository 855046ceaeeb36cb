// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/modechat/internal/router"
)

// classifyResult is the --json payload of classify.
type classifyResult struct {
	Mode  router.Mode `json:"mode"`
	Kind  string      `json:"kind"`
	Rule  string      `json:"rule,omitempty"`
	Input string      `json:"input"`
}

func newClassifyCommand(opts *globalOptions) *cobra.Command {
	var (
		explain bool
		jsonOut bool
		rules   bool
	)
	cmd := &cobra.Command{
		Use:   "classify [TEXT...]",
		Short: "Show which mode a message is routed to",
		Long: `Classify a message without sending it. --explain also names the rule that
matched. --rules prints the active rule set as TOML, which is a starting
point for classifier.rules_file.`,
		Example: `  modechat classify "explain recursion"
  modechat classify --explain "write a script to rename files"
  modechat classify --rules > ~/.modechat/rules.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if rules {
				_, err := out.Write(router.DefaultRulesTOML())
				return err
			}
			if len(args) == 0 {
				return &UsageError{Reason: "nothing to classify", Example: `modechat classify "explain recursion"`}
			}

			app, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			text := strings.Join(args, " ")
			m := app.Classifier.Explain(text)
			return OutputJSON(out, jsonOut, "classify", func() (any, error) {
				if !jsonOut {
					fmt.Fprintln(out, RenderMode(m.Mode))
					if explain {
						fmt.Fprintf(out, "%s %s\n", RenderLabel("Matched by"), m.Kind)
						if m.Rule != "" {
							fmt.Fprintf(out, "%s %q\n", RenderLabel("Rule"), m.Rule)
						}
						fmt.Fprintf(out, "%s %q\n", RenderLabel("Normalized"), router.Normalize(text))
					}
				}
				return classifyResult{Mode: m.Mode, Kind: m.Kind, Rule: m.Rule, Input: text}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "show the rule that matched")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&rules, "rules", false, "print the built-in rules as TOML")
	return cmd
}
