// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/modechat/internal/cloud"
	"github.com/jeranaias/modechat/internal/router"
)

// checkResult is one line of doctor output.
type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func newDoctorCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage and the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return OutputJSON(out, jsonOut, "doctor", func() (any, error) {
				results := runChecks(cmd, opts)
				if !jsonOut {
					printChecks(out, results)
				}
				for _, r := range results {
					if r.Status == "fail" {
						return results, fmt.Errorf("%s check failed: %s", r.Name, r.Detail)
					}
				}
				return results, nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func runChecks(cmd *cobra.Command, opts *globalOptions) []checkResult {
	ctx := cmd.Context()
	app, err := newApp(ctx, opts)
	if err != nil {
		return []checkResult{{Name: "config", Status: "fail", Detail: err.Error()}}
	}
	defer app.Close()

	results := []checkResult{{
		Name:   "config",
		Status: "ok",
		Detail: fmt.Sprintf("user %s, start mode %s", app.User.ID, app.StartMode()),
	}}

	lists := app.Store.ListAll(ctx, app.User.ID)
	total := 0
	for _, chats := range lists {
		total += len(chats)
	}
	results = append(results, checkResult{
		Name:   "storage",
		Status: "ok",
		Detail: fmt.Sprintf("%s backend, %d chats", app.Config.Storage.Backend, total),
	})

	if rules, _ := app.Config.RulesFile(); rules != "" {
		results = append(results, checkResult{Name: "rules", Status: "ok", Detail: rules})
	} else {
		results = append(results, checkResult{
			Name:   "rules",
			Status: "ok",
			Detail: fmt.Sprintf("built-in (%d modes)", len(router.AllModes())),
		})
	}

	if h, err := app.Client.Health(ctx); err != nil {
		results = append(results, checkResult{Name: "service", Status: "fail", Detail: cloud.UserMessage(err)})
	} else {
		results = append(results, checkResult{
			Name:   "service",
			Status: "ok",
			Detail: fmt.Sprintf("%s %s at %s", h.Service, h.Status, app.Client.BaseURL()),
		})
	}

	key, err := app.Credentials.APIKey(ctx, app.User.ID)
	switch {
	case err != nil:
		results = append(results, checkResult{Name: "api key", Status: "warn", Detail: err.Error()})
	case key == "":
		results = append(results, checkResult{Name: "api key", Status: "warn", Detail: "not set, the service default is used"})
	default:
		results = append(results, checkResult{Name: "api key", Status: "ok", Detail: cloud.KeyFingerprint(key)})
	}
	return results
}

func printChecks(w io.Writer, results []checkResult) {
	fmt.Fprintln(w, TitleStyle.Render("modechat doctor"))
	for _, r := range results {
		fmt.Fprintf(w, "%s %s %s\n", RenderStatus(r.Status), RenderLabel(r.Name), r.Detail)
	}
}
