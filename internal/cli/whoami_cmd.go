// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/trialdesk/internal/api"
)

func newWhoamiCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run := func() (any, error) {
				var op *api.Operator
				err := a.withSession(cmd.Context(), func(ctx context.Context, s *stack) error {
					ctx, cancel := context.WithTimeout(ctx, authTimeout)
					defer cancel()
					var err error
					op, err = s.client.Me(ctx)
					return err
				})
				return op, err
			}
			if jsonOut {
				return outputJSON(a.stdout, "whoami", run)
			}
			data, err := run()
			if err != nil {
				return err
			}
			op := data.(*api.Operator)
			fmt.Fprintln(a.stdout, RenderField("Name", op.Name))
			fmt.Fprintln(a.stdout, RenderField("Email", op.Email))
			fmt.Fprintln(a.stdout, RenderField("Role", op.Role))
			fmt.Fprintln(a.stdout, RenderField("ID", op.ID))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}
