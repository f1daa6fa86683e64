package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackendCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Generation backend utilities",
	}
	cmd.AddCommand(newBackendStatusCommand(ctx))
	return cmd
}

func newBackendStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backend queue snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withToolkit(cmd, func(kit *toolkit) error {
				sessionID, err := kit.client.NewSession(cmd.Context())
				if err != nil {
					return fmt.Errorf("backend unreachable at %s: %w", kit.cfg.Backend.URL, err)
				}
				status := kit.client.Status(cmd.Context(), sessionID)

				if jsonOutput {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend %s is reachable\n", kit.cfg.Backend.URL)
				rows := [][]string{
					{"Waiting generations", fmt.Sprintf("%d", status.WaitingGens)},
					{"Live generations", fmt.Sprintf("%d", status.LiveGens)},
					{"Loading models", fmt.Sprintf("%d", status.LoadingModels)},
					{"Waiting backends", fmt.Sprintf("%d", status.WaitingBackends)},
				}
				fmt.Fprintln(out, renderTable([]string{"Queue", "Count"}, rows, 2))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the status as JSON")
	return cmd
}
