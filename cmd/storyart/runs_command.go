package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyart/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *runlog.Store) error {
				records, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						shortRunID(record.RunID),
						record.Mode,
						record.StartedAt.Local().Format("2006-01-02 15:04"),
						record.FinishedAt.Sub(record.StartedAt).Round(time.Second).String(),
						fmt.Sprintf("%d/%d", record.Succeeded, record.Total),
						fmt.Sprintf("%d", len(record.Failures)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(),
					renderTable([]string{"Run", "Mode", "Started", "Elapsed", "Placed", "Failed"}, rows, 4, 5, 6))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit runs as JSON")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := strings.TrimSpace(args[0])
			return ctx.withHistory(func(store *runlog.Store) error {
				record, err := store.Get(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, record)
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Run", record.RunID},
					{"Session", record.SessionKey},
					{"Mode", record.Mode},
					{"Started", record.StartedAt.Local().Format(time.RFC3339)},
					{"Elapsed", record.FinishedAt.Sub(record.StartedAt).Round(time.Second).String()},
					{"Prompts", fmt.Sprintf("%d", record.Total)},
					{"Placed", fmt.Sprintf("%d", record.Succeeded)},
					{"Skipped", fmt.Sprintf("%d", record.Skipped)},
					{"Failed", fmt.Sprintf("%d", len(record.Failures))},
				}
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
				if len(record.Failures) > 0 {
					failureRows := make([][]string, 0, len(record.Failures))
					for _, failure := range record.Failures {
						failureRows = append(failureRows, []string{failure.BeatID, failure.Format, failure.Reason})
					}
					fmt.Fprintln(out, renderTable([]string{"Beat", "Format", "Reason"}, failureRows))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run as JSON")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
