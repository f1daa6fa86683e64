package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyart/internal/beats"
	"storyart/internal/pipeline"
	"storyart/internal/services"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate <session-key>",
		Short: "Generate and organize every eligible prompt in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionKey := strings.TrimSpace(args[0])
			return ctx.withToolkit(cmd, func(kit *toolkit) error {
				opts := pipeline.Options{}
				if !jsonOutput {
					opts.Progress = progressPrinter(cmd)
				}
				summary, err := kit.runner.RunBatch(cmd.Context(), sessionKey, opts)
				if err != nil {
					return err
				}
				return renderSummary(cmd, summary, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run summary as JSON")
	cmd.AddCommand(newGenerateItemCommand(ctx))
	return cmd
}

func newGenerateItemCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionKey     string
		promptOverride string
		episodeNumber  int
		episodeTitle   string
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "item <beat-id> <format>",
		Short: "Generate a single beat in one format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			beatID := beats.BeatID(strings.TrimSpace(args[0]))
			if !beatID.Valid() {
				return services.Wrap(services.ErrValidation, "cli", "generate item", fmt.Sprintf("beat id %q does not match sSCENE-bBEAT", args[0]), nil)
			}
			format, err := beats.ParseFormat(args[1])
			if err != nil {
				return err
			}
			if sessionKey == "" && promptOverride == "" {
				return services.Wrap(services.ErrValidation, "cli", "generate item", "either --session or --prompt is required", nil)
			}

			return ctx.withToolkit(cmd, func(kit *toolkit) error {
				record := beats.PromptRecord{
					BeatID: beatID,
					Format: format,
				}
				episode := beats.EpisodeInfo{Number: episodeNumber, Title: episodeTitle}

				if sessionKey != "" {
					fetched, err := kit.adapter.FetchPrompts(cmd.Context(), sessionKey)
					if err != nil {
						return err
					}
					episode = fetched.Episode
					found := false
					for _, candidate := range fetched.Prompts {
						if candidate.BeatID == beatID && candidate.Format == format {
							record = candidate
							found = true
							break
						}
					}
					if !found && promptOverride == "" {
						return services.Wrap(
							services.ErrNotFound,
							"cli",
							"generate item",
							fmt.Sprintf("session %s has no eligible prompt for %s %s", sessionKey, beatID, format.Tag()),
							nil,
						)
					}
				}
				if promptOverride != "" {
					record.PromptText = promptOverride
				}

				opts := pipeline.Options{}
				if !jsonOutput {
					opts.Progress = progressPrinter(cmd)
				}
				summary, err := kit.runner.RunItem(cmd.Context(), record, episode, opts)
				if err != nil {
					return err
				}
				summary.SessionKey = sessionKey
				return renderSummary(cmd, summary, jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&sessionKey, "session", "", "Session key to source the prompt record from")
	cmd.Flags().StringVar(&promptOverride, "prompt", "", "Prompt text override")
	cmd.Flags().IntVar(&episodeNumber, "episode", 0, "Episode number when no session is given")
	cmd.Flags().StringVar(&episodeTitle, "title", "", "Episode title when no session is given")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run summary as JSON")
	return cmd
}

func progressPrinter(cmd *cobra.Command) func(pipeline.ProgressEvent) {
	out := cmd.ErrOrStderr()
	return func(event pipeline.ProgressEvent) {
		if event.BeatID == "" {
			return
		}
		line := fmt.Sprintf("[%d/%d] %s %s", event.Completed+1, event.Total, event.BeatID, event.Format.Tag())
		if event.ETA > 0 {
			line += fmt.Sprintf(" (eta %s)", event.ETA.Round(time.Second))
		}
		fmt.Fprintln(out, line)
	}
}
