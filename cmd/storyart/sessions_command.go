package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storyart/internal/session"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sessions <key>",
		Short: "Inspect a stored session without generating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			return ctx.withToolkit(cmd, func(kit *toolkit) error {
				fetched, err := kit.adapter.FetchPrompts(cmd.Context(), key)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, toSessionJSON(key, fetched))
				}
				renderSession(cmd, key, fetched)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the session overview as JSON")
	return cmd
}

type sessionJSON struct {
	SessionKey    string       `json:"session_key"`
	Episode       int          `json:"episode"`
	Title         string       `json:"title,omitempty"`
	Eligible      int          `json:"eligible"`
	SkippedReuse  int          `json:"skipped_reuse"`
	SkippedEmpty  int          `json:"skipped_no_prompt"`
	Prompts       []promptJSON `json:"prompts"`
}

type promptJSON struct {
	BeatID string `json:"beat_id"`
	Format string `json:"format"`
	Prompt string `json:"prompt"`
}

func toSessionJSON(key string, fetched session.FetchResult) sessionJSON {
	out := sessionJSON{
		SessionKey:   key,
		Episode:      fetched.Episode.Number,
		Title:        fetched.Episode.Title,
		Eligible:     len(fetched.Prompts),
		SkippedReuse: fetched.Skips.ReuseExisting,
		SkippedEmpty: fetched.Skips.MissingPrompt,
		Prompts:      []promptJSON{},
	}
	for _, record := range fetched.Prompts {
		out.Prompts = append(out.Prompts, promptJSON{
			BeatID: string(record.BeatID),
			Format: record.Format.Tag(),
			Prompt: record.PromptText,
		})
	}
	return out
}

func renderSession(cmd *cobra.Command, key string, fetched session.FetchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s: episode %d %s\n", key, fetched.Episode.Number, fetched.Episode.Title)
	fmt.Fprintf(out, "Eligible prompts: %d (skipped: %d reuse-existing, %d missing prompt)\n",
		len(fetched.Prompts), fetched.Skips.ReuseExisting, fetched.Skips.MissingPrompt)
	if len(fetched.Prompts) == 0 {
		return
	}

	rows := make([][]string, 0, len(fetched.Prompts))
	for _, record := range fetched.Prompts {
		rows = append(rows, []string{string(record.BeatID), record.Format.Tag(), excerpt(record.PromptText, 60)})
	}
	fmt.Fprintln(out, renderTable([]string{"Beat", "Format", "Prompt"}, rows))
}

func excerpt(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
