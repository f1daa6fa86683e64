package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storyart/internal/pipeline"
)

type summaryJSON struct {
	RunID      string             `json:"run_id"`
	SessionKey string             `json:"session_key,omitempty"`
	Mode       string             `json:"mode"`
	State      string             `json:"state"`
	Episode    int                `json:"episode"`
	Title      string             `json:"title,omitempty"`
	Total      int                `json:"total"`
	Succeeded  int                `json:"succeeded"`
	Failed     []failureJSON      `json:"failed"`
	Skipped    int                `json:"skipped"`
	Placed     []placementJSON    `json:"placed"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

type placementJSON struct {
	BeatID string `json:"beat_id"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

type failureJSON struct {
	BeatID string `json:"beat_id"`
	Format string `json:"format"`
	Reason string `json:"reason"`
}

func renderSummary(cmd *cobra.Command, summary pipeline.Summary, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, toSummaryJSON(summary))
	}

	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Run", summary.RunID},
		{"Mode", summary.Mode},
		{"State", string(summary.State)},
		{"Episode", fmt.Sprintf("%d %s", summary.Episode.Number, summary.Episode.Title)},
		{"Prompts", fmt.Sprintf("%d", summary.Total)},
		{"Placed", fmt.Sprintf("%d", summary.Succeeded())},
		{"Failed", fmt.Sprintf("%d", len(summary.Failed))},
		{"Skipped", fmt.Sprintf("%d", summary.Skips.Total())},
		{"Elapsed", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))

	if len(summary.Placed) > 0 {
		placedRows := make([][]string, 0, len(summary.Placed))
		for _, item := range summary.Placed {
			placedRows = append(placedRows, []string{string(item.BeatID), item.Format.Tag(), item.FinalPath})
		}
		fmt.Fprintln(out, renderTable([]string{"Beat", "Format", "Asset"}, placedRows))
	}

	if len(summary.Failed) > 0 {
		failedRows := make([][]string, 0, len(summary.Failed))
		for _, failure := range summary.Failed {
			failedRows = append(failedRows, []string{string(failure.BeatID), failure.Format.Tag(), failure.Reason})
		}
		fmt.Fprintln(out, renderTable([]string{"Beat", "Format", "Reason"}, failedRows))
	}
	return nil
}

func toSummaryJSON(summary pipeline.Summary) summaryJSON {
	out := summaryJSON{
		RunID:      summary.RunID,
		SessionKey: summary.SessionKey,
		Mode:       summary.Mode,
		State:      string(summary.State),
		Episode:    summary.Episode.Number,
		Title:      summary.Episode.Title,
		Total:      summary.Total,
		Succeeded:  summary.Succeeded(),
		Skipped:    summary.Skips.Total(),
		Placed:     []placementJSON{},
		Failed:     []failureJSON{},
		StartedAt:  summary.StartedAt.UTC(),
		FinishedAt: summary.FinishedAt.UTC(),
	}
	for _, item := range summary.Placed {
		out.Placed = append(out.Placed, placementJSON{
			BeatID: string(item.BeatID),
			Format: item.Format.Tag(),
			Path:   item.FinalPath,
		})
	}
	for _, failure := range summary.Failed {
		out.Failed = append(out.Failed, failureJSON{
			BeatID: string(failure.BeatID),
			Format: failure.Format.Tag(),
			Reason: failure.Reason,
		})
	}
	return out
}
