package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"storyart/internal/beats"
	"storyart/internal/logging"
	"storyart/internal/services"
)

// SkipStats counts records excluded from a fetch. Skips are expected and are
// never errors.
type SkipStats struct {
	ReuseExisting int
	MissingPrompt int
}

// Total returns the number of skipped records.
func (s SkipStats) Total() int { return s.ReuseExisting + s.MissingPrompt }

// FetchResult is the outcome of extracting prompts from one session.
type FetchResult struct {
	Episode beats.EpisodeInfo
	Prompts []beats.PromptRecord
	Skips   SkipStats
}

// Adapter extracts eligible prompt records from session documents.
type Adapter struct {
	source Source
	logger *slog.Logger
}

// NewAdapter constructs the prompt source adapter.
func NewAdapter(source Source, logger *slog.Logger) *Adapter {
	return &Adapter{source: source, logger: logging.NewComponentLogger(logger, "session")}
}

// sessionDocument mirrors the subset of the upstream session JSON this tool
// consumes. Older exports carry beats at the episode level instead of inside
// scenes; both shapes are accepted.
type sessionDocument struct {
	StoryUUID       string `json:"storyUuid"`
	AnalyzedEpisode struct {
		EpisodeNumber int            `json:"episodeNumber"`
		Title         string         `json:"title"`
		Scenes        []sceneRecord  `json:"scenes"`
		Beats         []beatDocument `json:"beats"`
	} `json:"analyzedEpisode"`
}

type sceneRecord struct {
	SceneNumber int            `json:"sceneNumber"`
	Beats       []beatDocument `json:"beats"`
}

type beatDocument struct {
	BeatID           string         `json:"beatId"`
	RequiresNewImage bool           `json:"requiresNewImage"`
	ImagePrompts     []promptRecord `json:"imagePrompts"`
}

type promptRecord struct {
	Format string  `json:"format"`
	Prompt string  `json:"prompt"`
	Model  string  `json:"model"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Steps  int     `json:"steps"`
	CFG    float64 `json:"cfgScale"`
	Seed   int64   `json:"seed"`
}

// FetchPrompts retrieves the session document and returns the ordered list of
// prompt records flagged for new-artifact generation. An empty list is a
// valid result, not an error.
func (a *Adapter) FetchPrompts(ctx context.Context, sessionKey string) (FetchResult, error) {
	logger := logging.WithContext(ctx, a.logger)

	raw, err := a.source.GetSession(ctx, sessionKey)
	if err != nil {
		return FetchResult{}, err
	}

	var doc sessionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return FetchResult{}, services.Wrap(services.ErrMalformed, "session", "parse", "session document is not valid JSON", err)
	}

	result := FetchResult{
		Episode: beats.EpisodeInfo{
			Number: doc.AnalyzedEpisode.EpisodeNumber,
			Title:  strings.TrimSpace(doc.AnalyzedEpisode.Title),
		},
	}

	// Nested per-scene shape first, flat episode-level shape as fallback.
	source := collectSceneBeats(doc.AnalyzedEpisode.Scenes)
	shape := "nested"
	if len(source) == 0 {
		source = doc.AnalyzedEpisode.Beats
		shape = "flat"
	}
	if len(source) == 0 {
		logger.Info("session holds no beats", logging.String(logging.FieldSessionKey, sessionKey))
		return result, nil
	}

	for _, beat := range source {
		id := beats.BeatID(strings.TrimSpace(beat.BeatID))
		if !id.Valid() {
			return FetchResult{}, services.Wrap(
				services.ErrMalformed,
				"session",
				"parse",
				"beat id "+strconv.Quote(beat.BeatID)+" does not match sSCENE-bBEAT",
				nil,
			)
		}
		if !beat.RequiresNewImage {
			result.Skips.ReuseExisting += len(beat.ImagePrompts)
			continue
		}
		for _, prompt := range beat.ImagePrompts {
			text := strings.TrimSpace(prompt.Prompt)
			if text == "" {
				result.Skips.MissingPrompt++
				continue
			}
			format, err := beats.ParseFormat(prompt.Format)
			if err != nil {
				return FetchResult{}, services.Wrap(services.ErrMalformed, "session", "parse", "beat "+string(id), err)
			}
			result.Prompts = append(result.Prompts, beats.PromptRecord{
				BeatID:     id,
				Format:     format,
				PromptText: text,
				Params: beats.GenerationParams{
					Model:    strings.TrimSpace(prompt.Model),
					Width:    prompt.Width,
					Height:   prompt.Height,
					Steps:    prompt.Steps,
					CFGScale: prompt.CFG,
					Seed:     prompt.Seed,
				},
			})
		}
	}

	logger.Info("prompts extracted",
		logging.String(logging.FieldSessionKey, sessionKey),
		logging.String("shape", shape),
		logging.Int("eligible", len(result.Prompts)),
		logging.Int("skipped_reuse", result.Skips.ReuseExisting),
		logging.Int("skipped_no_prompt", result.Skips.MissingPrompt),
	)
	return result, nil
}

func collectSceneBeats(scenes []sceneRecord) []beatDocument {
	var out []beatDocument
	for _, scene := range scenes {
		out = append(out, scene.Beats...)
	}
	return out
}
