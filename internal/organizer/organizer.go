package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyart/internal/beats"
	"storyart/internal/fileutil"
	"storyart/internal/logging"
	"storyart/internal/services"
	"storyart/internal/textutil"
)

const versionLimit = 99

var titleCaser = cases.Title(language.English)

// Artifact is one resolved generation output awaiting placement.
type Artifact struct {
	SourcePath string
	BeatID     beats.BeatID
	Format     beats.Format
}

// Organizer copies artifacts into the project tree.
type Organizer struct {
	projectRoot string
	logger      *slog.Logger
}

// New constructs an organizer rooted at the project directory.
func New(projectRoot string, logger *slog.Logger) *Organizer {
	return &Organizer{
		projectRoot: projectRoot,
		logger:      logging.NewComponentLogger(logger, "organizer"),
	}
}

// Place copies the artifact into its scene directory under the next unused
// version and returns the final path. The source file is left untouched.
func (o *Organizer) Place(ctx context.Context, artifact Artifact, episode beats.EpisodeInfo, sceneNumber int) (string, error) {
	logger := logging.WithContext(ctx, o.logger)

	if artifact.SourcePath == "" {
		return "", services.Wrap(services.ErrValidation, "organizer", "place", "artifact has no source path", nil)
	}
	if !artifact.BeatID.Valid() {
		return "", services.Wrap(services.ErrValidation, "organizer", "place", fmt.Sprintf("invalid beat id %q", artifact.BeatID), nil)
	}

	dir := o.sceneDir(episode, artifact.Format, sceneNumber)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "organizer", "place", "create scene directory "+dir, err)
	}

	ext := strings.ToLower(filepath.Ext(artifact.SourcePath))
	if ext == "" {
		ext = ".png"
	}
	name, err := nextVersionedName(dir, string(artifact.BeatID), artifact.Format.Tag(), ext)
	if err != nil {
		return "", err
	}
	final := filepath.Join(dir, name)

	if err := fileutil.CopyFileVerified(artifact.SourcePath, final); err != nil {
		return "", services.Wrap(services.ErrTransient, "organizer", "place", "copy artifact into project tree", err)
	}

	logger.Info("artifact placed",
		logging.String(logging.FieldBeatID, string(artifact.BeatID)),
		logging.String(logging.FieldFormat, artifact.Format.Tag()),
		logging.String("path", final),
	)
	return final, nil
}

// EpisodeDir returns the episode folder name, title-cased and sanitized.
func EpisodeDir(episode beats.EpisodeInfo) string {
	title := strings.TrimSpace(episode.Title)
	if title == "" {
		title = "Untitled"
	}
	title = titleCaser.String(title)
	title = textutil.SanitizePathSegment(title)
	return fmt.Sprintf("Episode_%d_%s", episode.Number, title)
}

func (o *Organizer) sceneDir(episode beats.EpisodeInfo, format beats.Format, sceneNumber int) string {
	return filepath.Join(
		o.projectRoot,
		EpisodeDir(episode),
		"Assets", "Images",
		format.Folder(),
		fmt.Sprintf("Scene_%d", sceneNumber),
	)
}

// nextVersionedName scans the directory for existing versions of the
// (beatID, formatTag) pair and returns the name one past the highest found.
// Versions only grow: a gap left by manual deletion is never refilled, so a
// version string always refers to the same generation.
func nextVersionedName(dir, beatID, formatTag, ext string) (string, error) {
	prefix := textutil.SanitizeFileName(beatID+"_"+formatTag) + "_v"
	highest := 0
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "organizer", "place", "scan scene directory "+dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), filepath.Ext(name))
		version := 0
		if _, err := fmt.Sscanf(rest, "%d", &version); err != nil {
			continue
		}
		if version > highest {
			highest = version
		}
	}
	if highest >= versionLimit {
		return "", services.Wrap(
			services.ErrValidation,
			"organizer",
			"place",
			fmt.Sprintf("all %d versions used for %s%s in %s", versionLimit, prefix, ext, dir),
			nil,
		)
	}
	name := fmt.Sprintf("%s%02d%s", prefix, highest+1, ext)
	return textutil.SanitizeFileName(name), nil
}
