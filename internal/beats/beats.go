package beats

import (
	"fmt"
	"strconv"
	"strings"
)

// Format identifies the target aspect-ratio variant of a generated artifact.
type Format string

const (
	FormatWide     Format = "WIDE"
	FormatVertical Format = "VERTICAL"
)

// ParseFormat accepts the canonical enum values plus the folder and tag
// spellings that appear in session documents and on the command line.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "wide", "widescreen", "16:9":
		return FormatWide, nil
	case "vertical", "shortform", "short", "9:16":
		return FormatVertical, nil
	default:
		return "", fmt.Errorf("unknown format %q", value)
	}
}

// Tag returns the lowercase token used inside organized filenames.
func (f Format) Tag() string {
	switch f {
	case FormatVertical:
		return "vertical"
	default:
		return "wide"
	}
}

// Folder returns the format directory name in the organized project tree.
func (f Format) Folder() string {
	switch f {
	case FormatVertical:
		return "ShortForm"
	default:
		return "Widescreen"
	}
}

// BeatID is a stable beat identifier of the form sSCENE-bBEAT, e.g. "s1-b4".
type BeatID string

// Parse splits the identifier into its scene and beat numbers.
func (id BeatID) Parse() (scene, beat int, err error) {
	s := strings.TrimSpace(string(id))
	dash := strings.IndexByte(s, '-')
	if dash < 0 || !strings.HasPrefix(s, "s") || dash+1 >= len(s) || s[dash+1] != 'b' {
		return 0, 0, fmt.Errorf("beat id %q: want sSCENE-bBEAT", id)
	}
	scene, err = strconv.Atoi(s[1:dash])
	if err != nil {
		return 0, 0, fmt.Errorf("beat id %q: scene number: %w", id, err)
	}
	beat, err = strconv.Atoi(s[dash+2:])
	if err != nil {
		return 0, 0, fmt.Errorf("beat id %q: beat number: %w", id, err)
	}
	if scene < 1 || beat < 1 {
		return 0, 0, fmt.Errorf("beat id %q: numbers must be positive", id)
	}
	return scene, beat, nil
}

// SceneNumber returns the scene component, or 0 when the id is malformed.
func (id BeatID) SceneNumber() int {
	scene, _, err := id.Parse()
	if err != nil {
		return 0
	}
	return scene
}

// Valid reports whether the identifier parses.
func (id BeatID) Valid() bool {
	_, _, err := id.Parse()
	return err == nil
}

// GenerationParams carries the backend-specific knobs for one prompt. The
// pipeline treats these as opaque and forwards them verbatim.
type GenerationParams struct {
	Model    string  `json:"model,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Steps    int     `json:"steps,omitempty"`
	CFGScale float64 `json:"cfgScale,omitempty"`
	Seed     int64   `json:"seed,omitempty"`
}

// PromptRecord is one unit of generation work: a finished prompt plus the
// metadata needed to place its artifacts. Records are read-only snapshots
// taken once per run.
type PromptRecord struct {
	BeatID     BeatID
	Format     Format
	PromptText string
	Params     GenerationParams
}

// EpisodeInfo identifies the episode a session belongs to; used by the
// organizer to build the project directory name.
type EpisodeInfo struct {
	Number int
	Title  string
}
