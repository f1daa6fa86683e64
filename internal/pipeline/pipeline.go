package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storyart/internal/beats"
	"storyart/internal/config"
	"storyart/internal/logging"
	"storyart/internal/organizer"
	"storyart/internal/runlog"
	"storyart/internal/services"
	"storyart/internal/services/swarm"
	"storyart/internal/session"
)

// Run modes recorded in the summary and run history.
const (
	ModeBatch = "batch"
	ModeItem  = "item"
)

// PromptSource yields the eligible prompt records for one session.
type PromptSource interface {
	FetchPrompts(ctx context.Context, sessionKey string) (session.FetchResult, error)
}

// Backend is the generation client used by the run loop.
type Backend interface {
	NewSession(ctx context.Context) (string, error)
	Generate(ctx context.Context, req swarm.GenerateRequest) (swarm.RawArtifact, error)
}

// Resolver locates a backend output reference on disk.
type Resolver interface {
	Resolve(ref string, requestStart time.Time) (string, error)
}

// Placer files a resolved artifact into the project tree.
type Placer interface {
	Place(ctx context.Context, artifact organizer.Artifact, episode beats.EpisodeInfo, sceneNumber int) (string, error)
}

// History records completed runs. Nil disables persistence.
type History interface {
	Record(ctx context.Context, record runlog.Record) error
}

// ProgressEvent is one observable step of a run.
type ProgressEvent struct {
	State     State
	Completed int
	Total     int
	BeatID    beats.BeatID
	Format    beats.Format
	// ETA is the smoothed estimate for the remaining items; zero until the
	// first item completes.
	ETA time.Duration
}

// Options tunes one run.
type Options struct {
	Progress func(ProgressEvent)
}

// ItemResult is one successfully placed artifact.
type ItemResult struct {
	BeatID    beats.BeatID
	Format    beats.Format
	FinalPath string
}

// ItemFailure is one non-fatal per-item failure.
type ItemFailure struct {
	BeatID beats.BeatID
	Format beats.Format
	Reason string
}

// Summary is the outcome of a run.
type Summary struct {
	RunID      string
	SessionKey string
	Mode       string
	State      State
	Episode    beats.EpisodeInfo
	Total      int
	Placed     []ItemResult
	Failed     []ItemFailure
	Skips      session.SkipStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded returns the number of artifacts placed.
func (s Summary) Succeeded() int { return len(s.Placed) }

// Cancelled reports whether the run stopped early on caller request.
func (s Summary) Cancelled() bool { return s.State == StateCancelled }

// Runner drives generation runs.
type Runner struct {
	cfg      *config.Config
	prompts  PromptSource
	backend  Backend
	resolver Resolver
	placer   Placer
	history  History
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner wires a runner from its collaborators. history may be nil.
func NewRunner(cfg *config.Config, prompts PromptSource, backend Backend, resolver Resolver, placer Placer, history History, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		prompts:  prompts,
		backend:  backend,
		resolver: resolver,
		placer:   placer,
		history:  history,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		now:      time.Now,
	}
}

// RunBatch processes every eligible prompt in the session. A session with no
// eligible prompts is a successful no-op.
func (r *Runner) RunBatch(ctx context.Context, sessionKey string, opts Options) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSessionKey(ctx, sessionKey)
	logger := logging.WithContext(ctx, r.logger)

	summary := Summary{
		RunID:      runID,
		SessionKey: sessionKey,
		Mode:       ModeBatch,
		State:      StateInitializing,
		StartedAt:  r.now(),
	}
	logger.Info("run started", logging.String("mode", summary.Mode))

	r.advance(&summary, StateFetching, opts)
	fetched, err := r.prompts.FetchPrompts(ctx, sessionKey)
	if err != nil {
		return summary, err
	}
	summary.Episode = fetched.Episode
	summary.Skips = fetched.Skips
	summary.Total = len(fetched.Prompts)

	if summary.Total == 0 {
		logger.Info("no eligible prompts; nothing to generate")
		r.finish(ctx, &summary, opts, logger)
		return summary, nil
	}

	backendSession, err := r.backend.NewSession(ctx)
	if err != nil {
		return summary, err
	}

	r.advance(&summary, StateGenerating, opts)
	r.processAll(ctx, &summary, backendSession, fetched.Prompts, fetched.Episode, opts, logger)

	r.finish(ctx, &summary, opts, logger)
	return summary, nil
}

// RunItem processes exactly one prompt record.
func (r *Runner) RunItem(ctx context.Context, record beats.PromptRecord, episode beats.EpisodeInfo, opts Options) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	summary := Summary{
		RunID:     runID,
		Mode:      ModeItem,
		State:     StateInitializing,
		Episode:   episode,
		Total:     1,
		StartedAt: r.now(),
	}
	if record.PromptText == "" {
		return summary, services.Wrap(services.ErrValidation, "pipeline", "run item", "prompt record has no prompt text", nil)
	}
	logger.Info("run started",
		logging.String("mode", summary.Mode),
		logging.String(logging.FieldBeatID, string(record.BeatID)),
	)

	backendSession, err := r.backend.NewSession(ctx)
	if err != nil {
		return summary, err
	}

	r.advance(&summary, StateFetching, opts)
	r.advance(&summary, StateGenerating, opts)
	r.processAll(ctx, &summary, backendSession, []beats.PromptRecord{record}, episode, opts, logger)

	r.finish(ctx, &summary, opts, logger)
	return summary, nil
}

// processAll runs the sequential item loop. One generation request is in
// flight at any time; cancellation is honored at the loop boundary only.
func (r *Runner) processAll(ctx context.Context, summary *Summary, backendSession string, records []beats.PromptRecord, episode beats.EpisodeInfo, opts Options, logger *slog.Logger) {
	var elapsed time.Duration
	completed := 0

	for _, record := range records {
		if ctx.Err() != nil {
			logger.Info("run cancelled",
				logging.Int("completed", completed),
				logging.Int("remaining", len(records)-completed),
			)
			r.advance(summary, StateCancelled, opts)
			return
		}

		r.emit(opts, ProgressEvent{
			State:     summary.State,
			Completed: completed,
			Total:     summary.Total,
			BeatID:    record.BeatID,
			Format:    record.Format,
			ETA:       estimateRemaining(elapsed, completed, summary.Total),
		})

		itemStart := r.now()
		placed, err := r.processItem(ctx, summary, backendSession, record, episode, opts)
		if err != nil {
			summary.Failed = append(summary.Failed, ItemFailure{
				BeatID: record.BeatID,
				Format: record.Format,
				Reason: services.Reason(err),
			})
			logger.Warn("item failed",
				logging.String(logging.FieldBeatID, string(record.BeatID)),
				logging.String(logging.FieldFormat, record.Format.Tag()),
				logging.Error(err),
			)
		} else {
			summary.Placed = append(summary.Placed, placed...)
			logger.Info("item complete",
				logging.String(logging.FieldBeatID, string(record.BeatID)),
				logging.String(logging.FieldFormat, record.Format.Tag()),
				logging.Int("artifacts", len(placed)),
			)
		}
		elapsed += r.now().Sub(itemStart)
		completed++
	}
}

// processItem generates one prompt and places every artifact the backend
// reported for it.
func (r *Runner) processItem(ctx context.Context, summary *Summary, backendSession string, record beats.PromptRecord, episode beats.EpisodeInfo, opts Options) ([]ItemResult, error) {
	ctx = services.WithBeat(ctx, string(record.BeatID))

	images := r.cfg.Backend.ImagesPerPrompt
	raw, err := r.backend.Generate(ctx, swarm.GenerateRequest{
		SessionID: backendSession,
		Prompt:    record.PromptText,
		Images:    images,
		Params:    record.Params,
	})
	if err != nil {
		return nil, err
	}

	if summary.State == StateGenerating {
		r.advance(summary, StateOrganizing, opts)
	}
	var placed []ItemResult
	for _, ref := range raw.Refs {
		local, err := r.resolver.Resolve(ref, raw.RequestStart)
		if err != nil {
			return nil, err
		}
		final, err := r.placer.Place(ctx, organizer.Artifact{
			SourcePath: local,
			BeatID:     record.BeatID,
			Format:     record.Format,
		}, episode, record.BeatID.SceneNumber())
		if err != nil {
			return nil, err
		}
		placed = append(placed, ItemResult{BeatID: record.BeatID, Format: record.Format, FinalPath: final})
	}
	if summary.State == StateOrganizing {
		r.advance(summary, StateGenerating, opts)
	}
	return placed, nil
}

func (r *Runner) finish(ctx context.Context, summary *Summary, opts Options, logger *slog.Logger) {
	if summary.State != StateCancelled {
		r.advance(summary, StateSummarizing, opts)
	}
	summary.FinishedAt = r.now()

	r.persist(ctx, summary, logger)

	if summary.State == StateSummarizing {
		r.advance(summary, StateDone, opts)
	}
	logger.Info("run finished",
		logging.String("state", string(summary.State)),
		logging.Int("total", summary.Total),
		logging.Int("succeeded", summary.Succeeded()),
		logging.Int("failed", len(summary.Failed)),
		logging.Int("skipped", summary.Skips.Total()),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
}

// persist writes the run to history. Failures here never fail the run.
func (r *Runner) persist(ctx context.Context, summary *Summary, logger *slog.Logger) {
	if r.history == nil {
		return
	}
	failures := make([]runlog.ItemFailure, 0, len(summary.Failed))
	for _, f := range summary.Failed {
		failures = append(failures, runlog.ItemFailure{
			BeatID: string(f.BeatID),
			Format: f.Format.Tag(),
			Reason: f.Reason,
		})
	}
	record := runlog.Record{
		RunID:      summary.RunID,
		SessionKey: summary.SessionKey,
		Mode:       summary.Mode,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Total:      summary.Total,
		Succeeded:  summary.Succeeded(),
		Skipped:    summary.Skips.Total(),
		Failures:   failures,
	}
	if err := r.history.Record(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn("run history not recorded", logging.Error(err))
	}
}

func (r *Runner) advance(summary *Summary, next State, opts Options) {
	if !summary.State.CanTransitionTo(next) {
		// Transition table bug; keep going rather than corrupt the run.
		r.logger.Warn("illegal state transition",
			logging.String("from", string(summary.State)),
			logging.String("to", string(next)),
		)
	}
	summary.State = next
	r.emit(opts, ProgressEvent{State: next, Completed: summary.Succeeded() + len(summary.Failed), Total: summary.Total})
}

func (r *Runner) emit(opts Options, event ProgressEvent) {
	if opts.Progress != nil {
		opts.Progress(event)
	}
}

// estimateRemaining projects the mean per-item duration over the items left.
func estimateRemaining(elapsed time.Duration, completed, total int) time.Duration {
	if completed == 0 || total <= completed {
		return 0
	}
	mean := elapsed / time.Duration(completed)
	return mean * time.Duration(total-completed)
}
