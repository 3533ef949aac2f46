// Package bulk runs engine analysis over many games with bounded
// concurrency. Each game gets its own engine session and its own
// success or failure; one bad game never aborts the batch.
package bulk

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kejdas/local-chess-analyzer/internal/analysis"
	"github.com/kejdas/local-chess-analyzer/internal/store"
)

// Concurrency bounds. Requests outside the range are clamped, never
// rejected.
const (
	MinConcurrency     = 1
	MaxConcurrency     = 8
	DefaultConcurrency = 2
)

// Per-game outcome statuses.
const (
	StatusNotFound         = "not_found"
	StatusAlreadyCompleted = "already_completed"
	StatusCompleted        = "completed"
	StatusFailed           = "failed"
)

// Games is the slice of the game store the orchestrator needs.
type Games interface {
	GetGame(id int64) (*store.Game, error)
	SetAnalysisStatus(id int64, status store.AnalysisStatus) error
}

// Artifacts persists finished analyses. Exists is the authoritative
// "already analyzed" check.
type Artifacts interface {
	Exists(id int64) bool
	Save(id int64, ga *analysis.GameAnalysis) error
}

// Runner analyzes one game. *analysis.Analyzer satisfies it.
type Runner interface {
	AnalyzeGame(ctx context.Context, pgn string) (*analysis.GameAnalysis, error)
}

// GameResult is the outcome for one requested game.
type GameResult struct {
	GameID int64  `json:"game_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report summarizes a batch. Results holds exactly one entry per
// requested id, in request order. Started counts the games that were
// actually scheduled on a worker.
type Report struct {
	Requested        int          `json:"requested"`
	AlreadyCompleted int          `json:"already_completed"`
	Started          int          `json:"started"`
	NotFound         int          `json:"not_found"`
	Completed        int          `json:"completed"`
	Failed           int          `json:"failed"`
	Concurrency      int          `json:"concurrency"`
	Results          []GameResult `json:"results"`
}

// Orchestrator schedules bulk analysis runs.
type Orchestrator struct {
	games     Games
	artifacts Artifacts
	runner    Runner
	log       zerolog.Logger

	active    atomic.Int64
	completed atomic.Int64
}

func NewOrchestrator(games Games, artifacts Artifacts, runner Runner, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		games:     games,
		artifacts: artifacts,
		runner:    runner,
		log:       log.With().Str("component", "bulk").Logger(),
	}
}

// ClampConcurrency maps any requested worker count into the allowed
// range. Zero and negatives mean "use the default".
func ClampConcurrency(n int) int {
	switch {
	case n <= 0:
		return DefaultConcurrency
	case n < MinConcurrency:
		return MinConcurrency
	case n > MaxConcurrency:
		return MaxConcurrency
	}
	return n
}

// Run analyzes the requested games with at most concurrency engine
// sessions alive at once. With skipAnalyzed set, games that already
// have an artifact are settled up front without costing a worker slot;
// without it every found game is re-analyzed and its artifact
// overwritten. Missing games are always settled up front. The returned
// error is only the context's; per-game failures land in the report.
func (o *Orchestrator) Run(ctx context.Context, ids []int64, concurrency int, skipAnalyzed bool) (*Report, error) {
	concurrency = ClampConcurrency(concurrency)
	rep := &Report{
		Requested:   len(ids),
		Concurrency: concurrency,
		Results:     make([]GameResult, len(ids)),
	}

	// Settle cheap outcomes first so workers only see real jobs.
	type job struct {
		idx  int
		game *store.Game
	}
	var jobs []job
	for i, id := range ids {
		rep.Results[i] = GameResult{GameID: id}
		game, err := o.games.GetGame(id)
		if err != nil {
			rep.Results[i].Status = StatusNotFound
			rep.Results[i].Error = err.Error()
			continue
		}
		if skipAnalyzed && o.artifacts.Exists(id) {
			rep.Results[i].Status = StatusAlreadyCompleted
			if game.AnalysisStatus != store.StatusCompleted {
				o.markStatus(id, store.StatusCompleted)
			}
			continue
		}
		jobs = append(jobs, job{idx: i, game: game})
	}
	rep.Started = len(jobs)

	o.log.Info().
		Int("requested", len(ids)).
		Int("scheduled", len(jobs)).
		Int("concurrency", concurrency).
		Msg("bulk analysis starting")

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			// Each goroutine owns a distinct index in Results.
			rep.Results[j.idx] = o.analyzeOne(ctx, j.game, skipAnalyzed)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range rep.Results {
		switch r.Status {
		case StatusAlreadyCompleted:
			rep.AlreadyCompleted++
		case StatusNotFound:
			rep.NotFound++
		case StatusCompleted:
			rep.Completed++
		case StatusFailed:
			rep.Failed++
		}
	}
	o.log.Info().
		Int("completed", rep.Completed).
		Int("failed", rep.Failed).
		Int("already_completed", rep.AlreadyCompleted).
		Int("not_found", rep.NotFound).
		Msg("bulk analysis finished")
	return rep, ctx.Err()
}

func (o *Orchestrator) analyzeOne(ctx context.Context, game *store.Game, skipAnalyzed bool) GameResult {
	res := GameResult{GameID: game.ID}

	// A sibling worker or another request may have finished this game
	// while it sat in the queue. A forced run overwrites it instead.
	if skipAnalyzed && o.artifacts.Exists(game.ID) {
		res.Status = StatusAlreadyCompleted
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}

	n := o.active.Add(1)
	defer o.active.Add(-1)
	log := o.log.With().Int64("game_id", game.ID).Logger()
	log.Debug().Int64("active", n).Msg("analysis starting")

	o.markStatus(game.ID, store.StatusAnalyzing)
	ga, err := o.runner.AnalyzeGame(ctx, game.PGN)
	if err != nil {
		log.Warn().Err(err).Msg("analysis failed")
		o.markStatus(game.ID, store.StatusQueued)
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	if err := o.artifacts.Save(game.ID, ga); err != nil {
		log.Error().Err(err).Msg("failed to store analysis")
		o.markStatus(game.ID, store.StatusQueued)
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	o.markStatus(game.ID, store.StatusCompleted)
	res.Status = StatusCompleted
	log.Info().Int64("done", o.completed.Add(1)).Msg("analysis completed")
	return res
}

// markStatus is best-effort; the artifact on disk is the source of
// truth and a failed cache update is repaired by Reconcile.
func (o *Orchestrator) markStatus(id int64, status store.AnalysisStatus) {
	if err := o.games.SetAnalysisStatus(id, status); err != nil {
		o.log.Warn().Err(err).Int64("game_id", id).
			Str("status", string(status)).Msg("status update failed")
	}
}
