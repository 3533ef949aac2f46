package chesscom

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kejdas/local-chess-analyzer/internal/store"
)

// ErrSyncInProgress is returned when a sync is started while another
// one is still running.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrNoUsername is returned when no chess.com username is configured.
var ErrNoUsername = errors.New("no chess.com username configured")

// Importer is the slice of the store a sync writes to.
type Importer interface {
	InsertGames(games []store.Game) (int, error)
}

// SyncState is a snapshot of the current or most recent sync job.
type SyncState struct {
	JobID      string     `json:"job_id,omitempty"`
	Running    bool       `json:"running"`
	Username   string     `json:"username,omitempty"`
	Fetched    int        `json:"fetched"`
	Imported   int        `json:"imported"`
	Skipped    int        `json:"skipped"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Syncer runs at most one chess.com import at a time.
type Syncer struct {
	client   *Client
	importer Importer
	log      zerolog.Logger

	mu    sync.Mutex
	state SyncState
}

func NewSyncer(client *Client, importer Importer, log zerolog.Logger) *Syncer {
	return &Syncer{
		client:   client,
		importer: importer,
		log:      log.With().Str("component", "sync").Logger(),
	}
}

// Start begins a background import of the player's full game history.
// Returns the job id, or ErrSyncInProgress when one is already running.
func (s *Syncer) Start(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", ErrNoUsername
	}
	s.mu.Lock()
	if s.state.Running {
		s.mu.Unlock()
		return "", ErrSyncInProgress
	}
	now := time.Now()
	jobID := uuid.NewString()
	s.state = SyncState{
		JobID:     jobID,
		Running:   true,
		Username:  username,
		StartedAt: &now,
	}
	s.mu.Unlock()

	go s.run(ctx, username)
	return jobID, nil
}

// Status returns a copy of the current sync state.
func (s *Syncer) Status() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Syncer) run(ctx context.Context, username string) {
	log := s.log.With().Str("username", username).Logger()
	log.Info().Msg("sync starting")

	games, err := s.client.AllGames(ctx, username, 0, func(fetched int) {
		s.mu.Lock()
		s.state.Fetched = fetched
		s.mu.Unlock()
	})
	if err != nil {
		s.finish(0, 0, err)
		log.Error().Err(err).Msg("sync failed")
		return
	}

	rows := make([]store.Game, 0, len(games))
	skippedPGN := 0
	for _, g := range games {
		row, err := g.ToGame()
		if err != nil {
			// Variant games and corrupt PGNs are expected in the wild.
			skippedPGN++
			log.Debug().Err(err).Str("url", g.URL).Msg("skipping unparseable game")
			continue
		}
		rows = append(rows, row)
	}
	inserted, err := s.importer.InsertGames(rows)
	if err != nil {
		s.finish(0, 0, err)
		log.Error().Err(err).Msg("sync failed")
		return
	}
	skipped := len(games) - inserted
	s.finish(inserted, skipped, nil)
	log.Info().Int("fetched", len(games)).Int("imported", inserted).
		Int("skipped", skipped).Int("unparseable", skippedPGN).
		Msg("sync finished")
}

func (s *Syncer) finish(imported, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.state.Running = false
	s.state.Imported = imported
	s.state.Skipped = skipped
	s.state.FinishedAt = &now
	if err != nil {
		s.state.Error = err.Error()
	}
}
