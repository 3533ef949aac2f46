package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxListLimit caps one page of ListGames.
const maxListLimit = 1000

// GameFilter narrows ListGames. Zero values mean "no filter".
type GameFilter struct {
	Status AnalysisStatus
	Player string
	Limit  int
	Offset int
}

// InsertGames stores games, skipping any whose chess.com id is already
// present. Returns the number of newly inserted rows.
func (d *DB) InsertGames(games []Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}
	res := d.gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chess_com_id"}},
		DoNothing: true,
	}).Create(&games)
	if res.Error != nil {
		return 0, fmt.Errorf("insert games: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// GetGame fetches one game by id.
func (d *DB) GetGame(id int64) (*Game, error) {
	var g Game
	if err := d.gdb.First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	return &g, nil
}

// GetGameByChessComID fetches one game by its chess.com id.
func (d *DB) GetGameByChessComID(ccID string) (*Game, error) {
	var g Game
	if err := d.gdb.Where("chess_com_id = ?", ccID).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game %s: %w", ccID, err)
	}
	return &g, nil
}

// ListGames returns games matching the filter, newest first.
func (d *DB) ListGames(f GameFilter) ([]Game, error) {
	q := d.gdb.Model(&Game{}).Order("import_date DESC, id DESC")
	if f.Status != "" {
		q = q.Where("analysis_status = ?", f.Status)
	}
	if f.Player != "" {
		like := "%" + f.Player + "%"
		q = q.Where("white_player LIKE ? OR black_player LIKE ?", like, like)
	}
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	q = q.Limit(f.Limit)
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var games []Game
	if err := q.Find(&games).Error; err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// GameStats summarizes the library for the stats endpoint.
type GameStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	ByResult map[string]int64 `json:"by_result"`
}

// Stats counts games overall, per analysis status and per result.
func (d *DB) Stats() (*GameStats, error) {
	st := &GameStats{
		ByStatus: map[string]int64{},
		ByResult: map[string]int64{},
	}
	if err := d.gdb.Model(&Game{}).Count(&st.Total).Error; err != nil {
		return nil, fmt.Errorf("count games: %w", err)
	}
	type bucket struct {
		Key   string
		Count int64
	}
	var rows []bucket
	err := d.gdb.Model(&Game{}).
		Select("analysis_status AS key, COUNT(*) AS count").
		Group("analysis_status").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, r := range rows {
		st.ByStatus[r.Key] = r.Count
	}
	rows = rows[:0]
	err = d.gdb.Model(&Game{}).
		Select("result AS key, COUNT(*) AS count").
		Group("result").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by result: %w", err)
	}
	for _, r := range rows {
		st.ByResult[r.Key] = r.Count
	}
	return st, nil
}

// SetAnalysisStatus updates the cached status of one game.
func (d *DB) SetAnalysisStatus(id int64, status AnalysisStatus) error {
	res := d.gdb.Model(&Game{}).Where("id = ?", id).
		Update("analysis_status", status)
	if res.Error != nil {
		return fmt.Errorf("set status for game %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearGames deletes every game row. Artifacts are untouched.
func (d *DB) ClearGames() (int64, error) {
	res := d.gdb.Where("1 = 1").Delete(&Game{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear games: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Reconcile repairs each game's cached status toward the artifact
// files: a game with an artifact becomes completed, a completed game
// without one drops back to queued. Returns the number of rows fixed.
func (d *DB) Reconcile(hasArtifact func(id int64) bool) (int, error) {
	var games []Game
	if err := d.gdb.Select("id", "analysis_status").Find(&games).Error; err != nil {
		return 0, fmt.Errorf("reconcile scan: %w", err)
	}
	fixed := 0
	for _, g := range games {
		want := g.AnalysisStatus
		if hasArtifact(g.ID) {
			want = StatusCompleted
		} else if g.AnalysisStatus == StatusCompleted {
			want = StatusQueued
		}
		if want == g.AnalysisStatus {
			continue
		}
		if err := d.SetAnalysisStatus(g.ID, want); err != nil {
			return fixed, err
		}
		fixed++
	}
	if fixed > 0 {
		d.log.Info().Int("fixed", fixed).Msg("reconciled analysis status")
	}
	return fixed, nil
}
