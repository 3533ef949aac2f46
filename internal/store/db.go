// Package store persists games and settings in SQLite and the per-game
// analysis artifacts as JSON files. The artifact file's existence is the
// authoritative "analyzed" signal; the analysis_status column only
// caches it and is reconciled toward the files whenever they disagree.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a game or artifact does not exist.
var ErrNotFound = errors.New("not found")

// AnalysisStatus is the cached analysis state of a game row.
type AnalysisStatus string

const (
	StatusQueued    AnalysisStatus = "queued"
	StatusAnalyzing AnalysisStatus = "analyzing"
	StatusCompleted AnalysisStatus = "completed"
)

// Game is one imported game.
type Game struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	ChessComID     string         `gorm:"uniqueIndex;not null" json:"chess_com_id"`
	PGN            string         `gorm:"type:text;not null" json:"-"`
	WhitePlayer    string         `json:"white_player"`
	BlackPlayer    string         `json:"black_player"`
	Result         string         `json:"result"`
	GameDate       string         `json:"game_date"`
	ImportDate     time.Time      `gorm:"autoCreateTime" json:"import_date"`
	AnalysisStatus AnalysisStatus `gorm:"default:queued" json:"analysis_status"`
}

// Setting is one key/value configuration row.
type Setting struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `json:"value"`
}

// DB wraps the relational store.
type DB struct {
	gdb *gorm.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the SQLite database at path, migrates
// the schema and seeds default settings.
func Open(path string, log zerolog.Logger) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db := &DB{gdb: gdb, log: log.With().Str("component", "store").Logger()}
	if err := db.Initialize(); err != nil {
		return nil, err
	}
	return db, nil
}

// Initialize migrates the schema and seeds any missing default
// settings. Safe to call on a live database.
func (d *DB) Initialize() error {
	if err := d.gdb.AutoMigrate(&Game{}, &Setting{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return d.seedDefaultSettings()
}

// Handle returns an independent session over the same database, for
// workers that must not share statement state with their siblings.
func (d *DB) Handle() *DB {
	return &DB{
		gdb: d.gdb.Session(&gorm.Session{NewDB: true}),
		log: d.log,
	}
}

// Documented engine defaults, used when a setting row is absent or
// unparseable.
const (
	DefaultEnginePath = "stockfish"
	DefaultThreads    = 4
	DefaultHashMB     = 512
	DefaultDepth      = 20
	DefaultMoveTimeMS = 1000
)

// Settings keys.
const (
	SettingEnginePath      = "stockfish_path"
	SettingThreads         = "stockfish_threads"
	SettingHashMB          = "stockfish_hash_mb"
	SettingDepth           = "analysis_depth"
	SettingMoveTimeMS      = "analysis_time_ms"
	SettingChessComUser    = "chess_com_username"
	SettingAutoSyncEnabled = "auto_sync_enabled"
	SettingTheme           = "theme"
)

func defaultSettings() []Setting {
	return []Setting{
		{Key: SettingChessComUser, Value: ""},
		{Key: SettingEnginePath, Value: DefaultEnginePath},
		{Key: SettingThreads, Value: fmt.Sprintf("%d", DefaultThreads)},
		{Key: SettingHashMB, Value: fmt.Sprintf("%d", DefaultHashMB)},
		{Key: SettingDepth, Value: fmt.Sprintf("%d", DefaultDepth)},
		{Key: SettingMoveTimeMS, Value: fmt.Sprintf("%d", DefaultMoveTimeMS)},
		{Key: SettingAutoSyncEnabled, Value: "false"},
		{Key: SettingTheme, Value: "default"},
	}
}
