// Package analysis turns a game's PGN into a per-move quality report:
// engine evaluation, Expected Points estimate and a human-readable
// classification for every ply.
package analysis

// ScoreKind tags how a position evaluation's value is to be read.
type ScoreKind string

const (
	ScoreCentipawn ScoreKind = "cp"
	ScoreMate      ScoreKind = "mate"
	ScoreError     ScoreKind = "error"
)

// PositionEvaluation is one engine verdict for one position. The score
// is always expressed from White's perspective, regardless of the side
// to move (positive = White ahead).
type PositionEvaluation struct {
	FEN        string    `json:"fen"`
	BestMove   string    `json:"best_move,omitempty"`
	Score      string    `json:"score"`
	ScoreKind  ScoreKind `json:"score_type"`
	ScoreValue int       `json:"score_value"`
	PV         []string  `json:"pv"`
	Error      string    `json:"error,omitempty"`
}

// Classification is the base per-move quality label, derived from the
// mover's Expected Points loss. Exactly one applies to every move.
type Classification string

const (
	ClassBest       Classification = "Best"
	ClassExcellent  Classification = "Excellent"
	ClassGood       Classification = "Good"
	ClassInaccuracy Classification = "Inaccuracy"
	ClassMistake    Classification = "Mistake"
	ClassBlunder    Classification = "Blunder"
)

// SpecialClassification is an optional second label, independent of the
// base one. At most one applies; the zero value means none.
type SpecialClassification string

const (
	SpecialNone      SpecialClassification = ""
	SpecialGreatMove SpecialClassification = "Great Move"
	SpecialBrilliant SpecialClassification = "Brilliant"
	SpecialMiss      SpecialClassification = "Miss"
)

// ExpectedPoints is the [0,1] win-probability view of one move, from
// both the mover's and White's perspective, before and after the move.
type ExpectedPoints struct {
	MoverBefore float64 `json:"mover_before"`
	MoverAfter  float64 `json:"mover_after"`
	WhiteBefore float64 `json:"white_before"`
	WhiteAfter  float64 `json:"white_after"`
	Loss        float64 `json:"loss"`
	Gain        float64 `json:"gain"`
}

// MoveRecord is the full report for one ply.
type MoveRecord struct {
	Ply            int                   `json:"ply"`
	SAN            string                `json:"san"`
	UCI            string                `json:"uci"`
	FENBefore      string                `json:"fen_before"`
	FENAfter       string                `json:"fen_after"`
	Eval           PositionEvaluation    `json:"eval"`
	ExpectedPoints ExpectedPoints        `json:"expected_points"`
	Classification Classification        `json:"classification"`
	Special        SpecialClassification `json:"special,omitempty"`
}

// GameInfo carries the analyzed game's metadata.
type GameInfo struct {
	White  string `json:"white"`
	Black  string `json:"black"`
	Result string `json:"result"`
	Date   string `json:"date"`
}

// SettingsSnapshot records the engine settings an analysis ran with.
type SettingsSnapshot struct {
	Depth   int `json:"depth"`
	TimeMS  int `json:"time_ms"`
	Threads int `json:"threads"`
	HashMB  int `json:"hash_mb"`
}

// GameAnalysis is the immutable per-game artifact: metadata, settings
// snapshot and the ordered move reports.
type GameAnalysis struct {
	GameInfo   GameInfo         `json:"game_info"`
	Settings   SettingsSnapshot `json:"analysis_settings"`
	Moves      []MoveRecord     `json:"moves"`
	TotalMoves int              `json:"total_moves"`
	FinalFEN   string           `json:"final_fen"`
}
