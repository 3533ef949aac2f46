package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"github.com/kejdas/local-chess-analyzer/internal/engine"
)

// ErrInvalidInput reports PGN or move data the rules engine cannot
// parse. The whole analysis is aborted; no partial artifact is produced.
var ErrInvalidInput = errors.New("invalid game input")

// Analyzer replays full games against a fresh engine session per call.
type Analyzer struct {
	cfg engine.Config
	log zerolog.Logger
}

// NewAnalyzer returns an analyzer using cfg for every game it analyzes.
func NewAnalyzer(cfg engine.Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, log: log.With().Str("component", "analyzer").Logger()}
}

// AnalyzeGame analyzes one game's PGN move by move. It opens its own
// engine session, evaluates the position before every ply, then runs
// the Expected Points / classification pass. A session that dies
// mid-game fails the whole attempt; the caller may retry with a new
// analyzer call.
func (a *Analyzer) AnalyzeGame(ctx context.Context, pgnText string) (*GameAnalysis, error) {
	game, records, err := replayGame(pgnText)
	if err != nil {
		return nil, err
	}

	session := engine.NewSession(a.cfg, a.log)
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	defer session.Stop()

	evaluator := NewEvaluator(session, a.cfg)
	for i := range records {
		records[i].Eval = evaluator.Evaluate(ctx, records[i].FENBefore)
		// per-position errors are contained in the evaluation, but a
		// dead session cannot score anything further
		if err := session.Err(); err != nil {
			return nil, fmt.Errorf("analysis aborted at ply %d: %w", records[i].Ply, err)
		}
	}

	result := tagValue(game, "Result", "*")
	classifyMoves(records, result)

	positions := game.Positions()
	ga := &GameAnalysis{
		GameInfo: GameInfo{
			White:  tagValue(game, "White", "Unknown"),
			Black:  tagValue(game, "Black", "Unknown"),
			Result: result,
			Date:   tagValue(game, "Date", "????.??.??"),
		},
		Settings: SettingsSnapshot{
			Depth:   a.cfg.Depth,
			TimeMS:  a.cfg.MoveTimeMS,
			Threads: a.cfg.Threads,
			HashMB:  a.cfg.HashMB,
		},
		Moves:      records,
		TotalMoves: len(records),
		FinalFEN:   positions[len(positions)-1].String(),
	}

	a.log.Debug().
		Str("white", ga.GameInfo.White).
		Str("black", ga.GameInfo.Black).
		Int("moves", ga.TotalMoves).
		Msg("game analyzed")
	return ga, nil
}

// replayGame parses the PGN and walks the mainline, capturing SAN, UCI
// and the FEN on both sides of every ply.
func replayGame(pgnText string) (*chess.Game, []MoveRecord, error) {
	if strings.TrimSpace(pgnText) == "" {
		return nil, nil, fmt.Errorf("%w: empty PGN", ErrInvalidInput)
	}
	opt, err := chess.PGN(strings.NewReader(pgnText))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	game := chess.NewGame(opt)

	moves := game.Moves()
	positions := game.Positions()
	if len(positions) != len(moves)+1 {
		return nil, nil, fmt.Errorf("%w: inconsistent move list", ErrInvalidInput)
	}

	var (
		alg chess.AlgebraicNotation
		uci chess.UCINotation
	)
	records := make([]MoveRecord, 0, len(moves))
	for i, move := range moves {
		before, after := positions[i], positions[i+1]
		records = append(records, MoveRecord{
			Ply:       i + 1,
			SAN:       alg.Encode(before, move),
			UCI:       uci.Encode(before, move),
			FENBefore: before.String(),
			FENAfter:  after.String(),
		})
	}
	return game, records, nil
}

func tagValue(game *chess.Game, key, fallback string) string {
	if tp := game.GetTagPair(key); tp != nil && tp.Value != "" {
		return tp.Value
	}
	return fallback
}
