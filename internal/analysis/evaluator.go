package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/kejdas/local-chess-analyzer/internal/engine"
)

// maxPVMoves caps the stored principal variation.
const maxPVMoves = 5

// Evaluator issues single-position queries against one engine session
// and normalizes the result to White's perspective.
type Evaluator struct {
	session    *engine.Session
	depth      int
	movetimeMS int
}

// NewEvaluator wraps session with the per-query depth and time budget
// from cfg.
func NewEvaluator(session *engine.Session, cfg engine.Config) *Evaluator {
	return &Evaluator{
		session:    session,
		depth:      cfg.Depth,
		movetimeMS: cfg.MoveTimeMS,
	}
}

// Evaluate queries one FEN. Engine failures never propagate: the
// returned evaluation carries score kind "error", a neutral value and
// the error message, so a caller scoring a whole game can keep going.
func (e *Evaluator) Evaluate(ctx context.Context, fen string) PositionEvaluation {
	res, err := e.session.Query(ctx, fen, e.depth, e.movetimeMS)
	if err != nil {
		return PositionEvaluation{
			FEN:       fen,
			Score:     "0.00",
			ScoreKind: ScoreError,
			PV:        []string{},
			Error:     err.Error(),
		}
	}

	ev := PositionEvaluation{
		FEN:      fen,
		BestMove: res.BestMove,
		PV:       truncatePV(res.PV),
	}

	blackToMove := sideToMove(fen) == "b"
	switch {
	case res.Mate != nil:
		mate := *res.Mate
		if blackToMove {
			mate = -mate
		}
		ev.ScoreKind = ScoreMate
		ev.ScoreValue = mate
		ev.Score = fmt.Sprintf("M%d", mate)
	case res.CP != nil:
		cp := *res.CP
		if blackToMove {
			cp = -cp
		}
		ev.ScoreKind = ScoreCentipawn
		ev.ScoreValue = cp
		ev.Score = fmt.Sprintf("%.2f", float64(cp)/100)
	default:
		// bestmove arrived without any score line
		ev.ScoreKind = ScoreCentipawn
		ev.ScoreValue = 0
		ev.Score = "0.00"
	}
	return ev
}

func truncatePV(pv []string) []string {
	if pv == nil {
		return []string{}
	}
	if len(pv) > maxPVMoves {
		return pv[:maxPVMoves]
	}
	return pv
}

// sideToMove reads the second FEN field; malformed input counts as
// White to move.
func sideToMove(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) >= 2 {
		return fields[1]
	}
	return "w"
}
