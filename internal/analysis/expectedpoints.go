package analysis

import (
	"math"
	"strings"
	"unicode"
)

// epSlope is the sigmoid steepness for the centipawn → Expected Points
// conversion, with the score expressed in pawns.
const epSlope = 0.55

// expectedPointsWhite converts a White-perspective evaluation to the
// Expected Points scalar in [0,1]. Mates are exact (1.0 / 0.0); an
// errored evaluation counts as a level position.
func expectedPointsWhite(ev PositionEvaluation) float64 {
	switch ev.ScoreKind {
	case ScoreMate:
		if ev.ScoreValue > 0 {
			return 1.0
		}
		return 0.0
	case ScoreCentipawn:
		return centipawnEP(ev.ScoreValue)
	default:
		return 0.5
	}
}

func centipawnEP(cp int) float64 {
	pawns := float64(cp) / 100
	return clamp01(1 / (1 + math.Exp(-epSlope*pawns)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// resultEP maps a PGN result tag to the final position's White Expected
// Points. Unknown results report ok=false.
func resultEP(result string) (ep float64, ok bool) {
	switch result {
	case "1-0":
		return 1.0, true
	case "0-1":
		return 0.0, true
	case "1/2-1/2":
		return 0.5, true
	}
	return 0, false
}

// classifyLoss assigns the base classification from the mover's
// Expected Points loss. Bounds are inclusive.
func classifyLoss(loss float64) Classification {
	switch {
	case loss <= 0.005:
		return ClassBest
	case loss <= 0.02:
		return ClassExcellent
	case loss <= 0.05:
		return ClassGood
	case loss <= 0.10:
		return ClassInaccuracy
	case loss <= 0.20:
		return ClassMistake
	default:
		return ClassBlunder
	}
}

// specialClassification applies at most one special label, checked in
// priority order.
func specialClassification(epBefore, epAfter, gain float64, sacrificed bool) SpecialClassification {
	switch {
	case epBefore <= 0.35 && epAfter >= 0.65 && gain >= 0.20:
		return SpecialGreatMove
	case sacrificed && epAfter >= 0.55 && epBefore <= 0.70:
		return SpecialBrilliant
	case epBefore >= 0.65 && epAfter <= epBefore-0.10:
		return SpecialMiss
	}
	return SpecialNone
}

var pieceValues = map[rune]int{'p': 1, 'n': 3, 'b': 3, 'r': 5, 'q': 9, 'k': 0}

// materialFromFEN sums piece values for one side from the FEN
// piece-placement field.
func materialFromFEN(fen string, white bool) int {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return 0
	}
	total := 0
	for _, r := range fields[0] {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsUpper(r) != white {
			continue
		}
		total += pieceValues[unicode.ToLower(r)]
	}
	return total
}

// classifyMoves runs the second pass over an evaluated move sequence:
// Expected Points, loss/gain and classifications for every ply. The
// after-value of ply i is the before-value of ply i+1; the last ply's
// after-value comes from the game result, or stays level on an unknown
// result.
func classifyMoves(moves []MoveRecord, result string) {
	for i := range moves {
		mv := &moves[i]
		whiteToMove := sideToMove(mv.FENBefore) == "w"

		epWhiteBefore := expectedPointsWhite(mv.Eval)
		var epWhiteAfter float64
		switch {
		case i+1 < len(moves):
			epWhiteAfter = expectedPointsWhite(moves[i+1].Eval)
		default:
			if v, ok := resultEP(result); ok {
				epWhiteAfter = v
			} else {
				epWhiteAfter = epWhiteBefore
			}
		}

		epBefore, epAfter := epWhiteBefore, epWhiteAfter
		if !whiteToMove {
			epBefore, epAfter = 1-epWhiteBefore, 1-epWhiteAfter
		}
		loss := math.Max(0, epBefore-epAfter)
		gain := math.Max(0, epAfter-epBefore)

		mv.ExpectedPoints = ExpectedPoints{
			MoverBefore: epBefore,
			MoverAfter:  epAfter,
			WhiteBefore: epWhiteBefore,
			WhiteAfter:  epWhiteAfter,
			Loss:        loss,
			Gain:        gain,
		}
		mv.Classification = classifyLoss(loss)

		sacrificed := materialFromFEN(mv.FENBefore, whiteToMove)-
			materialFromFEN(mv.FENAfter, whiteToMove) >= 3
		mv.Special = specialClassification(epBefore, epAfter, gain, sacrificed)
	}
}
