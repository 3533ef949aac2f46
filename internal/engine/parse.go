package engine

import (
	"strconv"
	"strings"
)

// Result holds the raw outcome of one position query, side-to-move
// relative. CP and Mate are the last scores seen before bestmove; both
// can be present when the engine switches between them mid-search.
type Result struct {
	BestMove string
	CP       *int
	Mate     *int
	PV       []string
}

// parseInfo folds one engine output line into res. Only "info" lines
// carrying a score or principal variation contribute; every other line,
// and every unrecognized token, is ignored.
func parseInfo(line string, res *Result) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return
	}
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "score":
			if i+2 >= len(fields) {
				return
			}
			n, err := strconv.Atoi(fields[i+2])
			if err != nil {
				i++
				continue
			}
			switch fields[i+1] {
			case "cp":
				cp := n
				res.CP = &cp
			case "mate":
				mate := n
				res.Mate = &mate
			}
			i += 2
		case "pv":
			if i+1 < len(fields) {
				res.PV = append([]string(nil), fields[i+1:]...)
			}
			return
		}
	}
}

// parseBestMove reports whether line terminates a query and, if so, the
// move it names. "bestmove (none)" on terminal positions yields an empty
// move.
func parseBestMove(line string) (string, bool) {
	if !strings.HasPrefix(line, "bestmove") {
		return "", false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" {
		return "", true
	}
	return fields[1], true
}
