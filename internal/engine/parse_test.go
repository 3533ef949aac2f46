package engine

import (
	"reflect"
	"testing"
)

func TestParseInfo(t *testing.T) {
	tests := []struct {
		line     string
		wantCP   *int
		wantMate *int
		wantPV   []string
	}{
		{
			line:   "info depth 20 seldepth 28 multipv 1 score cp 35 nodes 1431270 nps 1222000 pv e2e4 e7e5 g1f3",
			wantCP: intp(35),
			wantPV: []string{"e2e4", "e7e5", "g1f3"},
		},
		{
			line:     "info depth 31 score mate -4 nodes 9000 pv d8h4",
			wantMate: intp(-4),
			wantPV:   []string{"d8h4"},
		},
		{
			line:   "info depth 12 score cp -120 lowerbound nodes 5000",
			wantCP: intp(-120),
		},
		{line: "info string NNUE evaluation using nn-1337.nnue enabled"},
		{line: "info depth 1 currmove e2e4 currmovenumber 1"},
		{line: "readyok"},
		{line: ""},
		{line: "info score cp notanumber pv e2e4"},
	}
	for _, tt := range tests {
		var res Result
		parseInfo(tt.line, &res)
		if !intpEq(res.CP, tt.wantCP) {
			t.Errorf("parseInfo(%q) cp = %v, want %v", tt.line, res.CP, tt.wantCP)
		}
		if !intpEq(res.Mate, tt.wantMate) {
			t.Errorf("parseInfo(%q) mate = %v, want %v", tt.line, res.Mate, tt.wantMate)
		}
		if !reflect.DeepEqual(res.PV, tt.wantPV) {
			t.Errorf("parseInfo(%q) pv = %v, want %v", tt.line, res.PV, tt.wantPV)
		}
	}
}

func TestParseInfoKeepsLastScore(t *testing.T) {
	var res Result
	parseInfo("info depth 10 score cp 40 pv e2e4", &res)
	parseInfo("info depth 12 score cp 55 pv d2d4 d7d5", &res)
	if res.CP == nil || *res.CP != 55 {
		t.Fatalf("cp = %v, want 55", res.CP)
	}
	if len(res.PV) != 2 || res.PV[0] != "d2d4" {
		t.Fatalf("pv = %v, want [d2d4 d7d5]", res.PV)
	}

	// a mate line after a cp line keeps both, last-seen each
	parseInfo("info depth 14 score mate 3 pv d2d4", &res)
	if res.Mate == nil || *res.Mate != 3 {
		t.Fatalf("mate = %v, want 3", res.Mate)
	}
	if res.CP == nil || *res.CP != 55 {
		t.Fatalf("cp = %v, want 55 after mate line", res.CP)
	}
}

func TestParseBestMove(t *testing.T) {
	tests := []struct {
		line     string
		wantMove string
		wantDone bool
	}{
		{"bestmove e2e4 ponder e7e5", "e2e4", true},
		{"bestmove d7d8q", "d7d8q", true},
		{"bestmove (none)", "", true},
		{"bestmove", "", true},
		{"info depth 1 pv e2e4", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		move, done := parseBestMove(tt.line)
		if move != tt.wantMove || done != tt.wantDone {
			t.Errorf("parseBestMove(%q) = (%q, %v), want (%q, %v)",
				tt.line, move, done, tt.wantMove, tt.wantDone)
		}
	}
}

func intp(v int) *int { return &v }

func intpEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
