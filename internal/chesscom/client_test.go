package chesscom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kejdas/local-chess-analyzer/internal/store"
)

const samplePGN = `[Event "Live Chess"]
[Site "Chess.com"]
[Date "2024.01.15"]
[White "alice"]
[Black "bob"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0`

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/player/alice/games/archives", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"archives":["%s/player/alice/games/2024/01","%s/player/alice/games/2024/02"]}`,
			srv.URL, srv.URL)
	})
	mux.HandleFunc("/player/alice/games/2024/01", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"games":[{"url":"https://www.chess.com/game/live/101","pgn":%q,"time_control":"600","white":{"username":"alice","result":"win"},"black":{"username":"bob","result":"checkmated"}}]}`, samplePGN)
	})
	mux.HandleFunc("/player/alice/games/2024/02", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"games":[{"url":"https://www.chess.com/game/live/102","pgn":%q},{"url":"https://www.chess.com/game/live/103","pgn":"not a pgn at all"}]}`, samplePGN)
	})

	c := NewClient(zerolog.Nop())
	c.baseURL = srv.URL
	return srv, c
}

func TestArchives(t *testing.T) {
	_, c := newTestServer(t)
	archives, err := c.Archives(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(archives) != 2 {
		t.Fatalf("got %d archives, want 2", len(archives))
	}
}

func TestArchivesUserNotFound(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Archives(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestAllGames(t *testing.T) {
	_, c := newTestServer(t)
	var progress []int
	games, err := c.AllGames(context.Background(), "alice", 0, func(n int) {
		progress = append(progress, n)
	})
	if err != nil {
		t.Fatalf("AllGames: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("got %d games, want 3", len(games))
	}
	if len(progress) != 2 || progress[1] != 3 {
		t.Errorf("progress = %v, want [1 3]", progress)
	}
}

func TestAllGamesLastMonths(t *testing.T) {
	_, c := newTestServer(t)
	games, err := c.AllGames(context.Background(), "alice", 1, nil)
	if err != nil {
		t.Fatalf("AllGames: %v", err)
	}
	// Only the newest archive, which holds two games.
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
}

func TestToGame(t *testing.T) {
	g := ArchiveGame{
		URL: "https://www.chess.com/game/live/101",
		PGN: samplePGN,
		White: Player{Username: "fallback-white"},
	}
	row, err := g.ToGame()
	if err != nil {
		t.Fatalf("ToGame: %v", err)
	}
	if row.ChessComID != "101" {
		t.Errorf("ChessComID = %q, want 101", row.ChessComID)
	}
	if row.WhitePlayer != "alice" || row.BlackPlayer != "bob" {
		t.Errorf("players = %q/%q, want alice/bob", row.WhitePlayer, row.BlackPlayer)
	}
	if row.Result != "1-0" {
		t.Errorf("result = %q, want 1-0", row.Result)
	}
	if row.GameDate != "2024.01.15" {
		t.Errorf("date = %q, want 2024.01.15", row.GameDate)
	}
}

func TestToGameRejectsBadPGN(t *testing.T) {
	tests := []ArchiveGame{
		{URL: "https://www.chess.com/game/live/1", PGN: ""},
		{URL: "https://www.chess.com/game/live/2", PGN: "1. e9 e5 *"},
	}
	for _, g := range tests {
		if _, err := g.ToGame(); err == nil {
			t.Errorf("ToGame(%q) succeeded, want error", g.PGN)
		}
	}
}

type recordingImporter struct {
	mu     sync.Mutex
	rows   []store.Game
	err    error
	insert int
}

func (r *recordingImporter) InsertGames(games []store.Game) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.rows = append(r.rows, games...)
	if r.insert > 0 {
		return r.insert, nil
	}
	return len(games), nil
}

func waitForSync(t *testing.T, s *Syncer) SyncState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := s.Status()
		if !st.Running {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sync did not finish")
	return SyncState{}
}

func TestSyncerImportsGames(t *testing.T) {
	_, c := newTestServer(t)
	imp := &recordingImporter{}
	s := NewSyncer(c, imp, zerolog.Nop())

	jobID, err := s.Start(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if jobID == "" {
		t.Fatal("empty job id")
	}
	st := waitForSync(t, s)
	if st.Error != "" {
		t.Fatalf("sync error: %s", st.Error)
	}
	// Two parseable games out of three fetched.
	if len(imp.rows) != 2 {
		t.Fatalf("imported %d rows, want 2", len(imp.rows))
	}
	if st.Imported != 2 || st.Fetched != 3 {
		t.Errorf("state = %+v, want imported 2 fetched 3", st)
	}
	if st.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
}

func TestSyncerSingleFlight(t *testing.T) {
	_, c := newTestServer(t)
	s := NewSyncer(c, &recordingImporter{}, zerolog.Nop())

	if _, err := s.Start(context.Background(), "alice"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := s.Start(context.Background(), "alice")
	if err != nil && !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("second Start err = %v, want ErrSyncInProgress or nil after finish", err)
	}
	waitForSync(t, s)
}

func TestSyncerEmptyUsername(t *testing.T) {
	_, c := newTestServer(t)
	s := NewSyncer(c, &recordingImporter{}, zerolog.Nop())
	if _, err := s.Start(context.Background(), ""); !errors.Is(err, ErrNoUsername) {
		t.Fatalf("err = %v, want ErrNoUsername", err)
	}
}

func TestSyncerReportsFailure(t *testing.T) {
	_, c := newTestServer(t)
	s := NewSyncer(c, &recordingImporter{}, zerolog.Nop())
	if _, err := s.Start(context.Background(), "nobody"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	st := waitForSync(t, s)
	if st.Error == "" {
		t.Fatal("expected sync error for unknown user")
	}
}
