package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const fakeEngineScript = `#!/bin/sh
while read -r line; do
  case "$line" in
    uci) echo "id name fakefish 1.0"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*)
      echo "unexpected chatter the client should ignore"
      echo "info depth 8 score cp 10 nodes 100 pv e2e4"
      echo "info depth 10 score cp 23 nodes 4200 pv e2e4 e7e5 g1f3 b8c6 f1c4 g8f6 d2d3"
      echo "bestmove e2e4 ponder e7e5"
      ;;
    quit) exit 0 ;;
  esac
done
`

const crashingEngineScript = `#!/bin/sh
while read -r line; do
  case "$line" in
    uci) echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) exit 1 ;;
    quit) exit 0 ;;
  esac
done
`

func writeFakeEngine(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakefish")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) Config {
	return Config{Path: path, Threads: 1, HashMB: 16, Depth: 10, MoveTimeMS: 100}
}

func TestStartMissingBinary(t *testing.T) {
	s := NewSession(testConfig(filepath.Join(t.TempDir(), "no-such-engine")), zerolog.Nop())
	err := s.Start(context.Background())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var se *StartError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StartError, got %T: %v", err, err)
	}
}

func TestStartNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fakefish")
	if err := os.WriteFile(path, []byte(fakeEngineScript), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSession(testConfig(path), zerolog.Nop())
	var se *StartError
	if err := s.Start(context.Background()); !errors.As(err, &se) {
		t.Fatalf("expected *StartError for non-executable binary, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	s := NewSession(testConfig(writeFakeEngine(t, fakeEngineScript)), zerolog.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	res, err := s.Query(context.Background(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 10, 100)
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMove != "e2e4" {
		t.Errorf("bestmove = %q, want e2e4", res.BestMove)
	}
	if res.CP == nil || *res.CP != 23 {
		t.Errorf("cp = %v, want 23 (last seen)", res.CP)
	}
	if res.Mate != nil {
		t.Errorf("mate = %v, want nil", res.Mate)
	}
	if len(res.PV) != 7 {
		t.Errorf("pv length = %d, want 7", len(res.PV))
	}
}

func TestStopIdempotent(t *testing.T) {
	s := NewSession(testConfig(writeFakeEngine(t, fakeEngineScript)), zerolog.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop() // no-op on a stopped session

	if _, err := s.Query(context.Background(), "8/8/8/8/8/8/8/k1K5 w - - 0 1", 10, 100); err == nil {
		t.Fatal("expected Query on a stopped session to fail")
	}
}

func TestQueryProcessExited(t *testing.T) {
	s := NewSession(testConfig(writeFakeEngine(t, crashingEngineScript)), zerolog.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	_, err := s.Query(context.Background(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 10, 100)
	if !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited, got %v", err)
	}
	if s.Err() == nil {
		t.Fatal("expected session to remember its terminal error")
	}

	// the dead session stays dead
	if _, err := s.Query(context.Background(), "8/8/8/8/8/8/8/k1K5 w - - 0 1", 10, 100); !errors.Is(err, ErrProcessExited) {
		t.Fatalf("expected ErrProcessExited on retry, got %v", err)
	}
}

func TestStopOnNeverStartedSession(t *testing.T) {
	s := NewSession(testConfig("stockfish"), zerolog.Nop())
	s.Stop() // must not panic
}
