package sysres

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testHost = hostLimits{
	logicalCores:  8,
	physicalCores: 4,
	totalMB:       16384,
	availableMB:   8000,
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name        string
		host        hostLimits
		wantThreads int
		wantHashMB  int
	}{
		{"typical", testHost, 6, 1200},
		{"tiny host", hostLimits{logicalCores: 1, availableMB: 256}, 1, 128},
		{"dual core", hostLimits{logicalCores: 2, availableMB: 1024}, 1, 153},
		{"huge host", hostLimits{logicalCores: 32, availableMB: 64000}, 30, 2048},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resourcesFrom(tt.host)
			if r.RecommendedThreads != tt.wantThreads {
				t.Errorf("threads = %d, want %d", r.RecommendedThreads, tt.wantThreads)
			}
			if r.RecommendedHashMB != tt.wantHashMB {
				t.Errorf("hash = %d, want %d", r.RecommendedHashMB, tt.wantHashMB)
			}
		})
	}
}

func fakeEngine(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockfish")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func validSettings(path string) EngineSettings {
	return EngineSettings{Path: path, Threads: 4, HashMB: 512, Depth: 20, MoveTimeMS: 1000}
}

func TestValidateAgainst(t *testing.T) {
	engine := fakeEngine(t)

	if problems := validateAgainst(validSettings(engine), testHost); len(problems) != 0 {
		t.Fatalf("valid settings rejected: %v", problems)
	}

	tests := []struct {
		name   string
		mutate func(*EngineSettings)
		want   string
	}{
		{"too many threads", func(s *EngineSettings) { s.Threads = 9 }, "threads"},
		{"zero threads", func(s *EngineSettings) { s.Threads = 0 }, "threads"},
		{"hash too small", func(s *EngineSettings) { s.HashMB = 8 }, "hash"},
		{"hash too large", func(s *EngineSettings) { s.HashMB = 10000 }, "hash"},
		{"hash over available", func(s *EngineSettings) { s.HashMB = 8100 }, "available memory"},
		{"bad depth", func(s *EngineSettings) { s.Depth = 51 }, "depth"},
		{"movetime too short", func(s *EngineSettings) { s.MoveTimeMS = 50 }, "move time"},
		{"movetime too long", func(s *EngineSettings) { s.MoveTimeMS = 90000 }, "move time"},
		{"missing engine", func(s *EngineSettings) { s.Path = "/no/such/engine" }, "engine path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings(engine)
			tt.mutate(&s)
			problems := validateAgainst(s, testHost)
			if len(problems) != 1 {
				t.Fatalf("got %d problems (%v), want 1", len(problems), problems)
			}
			if !strings.Contains(problems[0], tt.want) {
				t.Errorf("problem %q does not mention %q", problems[0], tt.want)
			}
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	s := EngineSettings{Path: "", Threads: 0, HashMB: 1, Depth: 0, MoveTimeMS: 1}
	problems := validateAgainst(s, testHost)
	if len(problems) != 5 {
		t.Fatalf("got %d problems (%v), want 5", len(problems), problems)
	}
}

func TestValidateEnginePath(t *testing.T) {
	engine := fakeEngine(t)
	if err := ValidateEnginePath(engine); err != nil {
		t.Errorf("executable rejected: %v", err)
	}
	if err := ValidateEnginePath(""); err == nil {
		t.Error("empty path accepted")
	}
	if err := ValidateEnginePath(filepath.Dir(engine)); err == nil {
		t.Error("directory accepted")
	}
	plain := filepath.Join(t.TempDir(), "notexec")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateEnginePath(plain); err == nil {
		t.Error("non-executable file accepted")
	}
	if err := ValidateEnginePath("definitely-not-a-real-binary-name"); err == nil {
		t.Error("missing PATH lookup accepted")
	}
}
