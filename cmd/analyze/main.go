package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kejdas/local-chess-analyzer/internal/analysis"
	"github.com/kejdas/local-chess-analyzer/internal/engine"
	"github.com/kejdas/local-chess-analyzer/internal/logx"
)

func main() {
	var (
		pgnPath   = flag.String("pgn", "", "PGN file to analyze (required)")
		outPath   = flag.String("o", "", "output JSON file (default stdout)")
		stockfish = flag.String("stockfish", "stockfish", "path to UCI engine")
		depth     = flag.Int("depth", 20, "search depth per position")
		moveTime  = flag.Int("movetime", 1000, "search time per position in ms")
		threads   = flag.Int("threads", 4, "engine threads")
		hashMB    = flag.Int("hash", 512, "engine hash table MB")
		logLevel  = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger := logx.New(*logLevel)
	if *pgnPath == "" {
		logger.Fatal().Msg("-pgn is required")
	}
	pgnText, err := os.ReadFile(*pgnPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read pgn")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer := analysis.NewAnalyzer(engine.Config{
		Path:       *stockfish,
		Threads:    *threads,
		HashMB:     *hashMB,
		Depth:      *depth,
		MoveTimeMS: *moveTime,
	}, logger)

	ga, err := analyzer.AnalyzeGame(ctx, string(pgnText))
	if err != nil {
		logger.Fatal().Err(err).Msg("analysis failed")
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("create output file")
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ga); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}
}
