package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/kejdas/local-chess-analyzer/internal/analysis"
	"github.com/kejdas/local-chess-analyzer/internal/store"
)

type bundleLine struct {
	GameID   int64           `json:"game_id"`
	Analysis json.RawMessage `json:"analysis"`
}

func main() {
	var (
		dataDir   = flag.String("data", "./data", "data directory")
		inputPath = flag.String("input", "analysis.ndjson.zst", "bundle file to import")
		overwrite = flag.Bool("overwrite", false, "replace analyses that already exist")
	)
	flag.Parse()

	arts, err := store.NewArtifacts(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open artifact store: %v\n", err)
		os.Exit(1)
	}

	inFile, err := os.Open(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open bundle: %v\n", err)
		os.Exit(1)
	}
	defer inFile.Close()

	zr, err := zstd.NewReader(inFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open zstd reader: %v\n", err)
		os.Exit(1)
	}
	defer zr.Close()

	var imported, skipped, failed int
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)
	for scanner.Scan() {
		var line bundleLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			fmt.Fprintf(os.Stderr, "bad bundle line: %v\n", err)
			failed++
			continue
		}
		if !*overwrite && arts.Exists(line.GameID) {
			skipped++
			continue
		}
		var ga analysis.GameAnalysis
		if err := json.Unmarshal(line.Analysis, &ga); err != nil {
			fmt.Fprintf(os.Stderr, "bad analysis for game %d: %v\n", line.GameID, err)
			failed++
			continue
		}
		if err := arts.Save(line.GameID, &ga); err != nil {
			fmt.Fprintf(os.Stderr, "save analysis %d: %v\n", line.GameID, err)
			failed++
			continue
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read bundle: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d analyses (%d skipped, %d failed)\n", imported, skipped, failed)
}
