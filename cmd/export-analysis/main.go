package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/kejdas/local-chess-analyzer/internal/store"
)

// bundleLine is one game's analysis in the export stream.
type bundleLine struct {
	GameID   int64           `json:"game_id"`
	Analysis json.RawMessage `json:"analysis"`
}

func main() {
	var (
		dataDir    = flag.String("data", "./data", "data directory")
		outputPath = flag.String("output", "analysis.ndjson.zst", "output bundle file")
	)
	flag.Parse()

	arts, err := store.NewArtifacts(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open artifact store: %v\n", err)
		os.Exit(1)
	}
	ids, err := arts.IDs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list artifacts: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exporting %d analyses from %s\n", len(ids), *dataDir)

	outFile, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	zw, err := zstd.NewWriter(outFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create zstd writer: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(zw)

	exported := 0
	for _, id := range ids {
		raw, err := arts.Raw(id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read analysis %d: %v\n", id, err)
			continue
		}
		if err := enc.Encode(bundleLine{GameID: id, Analysis: raw}); err != nil {
			fmt.Fprintf(os.Stderr, "write analysis %d: %v\n", id, err)
			os.Exit(1)
		}
		exported++
	}
	if err := zw.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "finish bundle: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d analyses to %s\n", exported, *outputPath)
}
