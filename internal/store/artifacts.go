package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kejdas/local-chess-analyzer/internal/analysis"
)

// Artifacts stores one JSON file per analyzed game under
// <dir>/analysis/<id>.json. Files are written atomically so a partial
// write never looks like a completed analysis.
type Artifacts struct {
	dir string
}

// NewArtifacts creates the analysis directory under dataDir if needed.
func NewArtifacts(dataDir string) (*Artifacts, error) {
	dir := filepath.Join(dataDir, "analysis")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Artifacts{dir: dir}, nil
}

func (a *Artifacts) path(id int64) string {
	return filepath.Join(a.dir, fmt.Sprintf("%d.json", id))
}

// Exists reports whether game id has a stored analysis.
func (a *Artifacts) Exists(id int64) bool {
	_, err := os.Stat(a.path(id))
	return err == nil
}

// Save writes the analysis for game id via a temp file and rename.
func (a *Artifacts) Save(id int64, ga *analysis.GameAnalysis) error {
	data, err := json.MarshalIndent(ga, "", "  ")
	if err != nil {
		return fmt.Errorf("encode analysis %d: %w", id, err)
	}
	tmp, err := os.CreateTemp(a.dir, fmt.Sprintf(".%d-*.tmp", id))
	if err != nil {
		return fmt.Errorf("write analysis %d: %w", id, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return fmt.Errorf("write analysis %d: %w", id, werr)
		}
		return fmt.Errorf("write analysis %d: %w", id, cerr)
	}
	if err := os.Rename(tmp.Name(), a.path(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store analysis %d: %w", id, err)
	}
	return nil
}

// Load reads and decodes the analysis for game id.
func (a *Artifacts) Load(id int64) (*analysis.GameAnalysis, error) {
	data, err := a.Raw(id)
	if err != nil {
		return nil, err
	}
	var ga analysis.GameAnalysis
	if err := json.Unmarshal(data, &ga); err != nil {
		return nil, fmt.Errorf("decode analysis %d: %w", id, err)
	}
	return &ga, nil
}

// Raw returns the stored JSON bytes for game id.
func (a *Artifacts) Raw(id int64) ([]byte, error) {
	data, err := os.ReadFile(a.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read analysis %d: %w", id, err)
	}
	return data, nil
}

// Delete removes the stored analysis for game id, if any.
func (a *Artifacts) Delete(id int64) error {
	err := os.Remove(a.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete analysis %d: %w", id, err)
	}
	return nil
}

// IDs lists the game ids that have stored analyses, ascending.
func (a *Artifacts) IDs() ([]int64, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("scan artifact dir: %w", err)
	}
	var ids []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
