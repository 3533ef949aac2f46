package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kejdas/local-chess-analyzer/internal/bulk"
	"github.com/kejdas/local-chess-analyzer/internal/chesscom"
	"github.com/kejdas/local-chess-analyzer/internal/store"
	"github.com/kejdas/local-chess-analyzer/internal/sysres"
)

func gameID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.GameFilter{
		Status: store.AnalysisStatus(q.Get("status")),
		Player: q.Get("player"),
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	games, err := h.db.ListGames(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if games == nil {
		games = []store.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handler) gameStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.db.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	game, err := h.db.GetGame(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	data, err := h.arts.Raw(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (h *Handler) analyzeGame(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	orch, err := h.orchestrator()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rep, err := orch.Run(r.Context(), []int64{id}, 1, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res := rep.Results[0]
	switch res.Status {
	case bulk.StatusNotFound:
		writeError(w, http.StatusNotFound, "game not found")
	case bulk.StatusFailed:
		writeJSON(w, http.StatusInternalServerError, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type bulkRequest struct {
	GameIDs     []int64 `json:"game_ids"`
	Concurrency int     `json:"concurrency"`
	// SkipAnalyzed defaults to true; send false to force re-analysis,
	// e.g. after changing the engine settings.
	SkipAnalyzed *bool `json:"skip_analyzed"`
}

func (h *Handler) analyzeBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.GameIDs) == 0 {
		writeError(w, http.StatusBadRequest, "game_ids is required")
		return
	}
	skipAnalyzed := req.SkipAnalyzed == nil || *req.SkipAnalyzed
	orch, err := h.orchestrator()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rep, err := orch.Run(r.Context(), req.GameIDs, req.Concurrency, skipAnalyzed)
	if err != nil {
		writeJSON(w, http.StatusOK, rep) // partial results on cancellation
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.Settings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req) == 0 {
		writeError(w, http.StatusBadRequest, "no settings given")
		return
	}
	if problems, err := h.validateEngineSettings(req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	} else if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": problems})
		return
	}
	if err := h.db.PutSettings(req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings, err := h.db.Settings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// validateEngineSettings checks the engine tunables that would result
// from applying the update. Non-engine keys pass through untouched.
func (h *Handler) validateEngineSettings(update map[string]string) ([]string, error) {
	engineKeys := map[string]bool{
		store.SettingEnginePath: true,
		store.SettingThreads:    true,
		store.SettingHashMB:     true,
		store.SettingDepth:      true,
		store.SettingMoveTimeMS: true,
	}
	touched := false
	for k := range update {
		if engineKeys[k] {
			touched = true
			break
		}
	}
	if !touched {
		return nil, nil
	}
	current, err := h.db.Settings()
	if err != nil {
		return nil, err
	}
	for k, v := range update {
		current[k] = v
	}
	s := sysres.EngineSettings{
		Path:       current[store.SettingEnginePath],
		Threads:    atoi(current[store.SettingThreads]),
		HashMB:     atoi(current[store.SettingHashMB]),
		Depth:      atoi(current[store.SettingDepth]),
		MoveTimeMS: atoi(current[store.SettingMoveTimeMS]),
	}
	return sysres.Validate(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

type syncRequest struct {
	Username string `json:"username"`
}

func (h *Handler) startSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Username == "" {
		stored, err := h.db.Setting(store.SettingChessComUser)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		req.Username = stored
	}
	// The sync job outlives this request, so it must not inherit the
	// request's context.
	jobID, err := h.syncer.Start(context.Background(), req.Username)
	switch {
	case errors.Is(err, chesscom.ErrNoUsername):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chesscom.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
	}
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.syncer.Status())
}

func (h *Handler) systemResources(w http.ResponseWriter, r *http.Request) {
	res, err := sysres.Probe()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) initializeDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Initialize(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	fixed, err := h.db.Reconcile(h.arts.Exists)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"initialized": true, "reconciled": fixed})
}

func (h *Handler) clearDatabase(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.db.ClearGames()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
