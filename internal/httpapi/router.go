// Package httpapi exposes the game library, analysis pipeline and
// settings over a local REST API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kejdas/local-chess-analyzer/internal/analysis"
	"github.com/kejdas/local-chess-analyzer/internal/bulk"
	"github.com/kejdas/local-chess-analyzer/internal/chesscom"
	"github.com/kejdas/local-chess-analyzer/internal/store"
)

// Handler carries the API's dependencies.
type Handler struct {
	db     *store.DB
	arts   *store.Artifacts
	syncer *chesscom.Syncer
	log    zerolog.Logger
}

// NewRouter builds the API router.
func NewRouter(log zerolog.Logger, db *store.DB, arts *store.Artifacts, syncer *chesscom.Syncer) http.Handler {
	h := &Handler{db: db, arts: arts, syncer: syncer, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AccessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/games", h.listGames)
		r.Get("/games/stats", h.gameStats)
		r.Get("/games/{id}", h.getGame)
		r.Get("/games/{id}/analysis", h.getAnalysis)
		r.Post("/games/{id}/analyze", h.analyzeGame)
		r.Post("/analysis/bulk", h.analyzeBulk)
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)
		r.Post("/sync", h.startSync)
		r.Get("/sync/status", h.syncStatus)
		r.Get("/system-resources", h.systemResources)
		r.Post("/database/initialize", h.initializeDatabase)
		r.Delete("/database/clear", h.clearDatabase)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// orchestrator builds a bulk orchestrator against the current engine
// settings. Built per request so settings changes apply immediately.
func (h *Handler) orchestrator() (*bulk.Orchestrator, error) {
	cfg, err := h.db.EngineConfig()
	if err != nil {
		return nil, err
	}
	runner := analysis.NewAnalyzer(cfg, h.log)
	return bulk.NewOrchestrator(h.db.Handle(), h.arts, runner, h.log), nil
}
