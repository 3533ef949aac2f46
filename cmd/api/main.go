package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kejdas/local-chess-analyzer/internal/bootstrap"
	"github.com/kejdas/local-chess-analyzer/internal/chesscom"
	"github.com/kejdas/local-chess-analyzer/internal/httpapi"
	"github.com/kejdas/local-chess-analyzer/internal/logx"
	"github.com/kejdas/local-chess-analyzer/internal/store"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "data directory (database, analysis artifacts, config)")
		addr     = flag.String("addr", "", "listen address (overrides config)")
		logLevel = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	cfg, err := bootstrap.Load(*dataDir)
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := logx.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create data dir")
	}
	db, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	arts, err := store.NewArtifacts(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("open artifact store")
	}
	logger.Info().Str("db", cfg.DatabasePath).Msg("store opened")

	// Repair any status drift from a previous crash before serving.
	if _, err := db.Reconcile(arts.Exists); err != nil {
		logger.Warn().Err(err).Msg("status reconcile failed")
	}

	syncer := chesscom.NewSyncer(chesscom.NewClient(logger), db, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      httpapi.NewRouter(logger, db, arts, syncer),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // bulk analysis responds synchronously
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("api server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown error")
	}
	logger.Info().Msg("shutdown complete")
}
