package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hideseek/internal/config"
	"hideseek/internal/httpapi"
	"hideseek/internal/logging"
	"hideseek/internal/server"
	"hideseek/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "game listener address, e.g. :5555")
	flag.StringVar(&cfg.AdminAddr, "admin", cfg.AdminAddr, "admin/WebSocket HTTP address")
	flag.IntVar(&cfg.NumPlayers, "players", cfg.NumPlayers, "party size; first connection is the seeker")
	flag.Parse()

	logger := logging.New(cfg.LogFile, cfg.Debug)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := session.New(cfg.NumPlayers)
	srv := server.New(cfg, sess, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Fatalw("startup failed", "err", err)
	}

	admin := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: httpapi.SetupRoutes(srv, sess, logger),
	}
	go func() {
		logger.Infow("admin surface up", "addr", cfg.AdminAddr)
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("admin server stopped", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infow("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	_ = admin.Shutdown(shutdownCtx)
}
