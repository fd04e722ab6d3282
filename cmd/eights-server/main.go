package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dqtoy/crazy-eights/internal/cache"
	"github.com/dqtoy/crazy-eights/internal/config"
	"github.com/dqtoy/crazy-eights/internal/database"
	"github.com/dqtoy/crazy-eights/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "simulate" {
		os.Exit(runSimulate(os.Args[2:], os.Stdout))
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := cfg.Logger()
	if cfg.LogLevel < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	var opts []server.Option
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connect")
		}
		defer rdb.Close()
		opts = append(opts, server.WithHistory(cache.NewHistorian(rdb, cfg.SnapshotTTL)))
	} else {
		log.Warn("REDIS_URL not set; action history and session resume disabled")
	}
	if cfg.DatabaseURL != "" {
		store, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("postgres connect")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("postgres migrate")
		}
		opts = append(opts, server.WithArchive(store))
	} else {
		log.Warn("DATABASE_URL not set; game results are not archived")
	}
	cancel()

	srv := server.New(cfg, log, opts...)
	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	// Flushes pending snapshots and results before the stores close.
	srv.Shutdown()
	log.Info("stopped")
}
