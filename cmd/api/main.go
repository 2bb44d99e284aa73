package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"babyprep/backend/internal/config"
	"babyprep/backend/internal/db"
	"babyprep/backend/internal/logger"
	"babyprep/backend/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBTimezone)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.WithError(err).Fatal("database ping failed")
	}
	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.WithError(err).Fatal("apply schema failed")
		}
		log.Info("schema applied")
	}
	if err := server.ValidateRuntimeSchema(ctx, pool); err != nil {
		log.WithError(err).Fatal("database schema mismatch")
	}

	app := server.New(cfg, pool, server.WithLogger(log))
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.AppPort).WithField("env", cfg.AppEnv).Info("babyprep api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
