package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftvault/driftvault/internal/router"
	"github.com/driftvault/driftvault/internal/setup"
	"github.com/driftvault/driftvault/shared/config"
	"github.com/driftvault/driftvault/shared/logger"
)

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.Log.Level, cfg.Public.Log.JSON)

	deps, err := setup.SetupDependencies(cfg)
	if err != nil {
		logger.Log.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Storage.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps.GC.StartBackgroundCleanup(ctx, cfg.Public.GC.Interval)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Public.Server.Port),
		Handler:      router.New(deps),
		ReadTimeout:  cfg.Public.Server.ReadTimeout,
		WriteTimeout: cfg.Public.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server started", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownTimeout := cfg.Public.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", "error", err)
		srv.Close()
	}
	logger.Log.Info("server stopped")
}
