package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmallory/narrative-engine/internal/autosave"
	"github.com/jmallory/narrative-engine/internal/config"
	"github.com/jmallory/narrative-engine/internal/content"
	"github.com/jmallory/narrative-engine/internal/handlers"
	"github.com/jmallory/narrative-engine/internal/logger"
	"github.com/jmallory/narrative-engine/internal/middleware"
	"github.com/jmallory/narrative-engine/internal/storage"
	"github.com/jmallory/narrative-engine/pkg/engine"
	"github.com/jmallory/narrative-engine/pkg/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Narrative Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	scenes := content.NewStore(cfg.DataDir, cfg.SceneSources, log)
	if err := scenes.Reload(); err != nil {
		log.Error("Failed to load scene content", "error", err)
		os.Exit(1)
	}

	saves, err := storage.NewRedisStore(cfg.RedisURL, cfg.SaveKeyPrefix, log)
	if err != nil {
		log.Error("Failed to configure save storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := saves.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to save storage", "error", err)
		os.Exit(1)
	}

	store := state.NewStore()
	eng := engine.New(scenes, store, log)

	saver := autosave.New(saves, cfg.AutosaveDelay, log)
	if settings, err := saves.Settings(storageCtx); err == nil {
		saver.SetEnabled(settings.AutosaveEnabled)
	} else {
		log.Warn("Failed to load settings, autosave stays enabled", "error", err)
	}

	// Resume from the auto-save when one exists, so a restarted server
	// picks up where the player left off.
	if auto, err := saves.LoadAutoSave(storageCtx); err != nil {
		log.Warn("Failed to read auto-save", "error", err)
	} else if auto != nil {
		store.Restore(auto.GameState)
		log.Info("Resumed from auto-save", "scene", auto.GameState.CurrentScene)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(saves, log)
	mux.Handle("/health", healthHandler)

	gameHandler := handlers.NewGameHandler(eng, saver, log)
	mux.Handle("/v1/game", gameHandler)
	mux.Handle("/v1/game/", gameHandler)

	savesHandler := handlers.NewSavesHandler(saves, store, log)
	mux.Handle("/v1/saves", savesHandler)
	mux.Handle("/v1/saves/", savesHandler)

	settingsHandler := handlers.NewSettingsHandler(saves, saver, log)
	mux.Handle("/v1/settings", settingsHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Push out any debounced auto-save before closing the backend.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := saver.Flush(flushCtx); err != nil {
		log.Error("Failed to flush auto-save", "error", err)
	}
	flushCancel()
	saver.Stop()

	if err := saves.Close(); err != nil {
		log.Error("Error closing save storage", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
