package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/corkboard/backend/internal/bridge"
	"github.com/corkboard/backend/internal/config"
	"github.com/corkboard/backend/internal/database"
	"github.com/corkboard/backend/internal/db"
	"github.com/corkboard/backend/internal/logging"
	"github.com/corkboard/backend/internal/realtime"
	"github.com/corkboard/backend/internal/router"
	"github.com/corkboard/backend/internal/services"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize queries and services
	queries := db.New(sqlDB)
	authService := services.NewAuthService(queries, cfg.JWTSecret, cfg.TokenDuration)
	accessService := services.NewAccessService(queries)

	// Realtime core and cross-process bridge
	hub := realtime.NewHub(authService, accessService, cfg.SendQueueSize, cfg.InactivityTimeout)
	br := bridge.Connect(cfg.NATSURL, hub)
	hub.SetPublisher(br)
	if err := br.Start(); err != nil {
		slog.Error("failed to subscribe to broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer br.Close()

	// Create router
	r := router.New(cfg, sqlDB, queries, authService, accessService, hub, br)

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
