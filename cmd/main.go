package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/gauntlet-system/brackets"
	"github.com/Dosada05/gauntlet-system/config"
	"github.com/Dosada05/gauntlet-system/db"
	"github.com/Dosada05/gauntlet-system/gauntlet"
	"github.com/Dosada05/gauntlet-system/handlers"
	"github.com/Dosada05/gauntlet-system/repositories"
	"github.com/Dosada05/gauntlet-system/routes"
	"github.com/Dosada05/gauntlet-system/services"
	"github.com/Dosada05/gauntlet-system/storage"
)

const (
	schedulerInterval = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Logo storage is optional: without R2 settings the service runs and
	// logo uploads report a validation error.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, logo uploads disabled")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()

	gauntletClient := gauntlet.NewClient(gauntlet.ClientConfig{
		BaseURL: cfg.GameAPIURL,
		Token:   cfg.GameAPIToken,
		Logger:  logger,
	})

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	divisionRepo := repositories.NewPostgresDivisionRepository(dbConn)
	phaseRepo := repositories.NewPostgresPhaseRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchResultRepo := repositories.NewPostgresMatchResultRepository(dbConn)
	auditRepo := repositories.NewPostgresAuditLogRepository(dbConn)

	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, logger)
	tournamentService := services.NewTournamentService(
		dbConn, tournamentRepo, divisionRepo, phaseRepo, participantRepo,
		bracketRepo, auditRepo, uploader, wsHub, logger,
	)
	phaseService := services.NewPhaseService(dbConn, phaseRepo, auditRepo, wsHub, logger)
	participantService := services.NewParticipantService(
		dbConn, tournamentRepo, participantRepo, matchResultRepo, auditRepo, wsHub, logger,
	)
	bracketService := services.NewBracketService(
		dbConn, tournamentRepo, participantRepo, bracketRepo, auditRepo,
		brackets.NewSingleEliminationGenerator(), wsHub, logger,
	)
	leaderboardService := services.NewLeaderboardService(
		dbConn, tournamentRepo, participantRepo, matchResultRepo, logger,
	)
	analyticsService := services.NewAnalyticsService(gauntletClient, logger)
	logger.Info("services initialized")

	// Scheduler advances tournament statuses whose scheduled boundary passed.
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()

		if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}
		for range ticker.C {
			if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()
	logger.Info("status scheduler started", slog.Duration("interval", schedulerInterval))

	router := routes.InitRoutes(routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Phase:       handlers.NewPhaseHandler(phaseService),
		Participant: handlers.NewParticipantHandler(participantService),
		Bracket:     handlers.NewBracketHandler(bracketService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		Analytics:   handlers.NewAnalyticsHandler(analyticsService),
		Proxy:       handlers.NewProxyHandler(gauntletClient),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, logger),
	}, authService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced close failed", slog.Any("error", err))
			}
		}
	}
	logger.Info("server stopped")
}
