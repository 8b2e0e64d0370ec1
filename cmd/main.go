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

	"github.com/floppyflax/beer-pong-league-sub000/config"
	"github.com/floppyflax/beer-pong-league-sub000/db"
	"github.com/floppyflax/beer-pong-league-sub000/handlers"
	"github.com/floppyflax/beer-pong-league-sub000/live"
	"github.com/floppyflax/beer-pong-league-sub000/repositories"
	"github.com/floppyflax/beer-pong-league-sub000/routes"
	"github.com/floppyflax/beer-pong-league-sub000/services"
	"github.com/floppyflax/beer-pong-league-sub000/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
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
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	uploader, err := storage.NewR2Uploader(storage.R2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("R2 uploader initialized")

	hub := live.NewHub()
	go hub.Run()
	logger.Info("WebSocket hub started")

	txManager := repositories.NewTxManager(dbConn)

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	anonRepo := repositories.NewPostgresAnonymousUserRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	memberRepo := repositories.NewPostgresTournamentMemberRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	historyRepo := repositories.NewPostgresRatingHistoryRepository(dbConn)
	receiptRepo := repositories.NewPostgresMergeReceiptRepository(dbConn)
	logger.Info("repositories initialized")

	mergeService := services.NewMergeService(
		userRepo,
		anonRepo,
		playerRepo,
		memberRepo,
		matchRepo,
		historyRepo,
		leagueRepo,
		tournamentRepo,
		receiptRepo,
		logger,
	)
	authService := services.NewAuthService(userRepo, anonRepo, mergeService)
	leagueService := services.NewLeagueService(leagueRepo, playerRepo, tournamentRepo, matchRepo, anonRepo, uploader)
	tournamentService := services.NewTournamentService(tournamentRepo, memberRepo, leagueRepo, matchRepo)
	matchService := services.NewMatchService(
		txManager,
		leagueRepo,
		tournamentRepo,
		memberRepo,
		playerRepo,
		matchRepo,
		historyRepo,
		hub,
		logger,
	)
	rankingService := services.NewRankingService(leagueRepo, tournamentRepo, memberRepo, playerRepo, matchRepo)
	dashboardService := services.NewDashboardService(userRepo, anonRepo, leagueRepo, tournamentRepo, matchRepo, receiptRepo)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService, mergeService, cfg.JWTSecretKey)
	leagueHandler := handlers.NewLeagueHandler(leagueService, rankingService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, rankingService)
	matchHandler := handlers.NewMatchHandler(matchService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(hub)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	routes.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		leagueHandler,
		tournamentHandler,
		matchHandler,
		dashboardHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
