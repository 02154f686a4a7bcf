package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fitcircle/scoring-api/internal/config"
	"github.com/fitcircle/scoring-api/internal/domain/admin"
	"github.com/fitcircle/scoring-api/internal/domain/circle"
	"github.com/fitcircle/scoring-api/internal/domain/event"
	"github.com/fitcircle/scoring-api/internal/domain/leaderboard"
	"github.com/fitcircle/scoring-api/internal/domain/ledger"
	"github.com/fitcircle/scoring-api/internal/domain/rules"
	"github.com/fitcircle/scoring-api/internal/domain/score"
	"github.com/fitcircle/scoring-api/internal/domain/task"
	"github.com/fitcircle/scoring-api/internal/domain/user"
	"github.com/fitcircle/scoring-api/internal/middleware"
	"github.com/fitcircle/scoring-api/internal/pkg/database"
	"github.com/fitcircle/scoring-api/internal/pkg/jwt"
	"github.com/fitcircle/scoring-api/internal/pkg/period"
	pkgresponse "github.com/fitcircle/scoring-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting FitCircle scoring API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	// Redis is optional; the live leaderboard degrades to ledger scans
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, live leaderboard will use ledger scans")
		redisClient = nil
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	periods, err := period.NewCalculator(cfg.BusinessTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.BusinessTimezone).Msg("Invalid business timezone")
	}

	rulesTable, err := rules.Load(cfg.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("Failed to load scoring rules")
	}

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	eventRepo := event.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	taskRepo := task.NewRepository(db)
	scoreRepo := score.NewRepository(db)
	leaderboardRepo := leaderboard.NewRepository(db)
	circleRepo := circle.NewRepository(db)

	// ---------- Services ----------
	liveBoard := leaderboard.NewLive(redisClient, periods)
	ledgerService := ledger.NewService(ledgerRepo)
	taskService := task.NewService(db, taskRepo, ledgerService, periods)
	eventService := event.NewService(eventRepo, ledgerService, taskService, userRepo, liveBoard, rulesTable, periods, cfg.ExcludedRoles)
	scoreService := score.NewService(scoreRepo, ledgerService, periods, cfg.CloseBatchSize)
	circleService := circle.NewService(circleRepo)
	leaderboardService := leaderboard.NewService(leaderboardRepo, liveBoard, periods)

	// ---------- Handlers ----------
	eventHandler := event.NewHandler(eventService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	scoreHandler := score.NewHandler(scoreService)
	taskHandler := task.NewHandler(taskService)
	leaderboardHandler := leaderboard.NewHandler(leaderboardService, periods)
	adminHandler := admin.NewHandler(scoreService, ledgerService, circleService, periods)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/events", eventHandler.Routes(authMiddleware))
		r.Mount("/tasks", taskHandler.Routes(authMiddleware))
		r.Mount("/leaderboard", leaderboardHandler.Routes(authMiddleware))

		r.Route("/users/{id}", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/score", scoreHandler.UserScore)
			r.Get("/ledger", ledgerHandler.History)
		})

		r.Mount("/admin", adminHandler.Routes(authMiddleware, middleware.RequireAdmin()))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
