package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/adspredia/adspredia-api/internal/config"
	"github.com/adspredia/adspredia-api/internal/domain/auth"
	"github.com/adspredia/adspredia-api/internal/domain/dashboard"
	"github.com/adspredia/adspredia-api/internal/domain/realtime"
	"github.com/adspredia/adspredia-api/internal/domain/state"
	"github.com/adspredia/adspredia-api/internal/domain/task"
	"github.com/adspredia/adspredia-api/internal/domain/wallet"
	"github.com/adspredia/adspredia-api/internal/middleware"
	"github.com/adspredia/adspredia-api/internal/pkg/clock"
	"github.com/adspredia/adspredia-api/internal/pkg/database"
	"github.com/adspredia/adspredia-api/internal/pkg/jwt"
	"github.com/adspredia/adspredia-api/internal/pkg/kvstore"
	"github.com/adspredia/adspredia-api/internal/pkg/logger"
	pkgresponse "github.com/adspredia/adspredia-api/internal/pkg/response"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to init logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("state_backend", cfg.StateBackend).
		Msg("Starting Ads Predia API")

	ctx := context.Background()

	slot, err := kvstore.Open(ctx, kvstore.Config{
		Backend:     cfg.StateBackend,
		Dir:         cfg.StateDir,
		KeyPrefix:   cfg.StateKeyPrefix,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
		S3: kvstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.StateKeyPrefix,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state backend")
	}
	defer slot.Close()

	var catalog *state.Catalog
	if cfg.CatalogFile != "" {
		loaded, err := state.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.CatalogFile).Msg("Failed to load catalog")
		}
		catalog = &loaded
	}

	rdb := connectRealtimeRedis(cfg)
	if rdb != nil {
		defer database.CloseRedis(rdb)
	}
	hub := realtime.NewHub(rdb)
	go hub.Run()

	registry := state.NewRegistry(state.Options{
		Slot:          slot,
		Clock:         clock.Real(),
		ApprovalDelay: cfg.DepositApprovalDelay,
		WelcomeBonus:  cfg.WelcomeBonus,
		Catalog:       catalog,
	}, hub.Notify, state.WithIdleTTL(cfg.StateIdleTTL))

	router := buildRouter(cfg, routerDeps{
		jwt:      jwt.NewService(cfg.DeviceTokenSecret, cfg.DeviceTokenTTL),
		registry: registry,
		hub:      hub,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	registry.Close()
	hub.Shutdown()

	log.Info().Msg("Server exited")
}

// connectRealtimeRedis returns the client used for cross-instance event fanout,
// or nil to keep the hub local to this process.
func connectRealtimeRedis(cfg *config.Config) *redis.Client {
	if !cfg.RealtimeRedis {
		return nil
	}
	client, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Realtime Redis unavailable, events stay on this instance")
		return nil
	}
	return client
}

type routerDeps struct {
	jwt      *jwt.Service
	registry *state.Registry
	hub      *realtime.Hub
}

func buildRouter(cfg *config.Config, deps routerDeps) chi.Router {
	authHandler := auth.NewHandler(auth.NewService(deps.jwt, deps.registry))
	taskHandler := task.NewHandler(task.NewService())
	walletHandler := wallet.NewHandler(wallet.NewService(cfg.MinWithdrawal))
	dashboardHandler := dashboard.NewHandler()
	realtimeHandler := realtime.NewHandler(deps.hub, cfg.AllowedOrigins)

	deviceAuth := middleware.DeviceAuth(deps.jwt)
	loadState := middleware.LoadState(deps.registry)
	protected := []func(http.Handler) http.Handler{deviceAuth, loadState}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.With(protected...).Get("/api/v1/ws", realtimeHandler.WebSocket)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{
				"status":  "ok",
				"version": version,
			})
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
				pkgresponse.OK(w, map[string]string{"message": "pong"})
			})

			r.Post("/devices", authHandler.IssueDevice)
			r.With(protected...).Get("/state", authHandler.State)

			r.Mount("/auth", authHandler.Routes(protected...))
			r.Mount("/tasks", taskHandler.Routes(protected...))
			r.Mount("/wallet", walletHandler.Routes(protected...))
			r.Mount("/dashboard", dashboard.Routes(dashboardHandler, protected...))
		})
	})

	return r
}
