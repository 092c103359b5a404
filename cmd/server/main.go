package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aimas-backend/services/recommendation-service/internal/api"
	"aimas-backend/services/recommendation-service/internal/auth"
	"aimas-backend/services/recommendation-service/internal/bus"
	"aimas-backend/services/recommendation-service/internal/config"
	"aimas-backend/services/recommendation-service/internal/llm"
	"aimas-backend/services/recommendation-service/internal/rules"
	"aimas-backend/services/recommendation-service/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()
	ctx := context.Background()

	if cfg.GatewaySecret == "" {
		logger.Error("GATEWAY_SECRET is required")
		os.Exit(1)
	}

	var repo api.RecommendationStore
	var store *storage.Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		repo = storage.NewMemory()
	} else {
		var err error
		store, err = storage.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to db", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer store.Close()
		if err := store.InitSchema(ctx); err != nil {
			logger.Error("failed to init schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		pgRepo := storage.NewRepository(store)
		pgRepo.MaxPageSize = cfg.MaxPageSize
		repo = pgRepo
	}

	var conn *bus.Conn
	if cfg.NATSURL != "" {
		c, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("broker unreachable, readiness will report not_ready",
				slog.String("error", err.Error()))
		} else {
			conn = c
			defer conn.Close()
		}
	}

	var alt rules.Classifier
	if cfg.OpenAIKey != "" {
		alt = llm.New(cfg.OpenAIKey, cfg.LLMTimeout)
		logger.Info("alternate classifier enabled", slog.String("source", rules.SourceLLM))
	}
	engine := rules.NewEngine(rules.DefaultRegistry(), alt, logger)

	handler := &api.Handler{
		Repo:        repo,
		Engine:      engine,
		Timeout:     cfg.QueryTimeout,
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
		Ready:       readyCheck(cfg, store, conn),
		MaxPageSize: cfg.MaxPageSize,
	}
	verifier := &auth.Verifier{Secret: []byte(cfg.GatewaySecret)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	handler.RegisterRoutes(r, verifier)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("recommendation-service listening", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("error", err.Error()))
	}
}

// readyCheck degrades when a collaborator is absent by configuration and
// reports not_ready when a configured one is unreachable.
func readyCheck(cfg config.Config, store *storage.Store, conn *bus.Conn) api.ReadyCheck {
	return func(ctx context.Context) (string, map[string]any) {
		status := "ok"
		detail := map[string]any{}

		if store == nil {
			status = "degraded"
			detail["database"] = map[string]any{"configured": false}
		} else if err := store.Pool.Ping(ctx); err != nil {
			status = "not_ready"
			detail["database"] = map[string]any{"configured": true, "reachable": false}
		} else {
			detail["database"] = map[string]any{"configured": true, "reachable": true}
		}

		if conn == nil {
			if status == "ok" {
				status = "degraded"
			}
			detail["broker"] = map[string]any{"configured": cfg.NATSURL != "", "reachable": false}
		} else if !conn.Healthy() {
			status = "not_ready"
			detail["broker"] = map[string]any{"configured": true, "reachable": false}
		} else {
			detail["broker"] = map[string]any{"configured": true, "reachable": true}
		}

		return status, detail
	}
}
