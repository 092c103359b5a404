package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aimas-backend/services/recommendation-service/internal/bus"
	"aimas-backend/services/recommendation-service/internal/config"
	"aimas-backend/services/recommendation-service/internal/consumer"
	"aimas-backend/services/recommendation-service/internal/llm"
	"aimas-backend/services/recommendation-service/internal/rules"
	"aimas-backend/services/recommendation-service/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	conn, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		logger.Error("failed to connect to nats", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	streamCfg := streamConfig(cfg, logger)
	if err := conn.EnsureStreams(streamCfg); err != nil {
		logger.Error("failed to ensure streams", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pull, err := conn.PullConsumer(streamCfg)
	if err != nil {
		logger.Error("failed to create pull consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pull.Close()

	var alt rules.Classifier
	if cfg.OpenAIKey != "" {
		alt = llm.New(cfg.OpenAIKey, cfg.LLMTimeout)
		logger.Info("alternate classifier enabled", slog.String("source", rules.SourceLLM))
	}
	engine := rules.NewEngine(rules.DefaultRegistry(), alt, logger)

	pipeline := &consumer.Pipeline{
		Engine:    engine,
		Store:     store,
		Publisher: conn.Publisher(streamCfg),
		Logger:    logger,
	}

	go startAdminServer(cfg, conn, logger)

	logger.Info("consumer listening",
		slog.String("stream", streamCfg.MetricsStream),
		slog.String("durable", streamCfg.Durable))

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	runLoop(runCtx, pull, pipeline, logger)
	logger.Info("consumer stopped")
}

// runLoop fetches one delivery at a time. Shutdown cancels the fetch but
// never an in-flight message: processing runs on its own context so the
// final message settles (ack or redeliver) before the loop exits.
func runLoop(ctx context.Context, pull *bus.PullConsumer, pipeline *consumer.Pipeline, logger *slog.Logger) {
	for {
		msg, err := pull.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("fetch failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		procCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		disposition := pipeline.Process(procCtx, msg.Data)
		cancel()

		switch disposition {
		case consumer.Ack, consumer.Discard:
			if err := msg.Ack(); err != nil {
				logger.Error("ack failed", slog.String("error", err.Error()))
			}
		case consumer.Redeliver:
			// Left unacked on purpose; the broker redelivers after
			// its ack deadline.
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (consumer.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return storage.NewMemory(), func() {}, nil
	}
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return storage.NewRepository(store), store.Close, nil
}

func streamConfig(cfg config.Config, logger *slog.Logger) bus.StreamConfig {
	streamCfg := bus.DefaultStreamConfig()
	if cfg.BrokerConfigPath == "" {
		return streamCfg
	}
	overrides, err := config.LoadBrokerOverrides(cfg.BrokerConfigPath)
	if err != nil {
		logger.Error("failed to load broker config", slog.String("path", cfg.BrokerConfigPath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if overrides.MetricsStream != "" {
		streamCfg.MetricsStream = overrides.MetricsStream
	}
	if len(overrides.Bindings) > 0 {
		streamCfg.Bindings = overrides.Bindings
	}
	if overrides.RecoStream != "" {
		streamCfg.RecoStream = overrides.RecoStream
	}
	if overrides.RecoPrefix != "" {
		streamCfg.RecoPrefix = overrides.RecoPrefix
	}
	if overrides.Durable != "" {
		streamCfg.Durable = overrides.Durable
	}
	if overrides.AckWaitSeconds > 0 {
		streamCfg.AckWait = time.Duration(overrides.AckWaitSeconds) * time.Second
	}
	return streamCfg
}

func startAdminServer(cfg config.Config, conn *bus.Conn, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "service": cfg.ServiceName})
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if !conn.Healthy() {
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  status,
			"service": cfg.ServiceName,
			"broker":  map[string]any{"configured": true, "reachable": conn.Healthy()},
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.AdminPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	logger.Info("consumer admin server listening", slog.String("port", cfg.AdminPort))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("admin server error", slog.String("error", err.Error()))
	}
}
