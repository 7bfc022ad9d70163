package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hilthontt/cipherroom/docs"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/configs"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/metrics"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/hilthontt/cipherroom/internal/infrastructure/retention"
	"github.com/hilthontt/cipherroom/internal/infrastructure/tracing"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ws"
	"github.com/hilthontt/cipherroom/internal/presentation/api"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/health"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/profile"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/rooms"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/socket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// @title                      Cipherroom API
// @version                    1.0
// @description                Ephemeral chat rooms with end-to-end encrypted message relay.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
	})
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to initialize the tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(logging.MongoDB, logging.Startup, "failed to open the store", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer store.Close()

	publisher, brokerPing, closeBroker, err := openPublisher(cfg, store.Audit, logger)
	if err != nil {
		logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to the broker", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer closeBroker()

	limiter, closeLimiter, err := newRateLimiter(cfg)
	if err != nil {
		logger.Fatal(logging.Redis, logging.RateLimiting, "failed to create the rate limiter", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer closeLimiter()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal(logging.Auth, logging.Startup, "failed to create the token verifier", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	governor := retention.NewGovernor(store.Messages, retention.Config{
		PerRoom:   cfg.Retention.PerRoom,
		Global:    cfg.Retention.Global,
		QueueSize: cfg.Retention.QueueSize,
		Timeout:   cfg.Retention.Timeout,
	}, logger, m)
	go governor.Run(ctx)

	core := ws.NewCore(ws.Options{
		Registry:     repository.NewRoomRegistry(cfg.Rooms.MaxRooms),
		Messages:     store.Messages,
		Profiles:     store.Profiles,
		Publisher:    publisher,
		Retention:    governor,
		Logger:       logger,
		Metrics:      m,
		HistoryLimit: cfg.Rooms.HistoryLimit,
		StoreTimeout: cfg.Rooms.StoreTimeout,
	})
	coreDone := make(chan struct{})
	go func() {
		defer close(coreDone)
		core.Run(ctx)
	}()

	handshakes := ratelimiter.NewFixedWindow(cfg.WebSocket.HandshakesPerMinute, time.Minute)
	defer handshakes.Close()

	checks := map[string]health.Check{}
	if store.Ping != nil {
		checks["store"] = store.Ping
	}
	if brokerPing != nil {
		checks["broker"] = brokerPing
	}

	app := api.NewApplication(
		*cfg,
		rooms.NewHandler(core),
		health.NewHandler(checks),
		profile.NewHandler(store.Profiles, logger),
		socket.NewHandler(core, verifier, handshakes, logger, socket.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Limits: ws.Limits{
				EventsPerSecond: cfg.WebSocket.EventsPerSecond,
				EventBurst:      cfg.WebSocket.EventBurst,
				MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
			},
		}),
		verifier,
		logger,
		limiter,
		m,
		registry,
	)

	if err := app.Run(ctx, app.Mount()); err != nil {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	// In-flight store calls must settle before the store is closed.
	stop()
	<-coreDone
	core.Wait()

	logger.Info(logging.General, logging.Shutdown, "server stopped", nil)
}
