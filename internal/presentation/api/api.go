package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/configs"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/metrics"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/cipherroom/internal/presentation/handler/health"
	profileHandler "github.com/hilthontt/cipherroom/internal/presentation/handler/profile"
	roomHandler "github.com/hilthontt/cipherroom/internal/presentation/handler/rooms"
	socketHandler "github.com/hilthontt/cipherroom/internal/presentation/handler/socket"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	config         configs.Config
	roomHandler    *roomHandler.Handler
	healthHandler  *healthHandler.Handler
	profileHandler *profileHandler.Handler
	socketHandler  *socketHandler.Handler
	verifier       *auth.Verifier
	logger         logging.Logger
	ratelimiter    ratelimiter.Limiter
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	profileHandler *profileHandler.Handler,
	socketHandler *socketHandler.Handler,
	verifier *auth.Verifier,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	metrics *metrics.Metrics,
	registry *prometheus.Registry,
) *Application {
	return &Application{
		config:         config,
		roomHandler:    roomHandler,
		healthHandler:  healthHandler,
		profileHandler: profileHandler,
		socketHandler:  socketHandler,
		verifier:       verifier,
		logger:         logger,
		ratelimiter:    ratelimiter,
		metrics:        metrics,
		registry:       registry,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(app.loggerMiddleware)
	r.Use(app.metrics.Instrument)
	r.Use(app.enableCors)

	if app.registry != nil {
		metrics.Mount(r, app.registry, app.registry)
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Get("/health", app.healthHandler.GetHealth)
	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/live", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetReady)

	// The socket has its own handshake throttle and must not inherit request timeouts
	r.Get("/ws", app.socketHandler.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.rateLimiterMiddleware)

		r.Get("/rooms/stats", app.roomHandler.GetStats)

		r.Group(func(r chi.Router) {
			r.Use(app.verifier.Required)

			r.Get("/me/chats", app.profileHandler.ListChats)
			r.Delete("/me/chats/{code}", app.profileHandler.DeleteChat)
			r.Put("/me/avatar", app.profileHandler.UpdateAvatar)
		})
	})

	return otelhttp.NewHandler(r, app.config.Tracing.ServiceName)
}

// Run serves mux until ctx is done, then drains in-flight requests.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "server is stopping", map[logging.ExtraKey]any{
			logging.HostIp: srv.Addr,
		})

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		logging.HostIp: srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		logging.HostIp: srv.Addr,
	})

	return nil
}
