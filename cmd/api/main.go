package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	zlog "github.com/rs/zerolog/log"

	"promotions-service/internal/config"
	"promotions-service/internal/database"
	"promotions-service/internal/events"
	"promotions-service/internal/handler"
	"promotions-service/internal/logging"
	"promotions-service/internal/metrics"
	"promotions-service/internal/middleware"
	"promotions-service/internal/service"
	"promotions-service/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML or JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: tracing.ServiceName,
	})

	shutdownTracing, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	// Initialize database
	db, err := database.NewDB(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to initialize database")
	}
	defer db.Close()

	registry := metrics.NewRegistry()

	eventManager := events.NewManager(cfg.Events.Enabled)
	auditLogger := logger.With().Str("component", "events").Logger()
	eventManager.Subscribe(events.EventPromotionCreated, events.AuditLogger(auditLogger))
	eventManager.Subscribe(events.EventPromotionUpdated, events.AuditLogger(auditLogger))
	eventManager.Subscribe(events.EventPromotionDeleted, events.AuditLogger(auditLogger))

	svc := service.NewService(db,
		service.WithMetrics(metrics.New(registry)),
		service.WithEvents(eventManager),
	)

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Window)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h.RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error shutting down http server")
		}
		eventManager.Shutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	logger.Info().
		Str("addr", server.Addr).
		Str("driver", db.Driver()).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("starting HTTP server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}

	<-shutdownDone
}
