package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsvchal/strp/internal/services/leaderboard"
	"github.com/bsvchal/strp/internal/view"
	"github.com/bsvchal/strp/pkg/config"
	"github.com/bsvchal/strp/pkg/handlers"
	"github.com/bsvchal/strp/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server holds the Fiber application and configuration.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	logger   *zap.Logger
	source   leaderboard.DataSource
	registry *prometheus.Registry
	views    *view.Registry
	sessions *session.Store
}

// New creates a new Fiber server with default middleware and routes. A nil
// registry leaves metrics unregistered and /metrics unrouted.
func New(cfg config.Config, logger *zap.Logger, source leaderboard.DataSource, registry *prometheus.Registry) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Fan Leaderboard",
		ErrorHandler: jsonErrorHandler(logger),
	})

	// a nil *prometheus.Registry must not reach NewLeaderboard as a Registerer
	lm := metrics.NewLeaderboard(nil)
	if registry != nil {
		lm = metrics.NewLeaderboard(registry)
	}

	srv := &Server{
		app:      app,
		cfg:      cfg,
		logger:   logger,
		source:   source,
		registry: registry,
		views:    view.NewRegistry(source, cfg.View.IdleTimeout, logger, lm),
		sessions: session.New(session.Config{
			Expiration:     cfg.View.IdleTimeout,
			KeyLookup:      "cookie:leaderboard_session",
			CookieHTTPOnly: true,
			CookieSameSite: "Lax",
		}),
	}

	srv.applyMiddleware()
	srv.registerRoutes()

	return srv
}

// applyMiddleware installs the middleware every route shares.
func (s *Server) applyMiddleware() {
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.Server.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.app.Use(fiberLogger.New()) // Request logging
	s.app.Use(recover.New())     // Panic recovery
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	if s.registry != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	if s.source != nil {
		leaderboardHandlers := handlers.NewLeaderboardHandlers(s.views, s.sessions, s.cfg.View.RefreshInterval, s.logger)

		// every new session costs one upstream fetch, so the view routes are rate limited
		leaderboardGroup := s.app.Group("/leaderboard", limiter.New(limiter.Config{
			Max:        s.cfg.Server.RateLimitMax,
			Expiration: s.cfg.Server.RateLimitDuration,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
			},
		}))
		leaderboardGroup.Get("/", leaderboardHandlers.GetLeaderboardPage)
		leaderboardGroup.Get("/state", leaderboardHandlers.GetLeaderboardState)
		leaderboardGroup.Delete("/", leaderboardHandlers.DeleteLeaderboard)
	}
}

// App returns the underlying Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info("Starting server",
		zap.String("address", addr),
		zap.String("leaders_api", s.cfg.Leaders.APIBaseURL),
	)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server and unmounts every leaderboard view.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.views.Close()
	return err
}

// jsonErrorHandler answers handler errors with {"error": message}.
func jsonErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}
