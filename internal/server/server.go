// Package server wires the HTTP surface: middleware, the JSON API, the HTML views and health probes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/database"
	"scribe/internal/middleware"
	"scribe/internal/models"
	"scribe/internal/observability"
	"scribe/internal/repository"
	"scribe/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const createPostWindow = time.Minute

// Store is the lifecycle surface of the document store.
type Store interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	postRepo       repository.PostRepository
}

// NewServer connects to MongoDB and the optional rate-limit store and builds a Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := repository.EnsurePostIndexes(ctx, store.Database()); err != nil {
		observability.Logger.Warn("failed to ensure post indexes", slog.String("error", err.Error()))
	}

	redisClient := database.ConnectRedis(ctx, cfg.RedisURL)

	return NewServerWithDeps(cfg, store, repository.NewPostRepository(store.Database()), redisClient), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case per-route rate limiting fails open.
func NewServerWithDeps(cfg *config.Config, store Store, postRepo repository.PostRepository, redisClient *redis.Client) *Server {
	return &Server{
		config:         cfg,
		store:          store,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		postRepo:       postRepo,
	}
}

// NewApp builds the Fiber application with views, middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Scribe",
		Views:                 newViewEngine(),
		ViewsLayout:           "layouts/main",
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(middleware.TracingMiddleware())

	// After requestid and tracing so both IDs are in locals.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Post images are arbitrary external URLs.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400,
	}))

	if s.config.GlobalRateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        s.config.GlobalRateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: tooManyRequests,
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	createLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Client:  s.redis,
		Limit:   s.config.CreateRateLimit,
		Window:  createPostWindow,
		Name:    "create_post",
		Enabled: s.config.IsProduction(),

		LimitReached: tooManyRequests,
	})

	posts := app.Group("/api/posts")
	posts.Get("/", s.ListPosts)
	posts.Post("/", createLimit, s.CreatePost)
	posts.Get("/:id", s.GetPost)

	app.Get("/", s.Home)
	app.Get("/new-post", s.NewPostForm)
	app.Post("/new-post", createLimit, s.SubmitNewPost)
	app.Get("/post/:id", s.ShowPost)

	// Registered last so "/" is served by Home rather than a directory lookup.
	app.Use(filesystem.New(filesystem.Config{
		Root:   http.FS(web.Public()),
		MaxAge: 3600,
	}))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
	})
}

// ReadinessCheck reports 503 when MongoDB is unreachable. Redis only backs
// rate limiting, so its state is reported but never makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.store == nil {
		dbStatus = "unavailable"
	} else if err := s.store.Ping(ctx); err != nil {
		observability.Logger.WarnContext(ctx, "readiness: database ping failed", slog.String("error", err.Error()))
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// errorHandler renders errors that escaped a handler: JSON under /api, plain text elsewhere.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}

	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}

	if isAPIPath(c) {
		if fe == nil {
			return models.RespondWithError(c, status, err)
		}
		return c.Status(status).JSON(models.ErrorResponse{
			Error: message,
			Code:  codeForStatus(status),
		})
	}

	return sendText(c, status, message)
}

func isAPIPath(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api")
}

// tooManyRequests rejects throttled requests in the format of the route they hit.
func tooManyRequests(c *fiber.Ctx) error {
	if isAPIPath(c) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": middleware.TooManyRequestsMessage,
		})
	}
	return sendText(c, fiber.StatusTooManyRequests, middleware.TooManyRequestsMessage)
}

func codeForStatus(status int) string {
	switch {
	case status == fiber.StatusNotFound:
		return models.CodeNotFound
	case status >= fiber.StatusBadRequest && status < fiber.StatusInternalServerError:
		return models.CodeValidation
	default:
		return models.CodeInternal
	}
}

// Start listens on the configured port, building the app first if needed.
func (s *Server) Start() error {
	if s.app == nil {
		s.NewApp()
	}
	observability.Logger.Info(fmt.Sprintf("Server running on port %s", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
