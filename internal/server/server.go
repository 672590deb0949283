// Package server contains the HTTP handlers and route wiring for the
// application's server-rendered pages.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/url"
	"time"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	templates      map[string]*template.Template
	userRepo       repository.UserRepository
	articleRepo    repository.ArticleRepository
	sessions       *session.Manager
	userService    *service.UserService
	articleService *service.ArticleService
	uploadService  *service.UploadService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
	}

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	articleRepo := repository.NewArticleRepository(db)

	var store session.Store
	if redisClient != nil {
		store = session.NewRedisStore(redisClient)
	} else {
		store = session.NewMemoryStore()
	}

	prom := middleware.InitMetrics("quill")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		templates:      templates,
		userRepo:       userRepo,
		articleRepo:    articleRepo,
		sessions:       session.NewManager(store, userRepo, cfg.SessionSecret, cfg.Env == "production"),
	}
	server.userService = service.NewUserService(userRepo)
	server.articleService = service.NewArticleService(articleRepo, userRepo)
	server.uploadService = service.NewUploadService(cfg.UploadDir)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Distributed tracing
	app.Use(middleware.TracingMiddleware())

	// Session resolution runs last so the current user is available to every
	// handler and to the logging context.
	app.Use(s.sessions.Middleware())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded and placeholder images
	app.Static("/static/images", s.config.UploadDir)

	// Public pages
	app.Get("/", s.Home)
	app.Get("/index/", s.Home)
	app.Get("/articles_by_author/:authorId", s.ArticlesByAuthor)
	app.Get("/full_article/:id", s.FullArticle)

	// Auth pages
	app.Get("/signup/", s.ShowSignup)
	app.Post("/signup/", s.Signup)
	app.Get("/login/", s.ShowLogin)
	app.Post("/login/", s.Login)
	app.Get("/logout/", s.Logout)

	// Pages requiring a signed-in user
	app.Get("/new_article/", s.RequireAuth, s.ShowNewArticle)
	app.Post("/new_article/", s.RequireAuth, s.CreateArticle)
	app.Get("/edit_article/:id", s.RequireAuth, s.ShowEditArticle)
	app.Post("/edit_article/:id", s.RequireAuth, s.UpdateArticle)
	app.Get("/delete_article/:id", s.RequireAuth, s.DeleteArticle)
	app.Post("/delete_article/:id", s.RequireAuth, s.DeleteArticle)
	app.Get("/account/", s.RequireAuth, s.ShowAccount)
	app.Post("/account/", s.RequireAuth, s.UpdateAccount)
}

// RequireAuth redirects anonymous visitors to the login page, preserving the
// original path so login can send them back.
func (s *Server) RequireAuth(c *fiber.Ctx) error {
	if session.CurrentUser(c) != nil {
		return c.Next()
	}
	s.sessions.AddFlash(c, "warning", "Please log in to access this page.")
	next := url.QueryEscape(c.OriginalURL())
	return c.Redirect("/login/?next="+next, fiber.StatusSeeOther)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Sessions fall back to the in-process store without Redis.
		redisStatus = "unconfigured"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with middleware and routes attached. Split from
// Start so tests can drive the app with app.Test.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Quill",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return s.renderError(c, err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
