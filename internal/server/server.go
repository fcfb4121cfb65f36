// Package server wires the services together and runs the HTTP API.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ragline-ai/ragline/internal/api"
	"github.com/ragline-ai/ragline/internal/config"
	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/contextfetch"
	"github.com/ragline-ai/ragline/internal/services/conversations"
	"github.com/ragline-ai/ragline/internal/services/generation"
	"github.com/ragline-ai/ragline/internal/services/guardrails"
	"github.com/ragline-ai/ragline/internal/services/ingest"
	"github.com/ragline-ai/ragline/internal/services/orchestrator"
	"github.com/ragline-ai/ragline/internal/services/ratelimit"
	"github.com/ragline-ai/ragline/internal/services/recorder"
	"github.com/ragline-ai/ragline/internal/services/scheduler"
	"github.com/ragline-ai/ragline/internal/services/semanticcache"
	"github.com/ragline-ai/ragline/internal/services/vectorindex"
	"github.com/ragline-ai/ragline/internal/storage"

	"github.com/ragline-ai/ragline/internal/services/embedding"
)

// Server owns the application lifecycle: infrastructure, services,
// routes, the background eviction task, and graceful shutdown.
type Server struct {
	config  *config.Config
	app     *fiber.App
	db      *storage.DB
	limiter *ratelimit.Limiter
}

func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Run blocks until the process receives an interrupt or the listener
// fails, then shuts down gracefully.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	s.app = createFiberApp(s.config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Infrastructure Setup ===
	if err := s.initInfrastructure(ctx); err != nil {
		return err
	}
	defer func() {
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				fiberlog.Errorf("Failed to close database connection: %v", err)
			}
		}
		if s.limiter != nil {
			if err := s.limiter.Close(); err != nil {
				fiberlog.Errorf("Failed to close redis client: %v", err)
			}
		}
	}()

	// === Services Initialization ===
	services, err := s.initServices(ctx)
	if err != nil {
		return err
	}

	// === Middleware & Routes ===
	s.setupMiddleware()
	s.setupRoutes(services)

	// === Background Eviction ===
	var evictionScheduler *scheduler.EvictionScheduler
	if services.cache != nil && services.cache.Enabled() {
		interval := time.Duration(s.config.Cache.EvictionIntervalMin) * time.Minute
		evictionScheduler = scheduler.NewEvictionScheduler(services.cache, interval)
		go evictionScheduler.Start(ctx)
		defer evictionScheduler.Stop()
	}

	fmt.Printf("ragline starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		fiberlog.Info("Context cancelled, starting shutdown...")
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- s.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

func (s *Server) initInfrastructure(ctx context.Context) error {
	if s.config.Database != nil {
		db, err := storage.New(*s.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		s.db = db
		fiberlog.Infof("Database connected (%s)", db.DriverName())
	}

	if s.config.Redis != nil && s.config.RateLimit.Enabled {
		limiter, err := ratelimit.New(ctx, *s.config.Redis, s.config.RateLimit)
		if err != nil {
			return fmt.Errorf("failed to connect rate limiter: %w", err)
		}
		s.limiter = limiter
		fiberlog.Info("Rate limiter connected")
	}

	return nil
}

// appServices groups the request-serving services built at startup
type appServices struct {
	orch          *orchestrator.Orchestrator
	conversations *conversations.Service
	ingest        *ingest.Service
	cache         *semanticcache.Cache
}

func (s *Server) initServices(ctx context.Context) (*appServices, error) {
	index, err := vectorindex.New(ctx, s.config.VectorIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	embedder := embedding.NewOpenAIEmbedder(s.config.Embedding)
	dim := s.config.VectorIndex.Dimension

	cache := semanticcache.New(index, embedder, s.config.Cache, dim)
	if err := cache.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize semantic cache: %w", err)
	}

	generator, err := generation.New(s.config.Generation)
	if err != nil {
		return nil, err
	}

	if s.db == nil {
		return nil, fmt.Errorf("database is required for turn recording")
	}

	services := &appServices{
		orch: orchestrator.New(
			cache,
			guardrails.NewInputGuard(s.config.Guardrails.Input),
			guardrails.NewOutputGuard(s.config.Guardrails.Output),
			contextfetch.NewFetcher(index, s.config.Knowledge, s.config.Scrape),
			generator,
			recorder.NewDBRecorder(s.db),
		),
		conversations: conversations.NewService(s.db),
		ingest:        ingest.NewService(index, embedder, s.config.Knowledge, dim),
		cache:         cache,
	}
	return services, nil
}

func (s *Server) setupMiddleware() {
	isProd := s.config.IsProduction()

	// Recover middleware (must be first)
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	// Compression
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Logging
	if isProd {
		s.app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		s.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	// CORS
	allowedHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", "User-Agent",
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  s.config.Server.AllowedOrigins,
		AllowHeaders:  strings.Join(allowedHeaders, ", "),
		AllowMethods:  "GET, POST, PATCH, DELETE, OPTIONS",
		MaxAge:        86400,
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	// Profiler (dev only)
	if !isProd {
		s.app.Use(pprof.New())
	}
}

// rateLimitMiddleware guards the generation endpoints with the shared
// redis limiter; other routes stay unmetered.
func (s *Server) rateLimitMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.limiter == nil {
			return c.Next()
		}
		if !s.limiter.Allow(c.Context(), c.IP()) {
			c.Set("Retry-After", fmt.Sprintf("%.0f", s.limiter.RetryAfter().Seconds()))
			appErr := models.NewRateLimitError("rate limit exceeded")
			return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{"error": appErr})
		}
		return c.Next()
	}
}

func (s *Server) setupRoutes(services *appServices) {
	healthHandler := api.NewHealthHandler(s.db, s.limiter)
	chatHandler := api.NewChatHandler(services.orch, services.conversations)
	streamHandler := api.NewStreamHandler(services.orch, services.conversations)
	conversationHandler := api.NewConversationHandler(services.conversations)
	knowledgeHandler := api.NewKnowledgeHandler(services.ingest)

	s.app.Get("/health", healthHandler.HealthCheck)

	v1 := s.app.Group("/v1")

	conversationGroup := v1.Group("/conversations")
	conversationGroup.Get("/", conversationHandler.List)
	conversationGroup.Post("/", conversationHandler.Create)
	conversationGroup.Get("/:id", conversationHandler.Get)
	conversationGroup.Patch("/:id", conversationHandler.Rename)
	conversationGroup.Delete("/:id", conversationHandler.Delete)

	conversationGroup.Post("/:id/chat", s.rateLimitMiddleware(), chatHandler.Chat)
	conversationGroup.Get("/:id/chat/stream", s.rateLimitMiddleware(), streamHandler.Stream)

	v1.Post("/knowledge/documents", knowledgeHandler.Ingest)
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "ragline v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		ReadBufferSize:    8192,
		WriteBufferSize:   8192,
		CaseSensitive:     true,
		ServerHeader:      "ragline",
	})
}

func setupLogLevel(cfg *config.Config) {
	logLevel := strings.ToLower(cfg.Server.LogLevel)

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info", "":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}
}
