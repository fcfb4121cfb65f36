package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ragline-ai/ragline/internal/services/ratelimit"
	"github.com/ragline-ai/ragline/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *storage.DB
	limiter *ratelimit.Limiter
}

// NewHealthHandler creates a new health check handler. Either
// dependency may be nil when the deployment does not use it.
func NewHealthHandler(db *storage.DB, limiter *ratelimit.Limiter) *HealthHandler {
	return &HealthHandler{db: db, limiter: limiter}
}

// HealthCheck returns the health status of the service and its dependencies
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	dbStatus := h.checkDatabase()
	redisStatus := h.checkRedis()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

func (h *HealthHandler) checkDatabase() string {
	if h.db == nil {
		return "disabled"
	}
	if err := h.db.Ping(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkRedis() string {
	if h.limiter == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.limiter.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
