// Package api contains the HTTP handlers.
package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ragline-ai/ragline/internal/models"
)

// respondError maps an error to its HTTP status and a sanitized JSON
// body. Internal causes never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = models.NewTimeoutError("chat turn", err)
	}
	appErr := models.SanitizeError(err)
	return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{
		"error": appErr,
	})
}
