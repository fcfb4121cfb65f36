package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/conversations"
)

// ConversationHandler serves conversation CRUD
type ConversationHandler struct {
	svc *conversations.Service
}

func NewConversationHandler(svc *conversations.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type conversationRequest struct {
	Title string `json:"title"`
}

// List handles GET /v1/conversations
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	list, err := h.svc.List(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// Get handles GET /v1/conversations/:id
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, models.NewValidationError("invalid conversation id", err))
	}

	conversation, err := h.svc.Get(c.Context(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversation)
}

// Create handles POST /v1/conversations
func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	var req conversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}
	if req.Title == "" {
		return respondError(c, models.NewValidationError("title is required", nil))
	}

	conversation, err := h.svc.Create(c.Context(), req.Title)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conversation)
}

// Rename handles PATCH /v1/conversations/:id
func (h *ConversationHandler) Rename(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, models.NewValidationError("invalid conversation id", err))
	}

	var req conversationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}
	if req.Title == "" {
		return respondError(c, models.NewValidationError("title is required", nil))
	}

	conversation, err := h.svc.Rename(c.Context(), uint(id), req.Title)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conversation)
}

// Delete handles DELETE /v1/conversations/:id
func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, models.NewValidationError("invalid conversation id", err))
	}

	if err := h.svc.Delete(c.Context(), uint(id)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
