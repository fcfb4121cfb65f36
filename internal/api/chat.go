package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/conversations"
	"github.com/ragline-ai/ragline/internal/services/orchestrator"
)

// ChatHandler serves the buffered chat endpoint
type ChatHandler struct {
	orch          *orchestrator.Orchestrator
	conversations *conversations.Service
}

func NewChatHandler(orch *orchestrator.Orchestrator, conversationSvc *conversations.Service) *ChatHandler {
	return &ChatHandler{orch: orch, conversations: conversationSvc}
}

// Chat handles POST /v1/conversations/:id/chat
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	conversationID, err := c.ParamsInt("id")
	if err != nil || conversationID <= 0 {
		return respondError(c, models.NewValidationError("invalid conversation id", err))
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}
	if req.Prompt == "" {
		fiberlog.Warn("no prompt provided")
	}

	// 404 before any pipeline work when the conversation does not exist
	if _, err := h.conversations.Get(c.Context(), uint(conversationID)); err != nil {
		return respondError(c, err)
	}

	result, err := h.orch.HandleTurn(c.Context(), uint(conversationID), req.Prompt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.ChatResponse{Result: result})
}
