package api

import (
	"bufio"
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/conversations"
	"github.com/ragline-ai/ragline/internal/services/orchestrator"
)

// StreamHandler serves the SSE chat endpoint
type StreamHandler struct {
	orch          *orchestrator.Orchestrator
	conversations *conversations.Service
}

func NewStreamHandler(orch *orchestrator.Orchestrator, conversationSvc *conversations.Service) *StreamHandler {
	return &StreamHandler{orch: orch, conversations: conversationSvc}
}

// Stream handles GET /v1/conversations/:id/chat/stream?prompt=...
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	conversationID, err := c.ParamsInt("id")
	if err != nil || conversationID <= 0 {
		return respondError(c, models.NewValidationError("invalid conversation id", err))
	}

	prompt := c.Query("prompt")
	if prompt == "" {
		fiberlog.Warn("no prompt provided")
	}

	if _, err := h.conversations.Get(c.Context(), uint(conversationID)); err != nil {
		return respondError(c, err)
	}

	// The request context is cancelled as soon as this handler returns,
	// before the body stream writer runs, so the pipeline gets a
	// detached context. Client disconnects surface as flush errors in
	// the writer below.
	events := h.orch.HandleTurnStream(context.Background(), uint(conversationID), prompt)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		clientGone := false
		for event := range events {
			if clientGone {
				// Keep draining so the pipeline finishes and the turn
				// record is written.
				continue
			}
			if err := writeSSE(w, event); err != nil {
				fiberlog.Infof("client disconnected mid-stream: %v", err)
				clientGone = true
			}
		}
		if !clientGone {
			if _, err := w.WriteString("data: [DONE]\n\n"); err == nil {
				w.Flush() //nolint:errcheck
			}
		}
	}))
	return nil
}

// writeSSE frames one event and flushes it immediately so chunks reach
// the client without buffering delay.
func writeSSE(w *bufio.Writer, event models.StreamEvent) error {
	text := event.Text
	if event.Kind == models.StreamEventError {
		text = "generation failed"
	}
	// SSE data must not contain raw newlines within one data line
	text = strings.ReplaceAll(text, "\n", "\ndata: ")

	if _, err := w.WriteString("event: " + string(event.Kind) + "\ndata: " + text + "\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
