package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/ingest"
)

// KnowledgeHandler serves knowledge-base ingestion
type KnowledgeHandler struct {
	ingest *ingest.Service
}

func NewKnowledgeHandler(ingestSvc *ingest.Service) *KnowledgeHandler {
	return &KnowledgeHandler{ingest: ingestSvc}
}

type ingestRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Ingest handles POST /v1/knowledge/documents. The body carries the document text
// directly; chunking and embedding happen server-side.
func (h *KnowledgeHandler) Ingest(c *fiber.Ctx) error {
	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}
	if req.Text == "" {
		return respondError(c, models.NewValidationError("text is required", nil))
	}
	if req.Source == "" {
		req.Source = "inline"
	}

	stored, err := h.ingest.IngestText(c.Context(), req.Source, req.Text)
	if err != nil {
		fiberlog.Errorf("knowledge ingestion failed after %d chunks: %v", stored, err)
		return respondError(c, models.NewInternalError("ingestion failed", err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"source":        req.Source,
		"chunks_stored": stored,
	})
}
