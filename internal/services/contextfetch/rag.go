package contextfetch

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/vectorindex"
)

// Retriever searches the knowledge collection for passages similar to
// the prompt embedding.
type Retriever struct {
	index vectorindex.Index
	cfg   models.KnowledgeConfig
}

func NewRetriever(index vectorindex.Index, cfg models.KnowledgeConfig) *Retriever {
	return &Retriever{index: index, cfg: cfg}
}

// Retrieve returns the matching passages and their newline-joined form.
// Errors are logged and yield empty results so the turn proceeds
// without grounding.
func (r *Retriever) Retrieve(ctx context.Context, queryVector []float32) ([]string, string) {
	// No embedding means the cache check failed; there is nothing to
	// search with.
	if len(queryVector) == 0 {
		return nil, ""
	}

	points, err := r.index.Search(ctx, r.cfg.Collection, queryVector, r.cfg.RetrievalLimit, r.cfg.ScoreThreshold)
	if err != nil {
		log.Warnf("knowledge retrieval failed: %v", err)
		return nil, ""
	}

	var docs []string
	for _, p := range points {
		text, ok := p.Payload["original_text"].(string)
		if !ok || text == "" {
			continue
		}
		docs = append(docs, text)
	}
	if len(docs) == 0 {
		return nil, ""
	}
	return docs, strings.Join(docs, "\n")
}
