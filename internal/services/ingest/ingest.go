// Package ingest loads documents into the knowledge-base collection:
// fixed-size chunking, whitespace cleanup, embedding, and upsert.
package ingest

import (
	"context"
	"regexp"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/embedding"
	"github.com/ragline-ai/ragline/internal/services/vectorindex"
	"github.com/ragline-ai/ragline/internal/utils"
)

const defaultChunkSize = 1000

var whitespaceRun = regexp.MustCompile(`\s+`)

type Service struct {
	index    vectorindex.Index
	embedder embedding.Embedder
	cfg      models.KnowledgeConfig
	dim      int
}

func NewService(index vectorindex.Index, embedder embedding.Embedder, cfg models.KnowledgeConfig, dim int) *Service {
	return &Service{index: index, embedder: embedder, cfg: cfg, dim: dim}
}

// IngestText chunks, cleans, embeds, and stores one document. Returns
// the number of chunks stored. Empty chunks after cleaning are skipped.
func (s *Service) IngestText(ctx context.Context, source, text string) (int, error) {
	if err := s.index.EnsureCollection(ctx, s.cfg.Collection, s.dim); err != nil {
		return 0, err
	}

	stored := 0
	for _, chunk := range s.chunks(text) {
		cleaned := Clean(chunk)
		if cleaned == "" {
			continue
		}

		vector, err := s.embedder.Embed(ctx, cleaned)
		if err != nil {
			return stored, err
		}

		point := vectorindex.Point{
			ID:     uuid.NewString(),
			Vector: vector,
			Payload: map[string]any{
				"source":        source,
				"original_text": cleaned,
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.index.Upsert(ctx, s.cfg.Collection, []vectorindex.Point{point}); err != nil {
			return stored, err
		}
		stored++
		fiberlog.Debugf("stored chunk %d from %s", stored, source)
	}
	return stored, nil
}

func (s *Service) chunks(text string) []string {
	size := s.cfg.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}

	var out []string
	for len(text) > size {
		// Cut on a rune boundary so a multi-byte character never
		// straddles two chunks.
		cut := len(utils.Truncate(text, size))
		if cut == 0 {
			cut = size
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// Clean normalizes a chunk: newlines become spaces, whitespace runs
// collapse, and stray punctuation artifacts from extraction are fixed.
func Clean(text string) string {
	t := strings.ReplaceAll(text, "\n", " ")
	t = whitespaceRun.ReplaceAllString(t, " ")
	t = strings.ReplaceAll(t, ". ,", "")
	t = strings.ReplaceAll(t, "..", ".")
	t = strings.ReplaceAll(t, ". .", ".")
	return strings.TrimSpace(t)
}
