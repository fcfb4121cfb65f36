package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/utils/clientcache"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint
type OpenAIEmbedder struct {
	cfg         models.EmbeddingConfig
	clientCache *clientcache.Cache[*openai.Client]
}

// NewOpenAIEmbedder creates a new embedder for the configured model
func NewOpenAIEmbedder(cfg models.EmbeddingConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		cfg:         cfg,
		clientCache: clientcache.NewCache[*openai.Client](),
	}
}

func (e *OpenAIEmbedder) client() (*openai.Client, error) {
	apiKeyHash := sha256.Sum256([]byte(e.cfg.APIKey))
	cacheKey := fmt.Sprintf("%s:%x", e.cfg.BaseURL, apiKeyHash[:8])

	return e.clientCache.GetOrCreate(cacheKey, func() (*openai.Client, error) {
		opts := []openaiOption.RequestOption{
			openaiOption.WithAPIKey(e.cfg.APIKey),
		}
		if e.cfg.BaseURL != "" {
			opts = append(opts, openaiOption.WithBaseURL(e.cfg.BaseURL))
		}
		client := openai.NewClient(opts...)
		return &client, nil
	})
}

// Embed returns the embedding vector for text, computed exactly once per call
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := e.client()
	if err != nil {
		return nil, models.NewInternalError("failed to build embedding client", err)
	}

	resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(e.cfg.Model),
	})
	if err != nil {
		return nil, models.NewProviderError("embedding", "embedding request failed", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, models.NewProviderError("embedding", "empty embedding returned", nil)
	}

	raw := resp.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}

	fiberlog.Debugf("embedded %d chars into %d dimensions", len(text), len(vector))
	return vector, nil
}
