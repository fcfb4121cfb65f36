package generation

import (
	"context"
	"io"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/utils/clientcache"
)

// OpenAIGenerator calls the OpenAI Chat Completions API. It also serves
// any OpenAI-compatible endpoint via BaseURL.
type OpenAIGenerator struct {
	cfg         models.GenerationConfig
	clientCache *clientcache.Cache[*openai.Client]
}

func NewOpenAIGenerator(cfg models.GenerationConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		cfg:         cfg,
		clientCache: clientcache.NewCache[*openai.Client](),
	}
}

func (g *OpenAIGenerator) client() *openai.Client {
	hash, err := configHash(g.cfg)
	if err != nil {
		fiberlog.Warnf("Failed to generate config hash: %v, creating new client without caching", err)
		return g.buildClient()
	}

	client, err := g.clientCache.GetOrCreate(hash, func() (*openai.Client, error) {
		fiberlog.Debugf("Creating new OpenAI client (config hash: %s)", hash[:8])
		return g.buildClient(), nil
	})
	if err != nil {
		fiberlog.Warnf("Unexpected error from client cache: %v, creating new client", err)
		return g.buildClient()
	}
	return client
}

func (g *OpenAIGenerator) buildClient() *openai.Client {
	opts := []openaiOption.RequestOption{
		openaiOption.WithAPIKey(g.cfg.APIKey),
	}
	if g.cfg.BaseURL != "" {
		opts = append(opts, openaiOption.WithBaseURL(g.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &client
}

func (g *OpenAIGenerator) params(system, user string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if g.cfg.Temperature != 0 {
		params.Temperature = openai.Float(g.cfg.Temperature)
	}
	if g.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.cfg.MaxTokens))
	}
	return params
}

func (g *OpenAIGenerator) Invoke(ctx context.Context, system, user string) (*Output, error) {
	start := time.Now()
	completion, err := g.client().Chat.Completions.New(ctx, g.params(system, user))
	if err != nil {
		fiberlog.Errorf("OpenAI request failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("openai", "chat completion failed", err)
	}
	if len(completion.Choices) == 0 {
		return nil, models.NewProviderError("openai", "empty completion", nil)
	}
	return &Output{Content: completion.Choices[0].Message.Content}, nil
}

func (g *OpenAIGenerator) Stream(ctx context.Context, system, user string) (Stream, error) {
	stream := g.client().Chat.Completions.NewStreaming(ctx, g.params(system, user))
	return &openaiStream{inner: stream}, nil
}

type openaiStream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *openaiStream) Next() (Chunk, error) {
	for s.inner.Next() {
		chunk := s.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return Chunk{Kind: ChunkContent, Text: delta}, nil
	}
	if err := s.inner.Err(); err != nil {
		return Chunk{}, models.NewProviderError("openai", "stream failed", err)
	}
	return Chunk{}, io.EOF
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}
