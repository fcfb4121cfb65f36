package generation

import (
	"context"
	"io"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/utils/clientcache"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicGenerator calls the Anthropic Messages API. Thinking blocks
// stream as separate chunks when the model emits them.
type AnthropicGenerator struct {
	cfg         models.GenerationConfig
	clientCache *clientcache.Cache[*anthropic.Client]
}

func NewAnthropicGenerator(cfg models.GenerationConfig) *AnthropicGenerator {
	return &AnthropicGenerator{
		cfg:         cfg,
		clientCache: clientcache.NewCache[*anthropic.Client](),
	}
}

func (g *AnthropicGenerator) client() *anthropic.Client {
	hash, err := configHash(g.cfg)
	if err != nil {
		fiberlog.Warnf("Failed to generate config hash: %v, creating new client without caching", err)
		return g.buildClient()
	}

	client, err := g.clientCache.GetOrCreate(hash, func() (*anthropic.Client, error) {
		fiberlog.Debugf("Creating new Anthropic client (config hash: %s)", hash[:8])
		return g.buildClient(), nil
	})
	if err != nil {
		fiberlog.Warnf("Unexpected error from client cache: %v, creating new client", err)
		return g.buildClient()
	}
	return client
}

func (g *AnthropicGenerator) buildClient() *anthropic.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(g.cfg.APIKey),
	}
	if g.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(g.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &client
}

func (g *AnthropicGenerator) params(system, user string) anthropic.MessageNewParams {
	maxTokens := int64(g.cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.Model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if g.cfg.Temperature != 0 {
		params.Temperature = anthropic.Float(g.cfg.Temperature)
	}
	return params
}

func (g *AnthropicGenerator) Invoke(ctx context.Context, system, user string) (*Output, error) {
	start := time.Now()
	message, err := g.client().Messages.New(ctx, g.params(system, user))
	if err != nil {
		fiberlog.Errorf("Anthropic request failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("anthropic", "message request failed", err)
	}

	var out Output
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += variant.Text
		case anthropic.ThinkingBlock:
			out.Thinking += variant.Thinking
		}
	}
	return &out, nil
}

func (g *AnthropicGenerator) Stream(ctx context.Context, system, user string) (Stream, error) {
	stream := g.client().Messages.NewStreaming(ctx, g.params(system, user))
	return &anthropicStream{inner: stream}, nil
}

type anthropicStream struct {
	inner *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *anthropicStream) Next() (Chunk, error) {
	for s.inner.Next() {
		event := s.inner.Current()
		deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		switch deltaEvent.Delta.Type {
		case "text_delta":
			if deltaEvent.Delta.Text != "" {
				return Chunk{Kind: ChunkContent, Text: deltaEvent.Delta.Text}, nil
			}
		case "thinking_delta":
			if deltaEvent.Delta.Thinking != "" {
				return Chunk{Kind: ChunkThinking, Text: deltaEvent.Delta.Thinking}, nil
			}
		}
	}
	if err := s.inner.Err(); err != nil {
		return Chunk{}, models.NewProviderError("anthropic", "stream failed", err)
	}
	return Chunk{}, io.EOF
}

func (s *anthropicStream) Close() error {
	return s.inner.Close()
}
