package generation

import (
	"context"
	"io"
	"iter"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/utils/clientcache"
)

// GeminiGenerator calls the Gemini GenerateContent API. Parts flagged
// as thought are surfaced as thinking chunks.
type GeminiGenerator struct {
	cfg         models.GenerationConfig
	clientCache *clientcache.Cache[*genai.Client]
}

func NewGeminiGenerator(cfg models.GenerationConfig) *GeminiGenerator {
	return &GeminiGenerator{
		cfg:         cfg,
		clientCache: clientcache.NewCache[*genai.Client](),
	}
}

func (g *GeminiGenerator) client(ctx context.Context) (*genai.Client, error) {
	hash, err := configHash(g.cfg)
	if err != nil {
		fiberlog.Warnf("Failed to generate config hash: %v, creating new client without caching", err)
		return g.buildClient(ctx)
	}

	return g.clientCache.GetOrCreate(hash, func() (*genai.Client, error) {
		fiberlog.Debugf("Creating new Gemini client (config hash: %s)", hash[:8])
		return g.buildClient(ctx)
	})
}

func (g *GeminiGenerator) buildClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, models.NewProviderError("gemini", "failed to create client", err)
	}
	return client, nil
}

func (g *GeminiGenerator) request(system, user string) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if g.cfg.Temperature != 0 {
		temp := float32(g.cfg.Temperature)
		config.Temperature = &temp
	}
	if g.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.cfg.MaxTokens)
	}
	return contents, config
}

func (g *GeminiGenerator) Invoke(ctx context.Context, system, user string) (*Output, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	contents, config := g.request(system, user)
	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		fiberlog.Errorf("Gemini request failed after %v: %v", time.Since(start), err)
		return nil, models.NewProviderError("gemini", "generate request failed", err)
	}

	var out Output
	appendResponse(&out, resp)
	return &out, nil
}

func (g *GeminiGenerator) Stream(ctx context.Context, system, user string) (Stream, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	contents, config := g.request(system, user)
	var seq iter.Seq2[*genai.GenerateContentResponse, error] = client.Models.GenerateContentStream(ctx, g.cfg.Model, contents, config)
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}, nil
}

func appendResponse(out *Output, resp *genai.GenerateContentResponse) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text == "" {
			continue
		}
		if part.Thought {
			out.Thinking += part.Text
		} else {
			out.Content += part.Text
		}
	}
}

type geminiStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	pending []Chunk
}

func (s *geminiStream) Next() (Chunk, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}

		resp, err, ok := s.next()
		if !ok {
			return Chunk{}, io.EOF
		}
		if err != nil {
			return Chunk{}, models.NewProviderError("gemini", "stream failed", err)
		}

		var out Output
		appendResponse(&out, resp)
		if out.Thinking != "" {
			s.pending = append(s.pending, Chunk{Kind: ChunkThinking, Text: out.Thinking})
		}
		if out.Content != "" {
			s.pending = append(s.pending, Chunk{Kind: ChunkContent, Text: out.Content})
		}
	}
}

func (s *geminiStream) Close() error {
	s.stop()
	return nil
}
