// Package generation calls the configured LLM provider to produce the
// assistant reply. All providers expose the same buffered and streaming
// surface; thinking output is kept separate from answer content so
// callers can record and render it independently.
package generation

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ragline-ai/ragline/internal/models"
)

// ChunkKind distinguishes reasoning output from answer content
type ChunkKind string

const (
	ChunkThinking ChunkKind = "thinking"
	ChunkContent  ChunkKind = "content"
)

// Chunk is one streamed fragment of model output
type Chunk struct {
	Kind ChunkKind
	Text string
}

// Output is a complete buffered model reply
type Output struct {
	Content  string
	Thinking string
}

// Stream yields model output chunks in arrival order. Next returns
// io.EOF after the final chunk; Close releases the underlying
// connection and is safe to call more than once.
type Stream interface {
	Next() (Chunk, error)
	Close() error
}

// Generator produces replies from a system context and user prompt
type Generator interface {
	Invoke(ctx context.Context, system, user string) (*Output, error)
	Stream(ctx context.Context, system, user string) (Stream, error)
}

// New builds the generator for the configured provider
func New(cfg models.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case models.ProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	case models.ProviderAnthropic:
		return NewAnthropicGenerator(cfg), nil
	case models.ProviderGemini:
		return NewGeminiGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}

// configHash derives a stable cache key from the connection-relevant
// parts of the config so clients are reused across requests.
func configHash(cfg models.GenerationConfig) (string, error) {
	type configForHash struct {
		BaseURL    string
		APIKeyHash string
	}

	apiKeyHash := sha256.Sum256([]byte(cfg.APIKey))
	hashConfig := configForHash{
		BaseURL:    cfg.BaseURL,
		APIKeyHash: fmt.Sprintf("%x", apiKeyHash[:8]),
	}

	configJSON, err := json.Marshal(hashConfig)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(configJSON)
	return fmt.Sprintf("%x", hash[:16]), nil
}

// Collect drains a stream into a buffered Output. Used by providers
// whose non-streaming path is implemented on top of streaming, and by
// tests.
func Collect(s Stream) (*Output, error) {
	defer s.Close()

	var out Output
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return &out, nil
		}
		if err != nil {
			return nil, err
		}
		switch chunk.Kind {
		case ChunkThinking:
			out.Thinking += chunk.Text
		case ChunkContent:
			out.Content += chunk.Text
		}
	}
}
