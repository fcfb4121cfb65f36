// Package guardrails wraps external reasoning models into binary
// allow/deny decisions over text. Classifier failures never propagate as
// errors; they resolve through the configured fail-open policy so a
// misbehaving safety backend cannot become an outage.
package guardrails

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/utils/clientcache"

	"github.com/openai/openai-go/v2"
	openaiOption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

const defaultTimeout = 5 * time.Second

// Result is a classifier verdict. Allowed is the decision; Reason and
// WasTimeout let callers distinguish "classifier said no" from
// "classifier was unreachable" without inspecting error types.
type Result struct {
	Allowed    bool
	Score      int
	Reason     string
	WasTimeout bool
}

// Classifier issues an allow/deny verdict over a piece of text
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

// chatBackend issues one chat call against an OpenAI-compatible endpoint
// with a bounded timeout; both guard instances share this.
type chatBackend struct {
	cfg         models.GuardrailConfig
	clientCache *clientcache.Cache[*openai.Client]
}

func newChatBackend(cfg models.GuardrailConfig) *chatBackend {
	return &chatBackend{
		cfg:         cfg,
		clientCache: clientcache.NewCache[*openai.Client](),
	}
}

func (b *chatBackend) timeout() time.Duration {
	if b.cfg.TimeoutSeconds > 0 {
		return time.Duration(b.cfg.TimeoutSeconds * float64(time.Second))
	}
	return defaultTimeout
}

// failOpen defaults to true: an unreachable safety backend allows the
// request rather than taking the service down. Configurable policy.
func (b *chatBackend) failOpen() bool {
	if b.cfg.FailOpen == nil {
		return true
	}
	return *b.cfg.FailOpen
}

func (b *chatBackend) client() (*openai.Client, error) {
	apiKeyHash := sha256.Sum256([]byte(b.cfg.APIKey))
	cacheKey := fmt.Sprintf("%s:%x", b.cfg.BaseURL, apiKeyHash[:8])

	return b.clientCache.GetOrCreate(cacheKey, func() (*openai.Client, error) {
		opts := []openaiOption.RequestOption{
			openaiOption.WithAPIKey(b.cfg.APIKey),
		}
		if b.cfg.BaseURL != "" {
			opts = append(opts, openaiOption.WithBaseURL(b.cfg.BaseURL))
		}
		client := openai.NewClient(opts...)
		return &client, nil
	})
}

// invoke returns the model's raw reply to (systemPrompt, text)
func (b *chatBackend) invoke(ctx context.Context, systemPrompt, text string) (string, error) {
	client, err := b.client()
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	completion, err := client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Model: shared.ChatModel(b.cfg.Model),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("classifier returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
