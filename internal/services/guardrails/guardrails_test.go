package guardrails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ragline-ai/ragline/internal/models"
)

// classifierServer mimics an OpenAI-compatible chat endpoint that always
// answers with the given content.
func classifierServer(t *testing.T, content string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "guard-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func guardConfig(baseURL string) models.GuardrailConfig {
	return models.GuardrailConfig{
		Model:   "guard-model",
		APIKey:  "test-key",
		BaseURL: baseURL,
	}
}

func TestInputGuardVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		allowed bool
	}{
		{"explicit true", "True", true},
		{"lowercase true in sentence", "the topic is valid: true", true},
		{"explicit false", "False", false},
		{"unrelated reply", "I cannot help with that", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := classifierServer(t, tt.reply, 0)
			guard := NewInputGuard(guardConfig(srv.URL))

			result := guard.Classify(context.Background(), "What is FastAPI?")
			assert.Equal(t, tt.allowed, result.Allowed)
			assert.False(t, result.WasTimeout)
		})
	}
}

func TestOutputGuardScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		score   int
		allowed bool
	}{
		{"safe score", "3", 3, true},
		{"boundary score blocked", "7", 7, false},
		{"critical score", "9", 9, false},
		{"score embedded in text", "Risk: 2 (safe)", 2, true},
		{"unparsable treated as max risk", "I cannot rate this", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := classifierServer(t, tt.reply, 0)
			guard := NewOutputGuard(guardConfig(srv.URL))

			result := guard.Classify(context.Background(), "some generated response")
			assert.Equal(t, tt.allowed, result.Allowed)
			assert.Equal(t, tt.score, result.Score)
		})
	}
}

func TestOutputGuardCustomThreshold(t *testing.T) {
	t.Parallel()

	srv := classifierServer(t, "5", 0)
	cfg := guardConfig(srv.URL)
	cfg.Threshold = 5
	guard := NewOutputGuard(cfg)

	result := guard.Classify(context.Background(), "response")
	assert.False(t, result.Allowed, "score equal to threshold is blocked")
}

func TestGuardTimeoutFailOpen(t *testing.T) {
	t.Parallel()

	srv := classifierServer(t, "False", 500*time.Millisecond)
	cfg := guardConfig(srv.URL)
	cfg.TimeoutSeconds = 0.05

	result := NewInputGuard(cfg).Classify(context.Background(), "prompt")
	assert.True(t, result.Allowed, "default policy fails open on timeout")
	assert.True(t, result.WasTimeout)
}

func TestGuardTimeoutFailClosed(t *testing.T) {
	t.Parallel()

	srv := classifierServer(t, "True", 500*time.Millisecond)
	cfg := guardConfig(srv.URL)
	cfg.TimeoutSeconds = 0.05
	failOpen := false
	cfg.FailOpen = &failOpen

	result := NewInputGuard(cfg).Classify(context.Background(), "prompt")
	assert.False(t, result.Allowed)
	assert.True(t, result.WasTimeout)
}

func TestGuardBackendErrorFailOpen(t *testing.T) {
	t.Parallel()

	srv := failingServer(t)
	guard := NewOutputGuard(guardConfig(srv.URL))

	result := guard.Classify(context.Background(), "response")
	assert.True(t, result.Allowed, "default policy fails open on backend errors")
	assert.False(t, result.WasTimeout)
	assert.NotEmpty(t, result.Reason)
}
