package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/conversations"
	"github.com/ragline-ai/ragline/internal/services/ingest"
	"github.com/ragline-ai/ragline/internal/services/vectorindex"
	"github.com/ragline-ai/ragline/internal/storage"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func testApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := storage.New(models.DatabaseConfig{
		Type:     models.SQLite,
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	conversationSvc := conversations.NewService(db)
	ingestSvc := ingest.NewService(vectorindex.NewMemoryIndex(), fixedEmbedder{}, models.KnowledgeConfig{
		Collection: "knowledge_base",
		ChunkSize:  1000,
	}, 2)

	app := fiber.New()
	conversationHandler := NewConversationHandler(conversationSvc)
	knowledgeHandler := NewKnowledgeHandler(ingestSvc)
	healthHandler := NewHealthHandler(db, nil)

	app.Get("/health", healthHandler.HealthCheck)
	v1 := app.Group("/v1")
	group := v1.Group("/conversations")
	group.Get("/", conversationHandler.List)
	group.Post("/", conversationHandler.Create)
	group.Get("/:id", conversationHandler.Get)
	group.Patch("/:id", conversationHandler.Rename)
	group.Delete("/:id", conversationHandler.Delete)
	v1.Post("/knowledge/documents", knowledgeHandler.Ingest)

	return app
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	_ = resp.Body.Close()
}

func TestConversationLifecycle(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/conversations/", map[string]string{"title": "first chat"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Conversation
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)
	assert.Equal(t, "first chat", created.Title)

	resp, err = app.Test(jsonRequest(http.MethodGet, "/v1/conversations/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []models.Conversation
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)

	resp, err = app.Test(jsonRequest(http.MethodPatch, "/v1/conversations/1", map[string]string{"title": "renamed"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var renamed models.Conversation
	decodeBody(t, resp, &renamed)
	assert.Equal(t, "renamed", renamed.Title)

	resp, err = app.Test(jsonRequest(http.MethodDelete, "/v1/conversations/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodGet, "/v1/conversations/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateConversationRequiresTitle(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/conversations/", map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetConversationRejectsBadID(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/v1/conversations/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestKnowledgeIngest(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/knowledge/documents", map[string]string{
		"source": "handbook",
		"text":   "FastAPI is a web framework for building APIs with Python.",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "handbook", body["source"])
	assert.Equal(t, float64(1), body["chunks_stored"])
}

func TestKnowledgeIngestRequiresText(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/v1/knowledge/documents", map[string]string{"source": "x"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRespondErrorMapsDeadlineToTimeout(t *testing.T) {
	app := fiber.New()
	app.Get("/slow", func(c *fiber.Ctx) error {
		return respondError(c, context.DeadlineExceeded)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var body struct {
		Error struct {
			Type      string `json:"type"`
			Retryable bool   `json:"retryable"`
		} `json:"error"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, string(models.ErrorTypeTimeout), body.Error.Type)
	assert.True(t, body.Error.Retryable)
}

func TestHealthReportsDisabledRedis(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Checks struct {
			Database string `json:"database"`
			Redis    string `json:"redis"`
		} `json:"checks"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks.Database)
	assert.Equal(t, "disabled", body.Checks.Redis)
}
