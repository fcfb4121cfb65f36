package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ragline-ai/ragline/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const defaultQdrantTimeout = 15 * time.Second

// QdrantIndex is a minimal REST client to Qdrant. It assumes cosine
// distance for every collection.
type QdrantIndex struct {
	url    string
	apiKey string
	client *http.Client
}

// NewQdrantIndex creates an index backed by a Qdrant REST endpoint
func NewQdrantIndex(cfg models.QdrantConfig) *QdrantIndex {
	timeout := defaultQdrantTimeout
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return &QdrantIndex{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if missing. Qdrant returns 200
// when the collection already exists with the same schema.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	return q.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", q.url, name), body, nil)
}

// Upsert inserts points, waiting for the write to be applied
func (q *QdrantIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	payload := make([]map[string]any, len(points))
	for i, p := range points {
		pointPayload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			pointPayload[k] = v
		}
		pointPayload["created_at"] = float64(p.CreatedAt.UnixNano()) / float64(time.Second)
		payload[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": pointPayload,
		}
	}
	body := map[string]any{"points": payload}
	return q.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, collection), body, nil)
}

// Search runs a similarity query with a score threshold
func (q *QdrantIndex) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]ScoredPoint, error) {
	if limit <= 0 {
		limit = 1
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", q.url, collection)
	if err := q.doJSON(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}

	results := make([]ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, ScoredPoint{
			ID:      fmt.Sprintf("%v", r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

// DeleteOlderThan removes points whose created_at payload field predates cutoff
func (q *QdrantIndex) DeleteOlderThan(ctx context.Context, collection string, cutoff time.Time) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key": "created_at",
					"range": map[string]any{
						"lt": float64(cutoff.UnixNano()) / float64(time.Second),
					},
				},
			},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, collection)
	return q.doJSON(ctx, http.MethodPost, url, body, nil)
}

func (q *QdrantIndex) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return models.NewProviderError("qdrant", fmt.Sprintf("%s %s failed", method, url), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fiberlog.Debugf("qdrant: failed to close response body: %v", cerr)
		}
	}()

	if resp.StatusCode >= 300 {
		return models.NewProviderError("qdrant", fmt.Sprintf("%s %s returned %s", method, url, resp.Status), nil)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return models.NewProviderError("qdrant", "failed to decode response", err)
		}
	}
	return nil
}
