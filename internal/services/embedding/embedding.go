// Package embedding maps text to fixed-length vectors via an external
// embedding model. The endpoint is OpenAI-compatible so self-hosted
// deployments work through base_url.
package embedding

import "context"

// Embedder produces a fixed-dimension vector for a piece of text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
