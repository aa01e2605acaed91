package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// EmbeddingClient calls an embeddings endpoint with the common
// `{"input": [...], "model": ...}` request and `{"data": [{"embedding":
// [...]}]}` response shape.
type EmbeddingClient struct {
	url   string
	key   string
	model string
	http  *http.Client
}

// NewEmbeddingClient builds an EmbeddingClient for the given endpoint,
// API key, and model name.
func NewEmbeddingClient(url, key, model string, timeout time.Duration) *EmbeddingClient {
	return &EmbeddingClient{url: url, key: key, model: model, http: newHTTPClient(timeout)}
}

// Embed returns the embedding vector for one text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	payload := struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{
		Input: []string{text},
		Model: c.model,
	}

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}

	headers := map[string]string{"Authorization": "Bearer " + c.key}
	if err := postJSON(ctx, c.http, c.url, headers, payload, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("ai: embedding response carried no vector")
	}
	return out.Data[0].Embedding, nil
}
