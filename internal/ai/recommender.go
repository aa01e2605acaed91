package ai

import (
	"context"
	"net/http"
	"time"
)

// RecommenderClient calls a product-recommendation HTTP service.
type RecommenderClient struct {
	url  string
	http *http.Client
}

// NewRecommenderClient builds a RecommenderClient for the given endpoint.
func NewRecommenderClient(url string, timeout time.Duration) *RecommenderClient {
	return &RecommenderClient{url: url, http: newHTTPClient(timeout)}
}

// Recommend posts the query and matched category names and returns the
// service's product list. A nil or empty list means nothing matched.
func (c *RecommenderClient) Recommend(ctx context.Context, query string, categories []string) ([]Product, error) {
	payload := struct {
		Query      string   `json:"query"`
		Categories []string `json:"categories,omitempty"`
	}{Query: query, Categories: categories}

	var out struct {
		Products []Product `json:"products"`
	}
	if err := postJSON(ctx, c.http, c.url, nil, payload, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}
