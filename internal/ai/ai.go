// Package ai defines the contracts for the external analysis and generation
// services the pipeline depends on, plus HTTP clients implementing them. The
// services are opaque; only their request/response shapes are known here.
// Every method takes a context and returns an explicit error so callers can
// apply their own deadlines and fallbacks.
package ai

import "context"

// Sentiment is the result of analyzing one message.
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"` // positive|neutral|negative
}

// Product is one recommendation result.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
}

// SentimentAnalyzer scores the sentiment of a text.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (Sentiment, error)
}

// Embedder maps a text to its embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a free-form reply for a user's message.
type Generator interface {
	Generate(ctx context.Context, actorID, text string) (string, error)
}

// Recommender returns products matching a query, optionally narrowed to the
// given category names. An empty result is not an error.
type Recommender interface {
	Recommend(ctx context.Context, query string, categories []string) ([]Product, error)
}
