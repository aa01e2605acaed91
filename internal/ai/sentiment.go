package ai

import (
	"context"
	"net/http"
	"time"
)

// SentimentClient calls a sentiment-analysis HTTP service.
type SentimentClient struct {
	url  string
	http *http.Client
}

// NewSentimentClient builds a SentimentClient for the given endpoint.
func NewSentimentClient(url string, timeout time.Duration) *SentimentClient {
	return &SentimentClient{url: url, http: newHTTPClient(timeout)}
}

// Analyze posts the text and returns the service's score and label.
func (c *SentimentClient) Analyze(ctx context.Context, text string) (Sentiment, error) {
	payload := struct {
		Text string `json:"text"`
	}{Text: text}

	var out Sentiment
	if err := postJSON(ctx, c.http, c.url, nil, payload, &out); err != nil {
		return Sentiment{}, err
	}
	return out, nil
}
