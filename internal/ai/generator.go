package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AssistantClient generates replies through a messages-style API (system
// prompt plus a user turn, content blocks in the response).
type AssistantClient struct {
	url    string
	key    string
	model  string
	system string
	http   *http.Client
}

// NewAssistantClient builds an AssistantClient. The system prompt may be
// empty.
func NewAssistantClient(url, key, model, system string, timeout time.Duration) *AssistantClient {
	return &AssistantClient{url: url, key: key, model: model, system: system, http: newHTTPClient(timeout)}
}

type assistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate sends the user's text and returns the concatenated text blocks of
// the response.
func (c *AssistantClient) Generate(ctx context.Context, actorID, text string) (string, error) {
	payload := struct {
		Model     string             `json:"model"`
		MaxTokens int                `json:"max_tokens"`
		System    string             `json:"system,omitempty"`
		Messages  []assistantMessage `json:"messages"`
		Metadata  map[string]string  `json:"metadata,omitempty"`
	}{
		Model:     c.model,
		MaxTokens: 1024,
		System:    c.system,
		Messages:  []assistantMessage{{Role: "user", Content: text}},
	}
	if actorID != "" {
		payload.Metadata = map[string]string{"user_id": actorID}
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}

	headers := map[string]string{
		"x-api-key":         c.key,
		"anthropic-version": "2023-06-01",
	}
	if err := postJSON(ctx, c.http, c.url, headers, payload, &out); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", fmt.Errorf("ai: assistant response carried no text")
	}
	return reply, nil
}

// ModelClient generates replies through a chat-completions-style API.
type ModelClient struct {
	url    string
	key    string
	model  string
	system string
	http   *http.Client
}

// NewModelClient builds a ModelClient. The system prompt may be empty.
func NewModelClient(url, key, model, system string, timeout time.Duration) *ModelClient {
	return &ModelClient{url: url, key: key, model: model, system: system, http: newHTTPClient(timeout)}
}

// Generate sends the user's text and returns the first choice's content.
func (c *ModelClient) Generate(ctx context.Context, actorID, text string) (string, error) {
	msgs := []assistantMessage{}
	if c.system != "" {
		msgs = append(msgs, assistantMessage{Role: "system", Content: c.system})
	}
	msgs = append(msgs, assistantMessage{Role: "user", Content: text})

	payload := struct {
		Model    string             `json:"model"`
		Messages []assistantMessage `json:"messages"`
		User     string             `json:"user,omitempty"`
	}{
		Model:    c.model,
		Messages: msgs,
		User:     actorID,
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	headers := map[string]string{"Authorization": "Bearer " + c.key}
	if err := postJSON(ctx, c.http, c.url, headers, payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("ai: model response carried no choices")
	}
	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("ai: model response carried no text")
	}
	return reply, nil
}
