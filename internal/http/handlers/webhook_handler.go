package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-line-agent/internal/bot"
	"github.com/tbourn/go-line-agent/internal/http/middleware"
	"github.com/tbourn/go-line-agent/internal/line"
)

// EventDispatcher handles one validated webhook event. Implemented by
// bot.Dispatcher.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev line.Event) bot.Outcome
}

// WebhookHandler is the platform ingress. It owns signature validation and
// envelope decoding; everything after that belongs to the dispatcher.
type WebhookHandler struct {
	secret     string
	dispatcher EventDispatcher
}

// NewWebhookHandler builds the handler for the given channel secret.
func NewWebhookHandler(secret string, d EventDispatcher) *WebhookHandler {
	return &WebhookHandler{secret: secret, dispatcher: d}
}

// Callback handles POST /callback.
//
// The raw body is read first because the signature covers the exact bytes on
// the wire. An invalid or missing signature rejects the request before any
// event enters the pipeline. Once past validation the request is always
// acknowledged with 200 "OK" exactly once, whatever the per-event outcomes:
// the platform retries non-2xx responses, and internal failures are already
// handled (and logged) inside the pipeline.
func (h *WebhookHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	signature := c.GetHeader("X-Line-Signature")
	if !line.ValidateSignature(h.secret, body, signature) {
		fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "signature validation failed")
		return
	}

	var envelope line.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook envelope")
		return
	}

	lg := middleware.LoggerFrom(c)
	for _, ev := range envelope.Events {
		out := h.dispatcher.Dispatch(c.Request.Context(), ev)
		lg.Info().
			Str("event_type", ev.Type).
			Str("source_id", ev.SourceID()).
			Str("outcome", out.String()).
			Msg("webhook event handled")
	}

	c.String(http.StatusOK, "OK")
}
