// Package httpapi wires the HTTP transport (Gin) to the webhook pipeline.
// It centralizes tracing, correlation IDs, logging, panic recovery, metrics,
// rate limiting, CORS, and security headers around a deliberately small
// surface: the webhook callback plus health and metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-line-agent/internal/config"
	"github.com/tbourn/go-line-agent/internal/http/handlers"
	"github.com/tbourn/go-line-agent/internal/http/middleware"
)

// RegisterRoutes attaches all middleware and endpoints to the engine.
//
// Middleware order:
//  1. OpenTelemetry tracing
//  2. RequestID
//  3. Structured logging
//  4. Panic recovery
//  5. Body size limit
//  6. Prometheus metrics
//  7. Rate limiter (per client IP)
//  8. CORS
//  9. Security headers
func RegisterRoutes(r *gin.Engine, dispatcher handlers.EventDispatcher, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	r.Use(rl.Handler())

	// The webhook has no browser clients; CORS matters only for the health
	// and metrics endpoints when dashboards poll them cross-origin.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:   []string{"X-Request-ID", "Content-Length"},
			MaxAge:          12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	wh := handlers.NewWebhookHandler(cfg.Line.ChannelSecret, dispatcher)
	r.POST("/callback", wh.Callback)
}

// limitBody caps the request body size using http.MaxBytesReader; oversized
// bodies make downstream reads fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
