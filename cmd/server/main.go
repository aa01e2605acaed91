// Command server runs the LINE conversational agent: it loads configuration,
// opens the store, wires the analysis clients and the webhook pipeline, and
// serves the HTTP ingress with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-line-agent/internal/ai"
	"github.com/tbourn/go-line-agent/internal/bot"
	"github.com/tbourn/go-line-agent/internal/catalog"
	"github.com/tbourn/go-line-agent/internal/config"
	httpapi "github.com/tbourn/go-line-agent/internal/http"
	"github.com/tbourn/go-line-agent/internal/line"
	"github.com/tbourn/go-line-agent/internal/observability"
	"github.com/tbourn/go-line-agent/internal/repo"
	"github.com/tbourn/go-line-agent/internal/retry"
	"github.com/tbourn/go-line-agent/internal/sysutil"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// The keyword catalog must be structurally valid before the first event
	// arrives; a broken catalog is a deployment error, not a runtime branch.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("keyword catalog unusable")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("opentelemetry setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	messenger := line.NewClient(cfg.Line.APIBaseURL, cfg.Line.AccessToken, cfg.Line.Timeout)

	var generator ai.Generator
	switch cfg.AI.GenerativeBackend {
	case "model":
		generator = ai.NewModelClient(cfg.AI.ModelURL, cfg.AI.ModelKey, cfg.AI.ModelName, "", cfg.AI.Timeout)
	default:
		generator = ai.NewAssistantClient(cfg.AI.AssistantURL, cfg.AI.AssistantKey, cfg.AI.AssistantModel, "", cfg.AI.Timeout)
	}

	policy := retry.Policy{
		MaxAttempts:  cfg.Pipeline.RetryMaxAttempts,
		InitialDelay: cfg.Pipeline.RetryInitialDelay,
		Factor:       cfg.Pipeline.RetryFactor,
	}

	processor := bot.NewProcessor(bot.ProcessorConfig{
		DB:             db,
		Catalog:        cat,
		Sentiment:      ai.NewSentimentClient(cfg.AI.SentimentURL, cfg.AI.Timeout),
		Embedder:       ai.NewEmbeddingClient(cfg.AI.EmbeddingURL, cfg.AI.EmbeddingKey, cfg.AI.EmbeddingModel, cfg.AI.Timeout),
		Generator:      generator,
		Recommender:    ai.NewRecommenderClient(cfg.AI.RecommenderURL, cfg.AI.Timeout),
		Messenger:      messenger,
		Retry:          policy,
		StatusQuery:    cfg.Pipeline.StatusQuery,
		SearchTriggers: cfg.Pipeline.SearchTriggers,
	})

	dispatcher := bot.NewDispatcher(
		processor, db, messenger, policy,
		cfg.Pipeline.DedupWindow, cfg.Pipeline.ProcessTimeout,
	)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.AI.GenerativeBackend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
