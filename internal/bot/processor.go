package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-line-agent/internal/ai"
	"github.com/tbourn/go-line-agent/internal/catalog"
	"github.com/tbourn/go-line-agent/internal/domain"
	"github.com/tbourn/go-line-agent/internal/line"
	"github.com/tbourn/go-line-agent/internal/repo"
	"github.com/tbourn/go-line-agent/internal/retry"
)

var tracer = otel.Tracer("go-line-agent/bot")

// errCompose marks a response-composition failure inside the store
// transaction so it can be told apart from a persistence failure after
// rollback.
var errCompose = errors.New("bot: response composition failed")

// Messenger is the outbound side of the chat platform. The HTTP client in
// the line package implements it; tests substitute fakes.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, to, text string) error
	GetProfile(ctx context.Context, userID string) (line.Profile, error)
}

// ProcessorConfig carries the processor's collaborators and tunables.
type ProcessorConfig struct {
	DB          *gorm.DB
	Catalog     *catalog.Catalog
	Sentiment   ai.SentimentAnalyzer
	Embedder    ai.Embedder
	Generator   ai.Generator
	Recommender ai.Recommender
	Messenger   Messenger
	Retry       retry.Policy

	// StatusQuery is the literal command for the package report.
	StatusQuery string
	// SearchTriggers route a message to product search when any is contained
	// in the text.
	SearchTriggers []string
}

// Processor runs the per-message pipeline: analyze, persist atomically,
// compose, deliver. One Processor serves all workers; it holds no per-event
// state.
type Processor struct {
	db          *gorm.DB
	catalog     *catalog.Catalog
	sentiment   ai.SentimentAnalyzer
	embedder    ai.Embedder
	generator   ai.Generator
	recommender ai.Recommender
	messenger   Messenger
	policy      retry.Policy

	statusQuery    string
	searchTriggers []string

	catalogWarn sync.Once
}

// NewProcessor builds a Processor from its configuration.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{
		db:             cfg.DB,
		catalog:        cfg.Catalog,
		sentiment:      cfg.Sentiment,
		embedder:       cfg.Embedder,
		generator:      cfg.Generator,
		recommender:    cfg.Recommender,
		messenger:      cfg.Messenger,
		policy:         cfg.Retry,
		statusQuery:    cfg.StatusQuery,
		searchTriggers: cfg.SearchTriggers,
	}
}

// Process runs one text-message event through the pipeline and returns its
// terminal outcome.
//
// Group messages are analyzed and persisted but never replied to. Personal
// messages get exactly one reply: the inbound record commits only after the
// reply is composed, and delivery starts only after the commit, so a
// delivery failure never loses the persisted message and a persistence retry
// never sends twice.
func (p *Processor) Process(ctx context.Context, ev line.Event) Outcome {
	ctx, span := tracer.Start(ctx, "bot.Process")
	out := p.run(ctx, ev)
	span.SetAttributes(attribute.String("outcome", out.String()))
	span.End()

	processOutcomes.WithLabelValues(out.String()).Inc()
	return out
}

func (p *Processor) run(ctx context.Context, ev line.Event) Outcome {
	text := ev.Message.Text
	actorID := ev.Source.UserID
	isGroup := ev.IsGroup()

	scope := domain.ScopePersonal
	var groupID *string
	if isGroup {
		scope = domain.ScopeGroup
		gid := ev.SourceID()
		groupID = &gid
	}

	sent, err := p.sentiment.Analyze(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("actor_id", actorID).Msg("sentiment analysis failed")
		p.apologize(ctx, ev, isGroup, apologySystem)
		return OutcomeAnalysisFailed
	}
	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		log.Error().Err(err).Str("actor_id", actorID).Msg("embedding failed")
		p.apologize(ctx, ev, isGroup, apologySystem)
		return OutcomeAnalysisFailed
	}

	rec := repo.NewChatRecord(scope, actorID, groupID, text, sent.Score, sent.Label)

	// Group messages are stored silently as the record/embedding pair. For
	// personal messages one transaction spans the user upsert, the pair, and
	// reply composition; a compose failure rolls the inserts back, so an
	// unanswerable message is not recorded as handled.
	var reply string
	var txErr error
	if isGroup {
		txErr = repo.SaveConversation(ctx, p.db, rec, vector)
	} else {
		txErr = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, uerr := repo.EnsureUser(ctx, tx, actorID, ""); uerr != nil {
				return uerr
			}
			if ierr := repo.InsertChatRecord(ctx, tx, rec); ierr != nil {
				return ierr
			}
			if ierr := repo.InsertEmbedding(ctx, tx, rec.ID, vector); ierr != nil {
				return ierr
			}
			composed, cerr := p.composeReply(ctx, tx, actorID, text)
			if cerr != nil {
				return fmt.Errorf("%w: %v", errCompose, cerr)
			}
			reply = composed
			return nil
		})
	}
	if txErr != nil {
		if errors.Is(txErr, errCompose) {
			log.Error().Err(txErr).Str("actor_id", actorID).Msg("response composition failed")
			p.apologize(ctx, ev, isGroup, apologySystem)
			return OutcomeAnalysisFailed
		}
		log.Error().Err(txErr).Str("actor_id", actorID).Str("scope", scope).Msg("conversation persistence failed")
		p.apologize(ctx, ev, isGroup, apologyStore)
		return OutcomePersistenceFailed
	}

	if isGroup {
		log.Debug().Str("group_id", *groupID).Str("record_id", rec.ID).Msg("group message recorded")
		return OutcomeSuccess
	}

	if derr := retry.Do(ctx, p.policy, func() error {
		return p.messenger.Reply(ctx, ev.ReplyToken, reply)
	}); derr != nil {
		log.Error().Err(derr).Str("actor_id", actorID).Str("record_id", rec.ID).
			Msg("reply delivery exhausted, record kept")
		return OutcomeDeliveryExhausted
	}
	return OutcomeSuccess
}

// composeReply picks exactly one response strategy: the status report for the
// literal status command, product search when a trigger word is present,
// otherwise the generative backend.
func (p *Processor) composeReply(ctx context.Context, tx *gorm.DB, actorID, text string) (string, error) {
	if strings.TrimSpace(text) == p.statusQuery {
		pkgs, err := repo.ListOpenPackages(ctx, tx, actorID)
		if err != nil {
			return "", err
		}
		return formatPackageReport(pkgs), nil
	}
	if containsAny(text, p.searchTriggers) {
		return p.composeSearch(ctx, text)
	}
	return p.generator.Generate(ctx, actorID, text)
}

// composeSearch classifies the text and asks the recommender, narrowed to
// the matched categories. A missing or empty catalog degrades to an
// uncategorized search and is reported once per process.
func (p *Processor) composeSearch(ctx context.Context, text string) (string, error) {
	var categories []string
	if p.catalog == nil || len(p.catalog.Categories) == 0 {
		p.catalogWarn.Do(func() {
			log.Warn().Msg("keyword catalog is empty, product search runs uncategorized")
		})
	} else if matches := p.catalog.Classify(text); len(matches) > 0 {
		categories = make([]string, 0, len(matches))
		for name := range matches {
			categories = append(categories, name)
		}
		sort.Strings(categories)
	}

	products, err := p.recommender.Recommend(ctx, text, categories)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return noResultsReply, nil
	}
	return formatSearchResults(products), nil
}

// apologize makes a best-effort error reply for personal messages. Group
// failures stay silent and delivery errors here are logged only.
func (p *Processor) apologize(ctx context.Context, ev line.Event, isGroup bool, text string) {
	if isGroup || ev.ReplyToken == "" {
		return
	}
	if err := p.messenger.Reply(ctx, ev.ReplyToken, text); err != nil {
		log.Warn().Err(err).Str("actor_id", ev.Source.UserID).Msg("apology reply failed")
	}
}
