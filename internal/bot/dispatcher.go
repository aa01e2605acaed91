package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-line-agent/internal/dedup"
	"github.com/tbourn/go-line-agent/internal/line"
	"github.com/tbourn/go-line-agent/internal/repo"
	"github.com/tbourn/go-line-agent/internal/retry"
)

// Event types dispatched by the webhook.
const (
	eventMessage      = "message"
	eventFollow       = "follow"
	eventMemberJoined = "memberJoined"
)

// Dispatcher routes validated webhook events to the processor. It owns the
// dedup gate and the per-event processing deadline; no other component
// touches either.
type Dispatcher struct {
	gate      *dedup.Gate
	processor *Processor
	db        *gorm.DB
	messenger Messenger
	policy    retry.Policy
	timeout   time.Duration
}

// NewDispatcher builds a Dispatcher. window is the dedup suppression window
// and timeout bounds the processing of a single event.
func NewDispatcher(proc *Processor, db *gorm.DB, messenger Messenger, policy retry.Policy, window, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		gate:      dedup.NewGate(window),
		processor: proc,
		db:        db,
		messenger: messenger,
		policy:    policy,
		timeout:   timeout,
	}
}

// Dispatch handles one webhook event and returns its outcome. It never
// panics out: a panicking stage is logged with its stack and folded into a
// failure outcome so the webhook is still acknowledged exactly once.
func (d *Dispatcher) Dispatch(ctx context.Context, ev line.Event) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).
				Str("event_type", ev.Type).Msg("event processing panicked")
			out = OutcomeAnalysisFailed
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch ev.Type {
	case eventMessage:
		return d.handleMessage(ctx, ev)
	case eventFollow:
		return d.handleFollow(ctx, ev)
	case eventMemberJoined:
		return d.handleMemberJoined(ctx, ev)
	default:
		log.Debug().Str("event_type", ev.Type).Msg("event type ignored")
		return OutcomeSuccess
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, ev line.Event) Outcome {
	if ev.Message.Type != "text" || ev.Message.Text == "" {
		log.Debug().Str("message_type", ev.Message.Type).Msg("non-text message ignored")
		return OutcomeSuccess
	}

	key := dedup.Key(ev.SourceID(), ev.Message.Text, ev.Timestamp)
	if !d.gate.ShouldProcess(key, time.Now()) {
		log.Info().Str("source_id", ev.SourceID()).Msg("duplicate event suppressed")
		processOutcomes.WithLabelValues(OutcomeDuplicate.String()).Inc()
		return OutcomeDuplicate
	}
	return d.processor.Process(ctx, ev)
}

// handleFollow registers the new friend and greets them by display name.
// Re-follows refresh the stored name.
func (d *Dispatcher) handleFollow(ctx context.Context, ev line.Event) Outcome {
	userID := ev.Source.UserID

	var displayName string
	if profile, err := d.messenger.GetProfile(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("profile lookup failed on follow")
	} else {
		displayName = profile.DisplayName
	}

	if _, err := repo.EnsureUser(ctx, d.db, userID, displayName); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("user registration failed on follow")
		return OutcomePersistenceFailed
	}

	welcome := fmt.Sprintf(welcomeTemplate, displayName)
	if err := retry.Do(ctx, d.policy, func() error {
		return d.messenger.Reply(ctx, ev.ReplyToken, welcome)
	}); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("welcome delivery exhausted")
		return OutcomeDeliveryExhausted
	}
	log.Info().Str("user_id", userID).Str("display_name", displayName).Msg("user followed")
	return OutcomeSuccess
}

// handleMemberJoined upserts every member that joined the group. Failures
// for one member do not stop the others.
func (d *Dispatcher) handleMemberJoined(ctx context.Context, ev line.Event) Outcome {
	out := OutcomeSuccess
	for _, member := range ev.Joined.Members {
		if member.UserID == "" {
			continue
		}
		var displayName string
		if profile, err := d.messenger.GetProfile(ctx, member.UserID); err != nil {
			log.Warn().Err(err).Str("user_id", member.UserID).Msg("profile lookup failed on member join")
		} else {
			displayName = profile.DisplayName
		}
		if _, err := repo.EnsureUser(ctx, d.db, member.UserID, displayName); err != nil {
			log.Error().Err(err).Str("user_id", member.UserID).Msg("member registration failed")
			out = OutcomePersistenceFailed
			continue
		}
		log.Info().Str("user_id", member.UserID).Str("group_id", ev.Source.GroupID).Msg("member joined")
	}
	return out
}

// Broadcast pushes text to every registered user through the retrier and
// returns how many deliveries succeeded.
func (d *Dispatcher) Broadcast(ctx context.Context, text string) (int, error) {
	users, err := repo.ListUsers(ctx, d.db)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, u := range users {
		userID := u.ID
		if err := retry.Do(ctx, d.policy, func() error {
			return d.messenger.Push(ctx, userID, text)
		}); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("broadcast delivery exhausted")
			continue
		}
		delivered++
	}
	log.Info().Int("delivered", delivered).Int("total", len(users)).Msg("broadcast finished")
	return delivered, nil
}

// GateLen exposes the dedup gate's live entry count for health reporting.
func (d *Dispatcher) GateLen() int { return d.gate.Len() }
