// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the conversation write path: the
// transactional pair-insert of a chat record and its embedding vector.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-line-agent/internal/domain"
)

// NewChatRecord assembles an unsaved ChatRecord for the given message.
// groupID must be nil for personal scope.
func NewChatRecord(scope, actorID string, groupID *string, text string, score float64, label string) *domain.ChatRecord {
	return &domain.ChatRecord{
		ID:             uuid.NewString(),
		Scope:          scope,
		ActorID:        actorID,
		GroupID:        groupID,
		Text:           text,
		SentimentScore: score,
		SentimentLabel: label,
		CreatedAt:      time.Now().UTC(),
	}
}

// InsertChatRecord inserts a chat record within the given transaction handle.
func InsertChatRecord(ctx context.Context, tx *gorm.DB, rec *domain.ChatRecord) error {
	return tx.WithContext(ctx).Create(rec).Error
}

// InsertEmbedding inserts the embedding row for chatRecordID within the given
// transaction handle. The vector is serialized as a JSON array.
func InsertEmbedding(ctx context.Context, tx *gorm.DB, chatRecordID string, vector []float64) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	emb := &domain.ChatEmbedding{
		ID:           uuid.NewString(),
		ChatRecordID: chatRecordID,
		Vector:       string(raw),
		CreatedAt:    time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(emb).Error
}

// SaveConversation inserts rec and its embedding vector in one transaction.
// Either both rows commit or neither does: a failed embedding insert rolls
// the chat record back, so no record is ever visible without its vector.
func SaveConversation(ctx context.Context, db *gorm.DB, rec *domain.ChatRecord, vector []float64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := InsertChatRecord(ctx, tx, rec); err != nil {
			return err
		}
		return InsertEmbedding(ctx, tx, rec.ID, vector)
	})
}
