package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-line-agent/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestSaveConversation_PersistsRecordAndEmbedding(t *testing.T) {
	db := newTestDB(t, &domain.ChatRecord{}, &domain.ChatEmbedding{})

	rec := NewChatRecord(domain.ScopePersonal, "u1", nil, "你好", 0.8, domain.SentimentPositive)
	vec := []float64{0.1, -0.2, 0.3}

	if err := SaveConversation(context.Background(), db, rec, vec); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	var gotRec domain.ChatRecord
	if err := db.First(&gotRec, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if gotRec.Text != "你好" || gotRec.Scope != domain.ScopePersonal || gotRec.SentimentLabel != domain.SentimentPositive {
		t.Fatalf("unexpected record: %+v", gotRec)
	}

	var emb domain.ChatEmbedding
	if err := db.First(&emb, "chat_record_id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load embedding: %v", err)
	}
	var gotVec []float64
	if err := json.Unmarshal([]byte(emb.Vector), &gotVec); err != nil {
		t.Fatalf("decode vector: %v", err)
	}
	if len(gotVec) != 3 || gotVec[1] != -0.2 {
		t.Fatalf("unexpected vector: %v", gotVec)
	}
}

func TestSaveConversation_RollsBackRecordWhenEmbeddingInsertFails(t *testing.T) {
	// The embeddings table is deliberately not migrated, so the second insert
	// of the pair fails and the whole transaction must roll back.
	db := newTestDB(t, &domain.ChatRecord{})

	rec := NewChatRecord(domain.ScopeGroup, "u1", strPtr("g1"), "大家好", 0.1, domain.SentimentNeutral)
	if err := SaveConversation(context.Background(), db, rec, []float64{1, 2}); err == nil {
		t.Fatal("expected SaveConversation to fail without embeddings table")
	}

	var n int64
	if err := db.Model(&domain.ChatRecord{}).Count(&n).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if n != 0 {
		t.Fatalf("chat record survived a failed embedding insert: count=%d", n)
	}
}

func TestSaveConversation_GroupScopeKeepsGroupID(t *testing.T) {
	db := newTestDB(t, &domain.ChatRecord{}, &domain.ChatEmbedding{})

	rec := NewChatRecord(domain.ScopeGroup, "u2", strPtr("g9"), "哈囉", -0.4, domain.SentimentNegative)
	if err := SaveConversation(context.Background(), db, rec, []float64{0}); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	var got domain.ChatRecord
	if err := db.First(&got, "id = ?", rec.ID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if got.GroupID == nil || *got.GroupID != "g9" {
		t.Fatalf("GroupID = %v, want g9", got.GroupID)
	}
}

func strPtr(s string) *string { return &s }
