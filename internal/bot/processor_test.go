package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-line-agent/internal/ai"
	"github.com/tbourn/go-line-agent/internal/catalog"
	"github.com/tbourn/go-line-agent/internal/domain"
	"github.com/tbourn/go-line-agent/internal/line"
	"github.com/tbourn/go-line-agent/internal/repo"
	"github.com/tbourn/go-line-agent/internal/retry"
)

// ---- fakes ----

type fakeSentiment struct{ err error }

func (f *fakeSentiment) Analyze(context.Context, string) (ai.Sentiment, error) {
	if f.err != nil {
		return ai.Sentiment{}, f.err
	}
	return ai.Sentiment{Score: 0.7, Label: domain.SentimentPositive}, nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2}, nil
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

type fakeRecommender struct {
	gotQuery      string
	gotCategories []string
	products      []ai.Product
	err           error
}

func (f *fakeRecommender) Recommend(_ context.Context, query string, categories []string) ([]ai.Product, error) {
	f.gotQuery = query
	f.gotCategories = categories
	return f.products, f.err
}

type sentMessage struct {
	token string
	to    string
	text  string
}

type fakeMessenger struct {
	mu       sync.Mutex
	replies  []sentMessage
	pushes   []sentMessage
	failures int // first N reply attempts fail
	attempts int
	profiles map[string]string
}

func (f *fakeMessenger) Reply(_ context.Context, token, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("send failed")
	}
	f.replies = append(f.replies, sentMessage{token: token, text: text})
	return nil
}

func (f *fakeMessenger) Push(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, sentMessage{to: to, text: text})
	return nil
}

func (f *fakeMessenger) GetProfile(_ context.Context, userID string) (line.Profile, error) {
	if name, ok := f.profiles[userID]; ok {
		return line.Profile{UserID: userID, DisplayName: name}, nil
	}
	return line.Profile{}, errors.New("profile not found")
}

func (f *fakeMessenger) sentReplies() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.replies...)
}

// ---- helpers ----

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("bot_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Categories: []catalog.Category{
			{Name: "電器", ComplexProducts: []string{"咖啡機"}, SingleProducts: []string{"機"}},
		},
		CommonEvaluationWords: []string{"好"},
	}
}

type procFixture struct {
	db          *gorm.DB
	messenger   *fakeMessenger
	generator   *fakeGenerator
	recommender *fakeRecommender
	sentiment   *fakeSentiment
	embedder    *fakeEmbedder
	proc        *Processor
}

func newProcessor(t *testing.T) *procFixture {
	t.Helper()
	f := &procFixture{
		db:          newTestDB(t),
		messenger:   &fakeMessenger{},
		generator:   &fakeGenerator{reply: "generated"},
		recommender: &fakeRecommender{},
		sentiment:   &fakeSentiment{},
		embedder:    &fakeEmbedder{},
	}
	f.proc = NewProcessor(ProcessorConfig{
		DB:             f.db,
		Catalog:        testCatalog(),
		Sentiment:      f.sentiment,
		Embedder:       f.embedder,
		Generator:      f.generator,
		Recommender:    f.recommender,
		Messenger:      f.messenger,
		Retry:          retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Factor: 2},
		StatusQuery:    "貨物狀況",
		SearchTriggers: []string{"找", "搜尋", "查詢", "推薦", "有賣", "有沒有"},
	})
	return f
}

func personalEvent(text string) line.Event {
	return line.Event{
		Type:       "message",
		ReplyToken: "rt-1",
		Timestamp:  1700000000000,
		Source:     line.Source{Type: "user", UserID: "U1"},
		Message:    line.Message{ID: "m1", Type: "text", Text: text},
	}
}

func groupEvent(text string) line.Event {
	ev := personalEvent(text)
	ev.Source = line.Source{Type: "group", UserID: "U1", GroupID: "G1"}
	ev.ReplyToken = ""
	return ev
}

func countRecords(t *testing.T, db *gorm.DB) (records, embeddings int64) {
	t.Helper()
	if err := db.Model(&domain.ChatRecord{}).Count(&records).Error; err != nil {
		t.Fatalf("count records: %v", err)
	}
	if err := db.Model(&domain.ChatEmbedding{}).Count(&embeddings).Error; err != nil {
		t.Fatalf("count embeddings: %v", err)
	}
	return records, embeddings
}

// ---- tests ----

func TestProcess_StatusQueryBuildsPackageReport(t *testing.T) {
	f := newProcessor(t)
	ctx := context.Background()

	shipped := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if _, err := repo.EnsureUser(ctx, f.db, "U1", "小明"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if err := repo.CreatePackage(ctx, f.db, &domain.Package{
		UserID:       "U1",
		Name:         "藍牙耳機",
		TrackingCode: "TW123456",
		Status:       domain.PackageStatusShipped,
		ShippingDate: &shipped,
	}); err != nil {
		t.Fatalf("create package: %v", err)
	}

	if out := f.proc.Process(ctx, personalEvent("貨物狀況")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}

	replies := f.messenger.sentReplies()
	if len(replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(replies))
	}
	got := replies[0].text
	for _, want := range []string{"藍牙耳機", "TW123456", "已出貨", "2024-03-05 14:30"} {
		if !strings.Contains(got, want) {
			t.Fatalf("reply missing %q:\n%s", want, got)
		}
	}
}

func TestProcess_StatusQueryNoPackages(t *testing.T) {
	f := newProcessor(t)

	if out := f.proc.Process(context.Background(), personalEvent("貨物狀況")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}
	replies := f.messenger.sentReplies()
	if len(replies) != 1 || replies[0].text != "您目前沒有進行中的包裹" {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestProcess_SearchNarrowsToMatchedCategories(t *testing.T) {
	f := newProcessor(t)
	f.recommender.products = []ai.Product{
		{ID: "p1", Name: "義式咖啡機", Price: 3990, URL: "https://shop/p1", Description: "半自動義式機"},
	}

	if out := f.proc.Process(context.Background(), personalEvent("有沒有賣咖啡機")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}
	if len(f.recommender.gotCategories) != 1 || f.recommender.gotCategories[0] != "電器" {
		t.Fatalf("categories = %v, want [電器]", f.recommender.gotCategories)
	}

	replies := f.messenger.sentReplies()
	if len(replies) != 1 || !strings.Contains(replies[0].text, "義式咖啡機") {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestProcess_SearchWithoutMatchRunsUncategorized(t *testing.T) {
	f := newProcessor(t)
	f.recommender.gotCategories = []string{"sentinel"}

	if out := f.proc.Process(context.Background(), personalEvent("推薦一些露營用品")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}
	if f.recommender.gotCategories != nil {
		t.Fatalf("categories = %v, want nil", f.recommender.gotCategories)
	}
	replies := f.messenger.sentReplies()
	if len(replies) != 1 || replies[0].text != "抱歉，目前沒有找到符合的商品。您可以試試其他關鍵字。" {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestProcess_MissingCatalogSearchDegradesUncategorized(t *testing.T) {
	f := newProcessor(t)
	f.proc.catalog = nil
	f.recommender.products = []ai.Product{
		{ID: "p1", Name: "露營燈", Price: 490, URL: "https://shop/p1", Description: "充電式"},
	}

	if out := f.proc.Process(context.Background(), personalEvent("推薦露營燈")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}
	if f.recommender.gotCategories != nil {
		t.Fatalf("categories = %v, want nil", f.recommender.gotCategories)
	}
	replies := f.messenger.sentReplies()
	if len(replies) != 1 || !strings.Contains(replies[0].text, "露營燈") {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestProcess_GroupMessagePersistsWithoutReply(t *testing.T) {
	f := newProcessor(t)

	if out := f.proc.Process(context.Background(), groupEvent("大家好")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}

	records, embeddings := countRecords(t, f.db)
	if records != 1 || embeddings != 1 {
		t.Fatalf("records = %d, embeddings = %d, want 1/1", records, embeddings)
	}
	var rec domain.ChatRecord
	if err := f.db.First(&rec).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Scope != domain.ScopeGroup || rec.GroupID == nil || *rec.GroupID != "G1" {
		t.Fatalf("record = %+v", rec)
	}
	if got := f.messenger.sentReplies(); len(got) != 0 {
		t.Fatalf("group message must not be replied to, got %+v", got)
	}
}

func TestProcess_AnalysisFailureSkipsPersistenceAndApologizes(t *testing.T) {
	f := newProcessor(t)
	f.sentiment.err = errors.New("service down")

	if out := f.proc.Process(context.Background(), personalEvent("hello")); out != OutcomeAnalysisFailed {
		t.Fatalf("outcome = %v", out)
	}

	records, embeddings := countRecords(t, f.db)
	if records != 0 || embeddings != 0 {
		t.Fatalf("nothing must be persisted, got %d/%d", records, embeddings)
	}
	replies := f.messenger.sentReplies()
	if len(replies) != 1 || replies[0].text != apologySystem {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestProcess_ComposeFailureRollsBackAndApologizes(t *testing.T) {
	f := newProcessor(t)
	f.generator.err = errors.New("generation failed")

	if out := f.proc.Process(context.Background(), personalEvent("今天天氣如何")); out != OutcomeAnalysisFailed {
		t.Fatalf("outcome = %v", out)
	}

	records, embeddings := countRecords(t, f.db)
	if records != 0 || embeddings != 0 {
		t.Fatalf("rollback expected, got %d records / %d embeddings", records, embeddings)
	}
	replies := f.messenger.sentReplies()
	if len(replies) != 1 || replies[0].text != apologySystem {
		t.Fatalf("replies = %+v", replies)
	}
}

func TestProcess_DeliveryRetriesThenSucceeds(t *testing.T) {
	f := newProcessor(t)
	f.messenger.failures = 2

	if out := f.proc.Process(context.Background(), personalEvent("嗨")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}
	if f.messenger.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", f.messenger.attempts)
	}
	if records, _ := countRecords(t, f.db); records != 1 {
		t.Fatalf("records = %d, want 1", records)
	}
}

func TestProcess_DeliveryExhaustionKeepsRecord(t *testing.T) {
	f := newProcessor(t)
	f.messenger.failures = 100

	if out := f.proc.Process(context.Background(), personalEvent("嗨")); out != OutcomeDeliveryExhausted {
		t.Fatalf("outcome = %v", out)
	}
	records, embeddings := countRecords(t, f.db)
	if records != 1 || embeddings != 1 {
		t.Fatalf("committed record must survive delivery failure, got %d/%d", records, embeddings)
	}
}

func TestProcess_PersonalMessageRegistersUser(t *testing.T) {
	f := newProcessor(t)

	if out := f.proc.Process(context.Background(), personalEvent("嗨")); out != OutcomeSuccess {
		t.Fatalf("outcome = %v", out)
	}
	var u domain.User
	if err := f.db.First(&u, "id = ?", "U1").Error; err != nil {
		t.Fatalf("user not registered: %v", err)
	}
}
