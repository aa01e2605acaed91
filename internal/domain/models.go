// Package domain defines the persistence models for users, chat records,
// their embedding vectors, and shipment packages. These types are mapped
// with GORM and form the core data layer of the agent.
package domain

import (
	"time"
)

// Chat scopes. A record is either a direct (personal) conversation or a
// message observed in a group the bot belongs to.
const (
	ScopePersonal = "personal"
	ScopeGroup    = "group"
)

// Sentiment labels produced by the external analysis service.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// User is a LINE account known to the bot. Users are registered on first
// contact (message, follow, or group join) and their display name is
// refreshed whenever the platform provides a newer one.
type User struct {
	ID          string    `json:"id"           gorm:"type:varchar(64);primaryKey"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ChatRecord is one inbound message together with its sentiment analysis.
// Records are insert-only: they are never mutated or deleted by the
// pipeline, and a record is visible to readers only once its paired
// ChatEmbedding has committed in the same transaction.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Scope: "personal" or "group".
//   - ActorID: the LINE user who sent the message.
//   - GroupID: set only for group-scope records.
//   - Text: the raw message text.
//   - SentimentScore / SentimentLabel: output of the sentiment service.
type ChatRecord struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Scope          string    `json:"scope"           gorm:"type:varchar(16);not null;check:scope IN ('personal','group')"`
	ActorID        string    `json:"actor_id"        gorm:"type:varchar(64);not null;index:idx_actor_chats"`
	GroupID        *string   `json:"group_id,omitempty" gorm:"type:varchar(64);index"`
	Text           string    `json:"text"            gorm:"type:text;not null"`
	SentimentScore float64   `json:"sentiment_score" gorm:"not null"`
	SentimentLabel string    `json:"sentiment_label" gorm:"type:varchar(16);not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for ChatRecord.
func (ChatRecord) TableName() string { return "chat_records" }

// ChatEmbedding is the vector representation of a ChatRecord's text. The
// vector is stored as a JSON array in a TEXT column. An embedding exists if
// and only if its chat record exists.
type ChatEmbedding struct {
	ID           string    `json:"id"             gorm:"type:char(36);primaryKey"`
	ChatRecordID string    `json:"chat_record_id" gorm:"type:char(36);not null;uniqueIndex"`
	Vector       string    `json:"vector"         gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`

	// ChatRecord is the parent record. Embeddings are cascade-deleted if
	// the record is ever removed out-of-band.
	ChatRecord ChatRecord `json:"-" gorm:"foreignKey:ChatRecordID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatEmbedding.
func (ChatEmbedding) TableName() string { return "chat_embeddings" }

// Package statuses as reported to users.
const (
	PackageStatusShipped   = "已出貨"
	PackageStatusDelivered = "已送達"
)

// Package is a shipment belonging to a user, reported by the status-query
// command. Shipping and delivery timestamps are nullable because a package
// may not have progressed that far yet.
type Package struct {
	ID                 string     `json:"id"                   gorm:"type:char(36);primaryKey"`
	UserID             string     `json:"user_id"              gorm:"type:varchar(64);not null;index:idx_user_packages"`
	Name               string     `json:"name"                 gorm:"type:varchar(255);not null"`
	TrackingCode       string     `json:"tracking_code"        gorm:"type:varchar(64);not null"`
	Status             string     `json:"status"               gorm:"type:varchar(32);not null"`
	ShippingDate       *time.Time `json:"shipping_date,omitempty"`
	DeliveryDate       *time.Time `json:"delivery_date,omitempty"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Package.
func (Package) TableName() string { return "packages" }
