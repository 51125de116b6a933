package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID          string `gorm:"primaryKey;size:64;not null"`
	Email       string `gorm:"size:255;uniqueIndex"`
	DisplayName string `gorm:"size:64"`
	Role        string `gorm:"size:16;index;not null;default:user"` // user, admin
	Guest       bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Subscription struct {
	ID                   uint   `gorm:"primaryKey"`
	UserID               string `gorm:"size:64;index;not null"`
	StripeSubscriptionID string `gorm:"size:64;uniqueIndex;not null"` // upsert key
	StripeCustomerID     string `gorm:"size:64;index"`
	PlanID               string `gorm:"size:64;not null"`
	Status               string `gorm:"size:32;index;not null"` // active, trialing, past_due, canceled, ...
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     time.Time `gorm:"index"`
	CancelAtPeriodEnd    bool
	TrialEnd             *time.Time
	CanceledAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type VIPToken struct {
	ID              uint   `gorm:"primaryKey"`
	Code            string `gorm:"size:64;uniqueIndex;not null"`
	UserID          string `gorm:"size:64;index;not null"`
	Type            string `gorm:"size:16;index;not null"` // general, trial, tip
	TipID           *uint  `gorm:"index"`                  // set only for type=tip
	Quantity        int32  `gorm:"not null"`
	Used            int32  `gorm:"not null;default:0"`
	ExpiresAt       time.Time
	BatchID         string `gorm:"size:64;index;not null"`
	Source          string `gorm:"size:32;not null"` // subscription, renewal, admin
	PlanID          string `gorm:"size:64"`
	SubscriptionRef string `gorm:"size:64;index"`
	Renewal         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Tip struct {
	ID              uint            `gorm:"primaryKey"`
	Title           string          `gorm:"size:255;not null"`
	Sport           string          `gorm:"size:32;index"`
	League          string          `gorm:"size:64"`
	Market          string          `gorm:"size:64"`
	Odds            decimal.Decimal `gorm:"type:decimal(8,2)"`
	IsVIP           bool            `gorm:"index;not null;default:false"`
	Content         string          `gorm:"type:text"`
	TicketSnapshots string          `gorm:"type:text"` // JSON array of snapshot URLs
	MatchAt         time.Time       `gorm:"index"`
	Result          string          `gorm:"size:16"` // pending, won, lost, void
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WebhookEvent is the idempotency ledger for billing webhooks. The primary
// key on EventID makes insert-if-absent the dedup gate; the row is written in
// the same transaction as the side effects it guards.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

type AnalyticsEvent struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:64;index;not null"`
	UserID    string `gorm:"size:64;index"`
	Metadata  string `gorm:"type:text"`
	CreatedAt time.Time
}

type AdminAuditLog struct {
	ID        uint   `gorm:"primaryKey"`
	AdminID   string `gorm:"size:64;index;not null"`
	Action    string `gorm:"size:64;not null"`
	TargetID  string `gorm:"size:64;index"`
	Metadata  string `gorm:"type:text"`
	CreatedAt time.Time
}
