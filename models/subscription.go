package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscription represents a user's membership on a tier. Activation happens
// exactly once per gateway reference.
type Subscription struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `json:"user_id" gorm:"index;not null"`
	TierSlug         string         `json:"tier_slug" gorm:"not null"`
	Status           string         `json:"status" gorm:"index;default:'pending'"`
	StartDate        *time.Time     `json:"start_date"`
	EndDate          *time.Time     `json:"end_date"`
	CoinGrants       map[uint]int64 `json:"coin_grants" gorm:"serializer:json"`
	GatewayReference *string        `json:"gateway_reference" gorm:"uniqueIndex"`
	Amount           float64        `json:"amount"`
	Currency         string         `json:"currency" gorm:"default:'INR'"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Subscription status constants
const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// IsTerminal reports whether the subscription left the pending state.
func (s *Subscription) IsTerminal() bool {
	return s.Status != SubscriptionStatusPending
}

// SubscriptionTier is a named membership configuration: price, duration and
// the token/coin grants credited on activation. CoinGrants carries the legacy
// coin-pack tiers that granted per-creator coins.
type SubscriptionTier struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Slug         string         `json:"slug" gorm:"uniqueIndex;not null"`
	Name         string         `json:"name"`
	Price        float64        `json:"price"`
	Currency     string         `json:"currency" gorm:"default:'INR'"`
	DurationDays int            `json:"duration_days"`
	TokenGrant   int64          `json:"token_grant"`
	BonusTokens  int64          `json:"bonus_tokens"`
	CoinGrants   map[uint]int64 `json:"coin_grants" gorm:"serializer:json"`
	Active       bool           `json:"active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
