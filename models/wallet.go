package models

import (
	"time"

	"gorm.io/gorm"
)

// Wallet holds a user's balances. A nil CreatorID marks the general platform
// wallet; a set CreatorID marks a creator-scoped coin wallet. One wallet exists
// per (user, creator) pair, created lazily on first credit or debit. The
// composite index treats NULL creator ids as distinct, so general wallets need
// their own partial unique index to hold the one-per-user invariant.
type Wallet struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `json:"user_id" gorm:"uniqueIndex:idx_wallet_user_creator;index:idx_wallet_user_general,unique,where:creator_id IS NULL;not null"`
	CreatorID      *uint          `json:"creator_id" gorm:"uniqueIndex:idx_wallet_user_creator"`
	Coins          int64          `json:"coins" gorm:"default:0"`
	USDBalance     float64        `json:"usd_balance" gorm:"default:0"`
	LocalBalance   float64        `json:"local_balance" gorm:"default:0"`
	LifetimeEarned int64          `json:"lifetime_earned" gorm:"default:0"`
	LifetimeSpent  int64          `json:"lifetime_spent" gorm:"default:0"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreatorEarnings tracks a creator's fiat earnings. PendingBalance sits under a
// hold period before release; AvailableBalance is withdrawable now. Release of
// held funds happens outside this service.
type CreatorEarnings struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	CreatorID         uint           `json:"creator_id" gorm:"uniqueIndex;not null"`
	AvailableBalance  float64        `json:"available_balance" gorm:"default:0"`
	PendingBalance    float64        `json:"pending_balance" gorm:"default:0"`
	LifetimeEarnings  float64        `json:"lifetime_earnings" gorm:"default:0"`
	LifetimeWithdrawn float64        `json:"lifetime_withdrawn" gorm:"default:0"`
	Currency          string         `json:"currency" gorm:"default:'INR'"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// Supported fiat currencies
const (
	CurrencyUSD   = "USD"
	CurrencyLocal = "INR"
)
