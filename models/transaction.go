package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction is the ledger record behind every balance mutation. Rows are
// created pending at initialization and moved exactly once to a terminal
// status; the transition is never reversed here. Refunds are recorded as new
// rows, never as edits.
type Transaction struct {
	ID               uint                   `gorm:"primaryKey" json:"id"`
	UserID           uint                   `json:"user_id" gorm:"index;not null"`
	CreatorID        *uint                  `json:"creator_id" gorm:"index"`
	Type             string                 `json:"type" gorm:"index;not null"`
	Coins            int64                  `json:"coins"`
	FiatAmount       *float64               `json:"fiat_amount"`
	Currency         string                 `json:"currency" gorm:"default:'INR'"`
	GatewayReference *string                `json:"gateway_reference" gorm:"uniqueIndex"`
	Status           string                 `json:"status" gorm:"index;default:'pending'"`
	Metadata         map[string]interface{} `json:"metadata" gorm:"serializer:json"`
	Description      string                 `json:"description"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	DeletedAt        gorm.DeletedAt         `gorm:"index" json:"-"`
}

// Transaction type constants
const (
	TransactionTypePurchase     = "purchase"
	TransactionTypeTip          = "tip"
	TransactionTypeSpend        = "spend"
	TransactionTypeRefund       = "refund"
	TransactionTypeBonus        = "bonus"
	TransactionTypeSubscription = "subscription"
	TransactionTypeEarn         = "earn"
	TransactionTypeWithdrawal   = "withdrawal"
)

// Transaction status constants
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

// IsTerminal reports whether the status can no longer change.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusRefunded
}
