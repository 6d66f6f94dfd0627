package models

import (
	"time"
)

// CreatorCoin describes a creator-scoped coin type. CirculatingSupply is the
// running total of this coin held across all user wallets, incremented on
// completed purchases.
type CreatorCoin struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CreatorID         uint      `json:"creator_id" gorm:"uniqueIndex;not null"`
	Symbol            string    `json:"symbol"`
	CoinPrice         float64   `json:"coin_price" gorm:"default:10"`
	Currency          string    `json:"currency" gorm:"default:'INR'"`
	CirculatingSupply int64     `json:"circulating_supply" gorm:"default:0"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CoinPackage is a purchasable bundle of coins at a fixed fiat price.
type CoinPackage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Coins     int64     `json:"coins"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency" gorm:"default:'INR'"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
