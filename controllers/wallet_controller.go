package controllers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/gorm"
)

// WalletController serves the read-only wallet surface: balances across all
// of a user's wallets plus their recent transactions.
type WalletController struct {
	store *services.LedgerStore
}

func NewWalletController(store *services.LedgerStore) *WalletController {
	return &WalletController{store: store}
}

// GetWallet returns the user's balances and recent transactions.
// GET /v1/wallet
func (wc *WalletController) GetWallet(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	wallets, err := wc.store.WalletsByUser(user.ID)
	if err != nil {
		utils.LogError("Failed to load wallets for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get wallet", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	transactions, total, err := wc.store.RecentTransactions(user.ID, page, limit)
	if err != nil {
		utils.LogError("Failed to load transactions for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get transactions", nil)
		return
	}

	formattedWallets := make([]gin.H, len(wallets))
	for i, w := range wallets {
		formattedWallets[i] = gin.H{
			"id":              w.ID,
			"creator_id":      w.CreatorID,
			"coins":           w.Coins,
			"usd_balance":     fmt.Sprintf("%.2f", w.USDBalance),
			"local_balance":   fmt.Sprintf("%.2f", w.LocalBalance),
			"lifetime_earned": w.LifetimeEarned,
			"lifetime_spent":  w.LifetimeSpent,
		}
	}

	formattedTxns := make([]gin.H, len(transactions))
	for i, txn := range transactions {
		formattedTxns[i] = gin.H{
			"id":          txn.ID,
			"type":        txn.Type,
			"coins":       txn.Coins,
			"fiat_amount": txn.FiatAmount,
			"currency":    txn.Currency,
			"status":      txn.Status,
			"description": txn.Description,
			"reference":   txn.GatewayReference,
			"created_at":  txn.CreatedAt,
		}
	}

	utils.SuccessWithPagination(c, "Wallet retrieved successfully", gin.H{
		"wallets":      formattedWallets,
		"transactions": formattedTxns,
	}, total, page, limit)
}

// GetEarnings returns a creator's earnings balances.
// GET /v1/earnings
func (wc *WalletController) GetEarnings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	earnings, err := wc.store.GetEarnings(user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(c, "No earnings yet", gin.H{
				"available_balance": "0.00",
				"pending_balance":   "0.00",
			})
			return
		}
		utils.LogError("Failed to load earnings for creator ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get earnings", nil)
		return
	}

	utils.Success(c, "Earnings retrieved successfully", gin.H{
		"available_balance":  fmt.Sprintf("%.2f", earnings.AvailableBalance),
		"pending_balance":    fmt.Sprintf("%.2f", earnings.PendingBalance),
		"lifetime_earnings":  fmt.Sprintf("%.2f", earnings.LifetimeEarnings),
		"lifetime_withdrawn": fmt.Sprintf("%.2f", earnings.LifetimeWithdrawn),
		"currency":           earnings.Currency,
	})
}
