package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
)

// WithdrawalController exposes wallet and creator-earnings payouts.
type WithdrawalController struct {
	engine *services.SettlementEngine
}

func NewWithdrawalController(engine *services.SettlementEngine) *WithdrawalController {
	return &WithdrawalController{engine: engine}
}

// Withdraw pays out fiat from the general wallet.
// POST /v1/withdrawals
func (wc *WithdrawalController) Withdraw(c *gin.Context) {
	utils.LogInfo("Withdraw called")
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Amount        float64 `json:"amount" binding:"required,gt=0"`
		Currency      string  `json:"currency"`
		PayoutAccount string  `json:"payout_account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid withdrawal request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. amount and payout_account are required", err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = models.CurrencyLocal
	}

	result, err := wc.engine.Withdraw(user.ID, req.Amount, req.Currency, req.PayoutAccount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, "Withdrawal completed successfully", result)
}

// WithdrawEarnings pays out a creator's available earnings.
// POST /v1/withdrawals/earnings
func (wc *WithdrawalController) WithdrawEarnings(c *gin.Context) {
	utils.LogInfo("WithdrawEarnings called")
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if !user.IsCreator {
		utils.Forbidden(c, "Only creators can withdraw earnings")
		return
	}

	var req struct {
		Amount        float64 `json:"amount" binding:"required,gt=0"`
		PayoutAccount string  `json:"payout_account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid earnings withdrawal request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. amount and payout_account are required", err.Error())
		return
	}

	result, err := wc.engine.WithdrawEarnings(user.ID, req.Amount, req.PayoutAccount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, "Earnings withdrawal completed successfully", result)
}
