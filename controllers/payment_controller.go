package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
)

// PaymentController exposes the gateway-funded flows: coin purchases, tips
// and the synchronous verify path.
type PaymentController struct {
	engine *services.SettlementEngine
}

func NewPaymentController(engine *services.SettlementEngine) *PaymentController {
	return &PaymentController{engine: engine}
}

// InitiatePurchase starts a coin-package purchase for a creator's coin.
// POST /v1/purchases
func (pc *PaymentController) InitiatePurchase(c *gin.Context) {
	utils.LogInfo("InitiatePurchase called")
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		PackageID uint `json:"package_id" binding:"required"`
		CreatorID uint `json:"creator_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid purchase request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. package_id and creator_id are required", err.Error())
		return
	}

	result, err := pc.engine.InitializePurchase(user.ID, user.Email, req.PackageID, req.CreatorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.LogInfo("Purchase initiated for user ID: %d, reference: %s", user.ID, result.Reference)
	utils.Success(c, "Purchase initiated successfully", gin.H{
		"reference":      result.Reference,
		"payment_link":   result.PaymentLink,
		"transaction_id": result.TransactionID,
	})
}

// InitiateTip starts a fiat tip to a creator.
// POST /v1/tips
func (pc *PaymentController) InitiateTip(c *gin.Context) {
	utils.LogInfo("InitiateTip called")
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		CreatorID uint    `json:"creator_id" binding:"required"`
		Amount    float64 `json:"amount" binding:"required,gt=0"`
		Currency  string  `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid tip request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. creator_id and a positive amount are required", err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = models.CurrencyLocal
	}

	result, err := pc.engine.InitializeTip(user.ID, user.Email, req.CreatorID, req.Amount, req.Currency)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.LogInfo("Tip initiated for user ID: %d, reference: %s", user.ID, result.Reference)
	utils.Success(c, "Tip initiated successfully", gin.H{
		"reference":      result.Reference,
		"payment_link":   result.PaymentLink,
		"transaction_id": result.TransactionID,
	})
}

// Verify polls the gateway for a reference and settles it. Safe to call any
// number of times; repeat calls return the cached outcome.
// GET /v1/verify/:reference
func (pc *PaymentController) Verify(c *gin.Context) {
	utils.LogInfo("Verify called")
	if _, ok := currentUser(c); !ok {
		return
	}

	reference := c.Param("reference")
	if reference == "" {
		utils.BadRequest(c, "Reference is required", nil)
		return
	}

	result, err := pc.engine.Verify(reference)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Payment settled successfully"
	if result.AlreadyProcessed {
		message = "Already processed"
	}
	utils.Success(c, message, result)
}

// Spend debits creator coins to unlock paid content.
// POST /v1/spend
func (pc *PaymentController) Spend(c *gin.Context) {
	utils.LogInfo("Spend called")
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		CreatorID  uint   `json:"creator_id" binding:"required"`
		Coins      int64  `json:"coins" binding:"required,gt=0"`
		ContentRef string `json:"content_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid spend request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. creator_id, coins and content_ref are required", err.Error())
		return
	}

	result, err := pc.engine.Spend(user.ID, req.CreatorID, req.Coins, req.ContentRef)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, "Content unlocked successfully", result)
}
