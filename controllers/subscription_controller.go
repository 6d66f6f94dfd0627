package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
)

// SubscriptionController exposes the two subscription initiation styles:
// gateway-redirect funded and wallet funded.
type SubscriptionController struct {
	engine *services.SettlementEngine
}

func NewSubscriptionController(engine *services.SettlementEngine) *SubscriptionController {
	return &SubscriptionController{engine: engine}
}

// InitiateSubscription starts a gateway-funded subscription.
// POST /v1/subscriptions
func (sc *SubscriptionController) InitiateSubscription(c *gin.Context) {
	utils.LogInfo("InitiateSubscription called")
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Tier string `json:"tier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid subscription request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. tier is required", err.Error())
		return
	}

	result, err := sc.engine.InitializeSubscription(user.ID, user.Email, req.Tier)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.LogInfo("Subscription initiated for user ID: %d, reference: %s", user.ID, result.Reference)
	utils.Success(c, "Subscription initiated successfully", gin.H{
		"reference":       result.Reference,
		"payment_link":    result.PaymentLink,
		"subscription_id": result.SubscriptionID,
	})
}

// SubscribeWithWallet activates a tier immediately from wallet balance.
// POST /v1/subscriptions/wallet
func (sc *SubscriptionController) SubscribeWithWallet(c *gin.Context) {
	utils.LogInfo("SubscribeWithWallet called")
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Tier string `json:"tier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid wallet subscription request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. tier is required", err.Error())
		return
	}

	result, err := sc.engine.SubscribeWithWallet(user.ID, req.Tier)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.Success(c, "Subscription activated successfully", result)
}
