package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/olamide-dev/tunepurse/config"
	"github.com/olamide-dev/tunepurse/controllers"
	"github.com/olamide-dev/tunepurse/middleware"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/gorm"
)

// SetupRouter wires the controllers onto the Gin router. The database handle
// and settlement engine are constructed once in main and injected here.
func SetupRouter(db *gorm.DB, engine *services.SettlementEngine, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	paymentController := controllers.NewPaymentController(engine)
	subscriptionController := controllers.NewSubscriptionController(engine)
	withdrawalController := controllers.NewWithdrawalController(engine)
	walletController := controllers.NewWalletController(engine.Store())
	webhookController := controllers.NewWebhookController(engine, cfg.RazorpayWebhookSecret)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Gateway callbacks authenticate by signature, not by session
	router.POST("/webhook/razorpay", webhookController.HandleGatewayWebhook)

	api := router.Group("/v1")
	api.Use(middleware.AuthMiddleware(db, cfg.JWTSecret))
	{
		api.POST("/purchases", paymentController.InitiatePurchase)
		api.POST("/tips", paymentController.InitiateTip)
		api.GET("/verify/:reference", paymentController.Verify)
		api.POST("/spend", paymentController.Spend)

		api.POST("/subscriptions", subscriptionController.InitiateSubscription)
		api.POST("/subscriptions/wallet", subscriptionController.SubscribeWithWallet)

		api.GET("/wallet", walletController.GetWallet)
		api.GET("/earnings", walletController.GetEarnings)

		api.POST("/withdrawals", withdrawalController.Withdraw)
		api.POST("/withdrawals/earnings", withdrawalController.WithdrawEarnings)
	}

	return router
}
