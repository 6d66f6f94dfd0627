package main

import (
	"log"

	"github.com/olamide-dev/tunepurse/config"
	"github.com/olamide-dev/tunepurse/gateway"
	"github.com/olamide-dev/tunepurse/routes"
	"github.com/olamide-dev/tunepurse/services"
	"github.com/olamide-dev/tunepurse/utils"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("Error loading config: %v", err)
		log.Fatal("Error loading config:", err)
	}

	// Initialize database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		utils.LogError("Error connecting to database: %v", err)
		log.Fatal("Error connecting to database:", err)
	}

	// Seed default coin packages and subscription tiers
	if err := config.SeedDefaults(db); err != nil {
		utils.LogError("Failed to seed defaults: %v", err)
		log.Fatal("Failed to seed defaults:", err)
	}

	// Construct the gateway client and settlement engine
	gatewayClient := gateway.NewClient(cfg.RazorpayKey, cfg.RazorpaySecret)
	engine := services.NewSettlementEngine(db, gatewayClient, cfg.PaymentCallbackURL)

	// Set up router with middleware
	router := routes.SetupRouter(db, engine, cfg)

	utils.LogInfo("Server starting on port %s", cfg.Port)
	// Start server
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
