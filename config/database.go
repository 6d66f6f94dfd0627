package config

import (
	"github.com/olamide-dev/tunepurse/models"
	"github.com/olamide-dev/tunepurse/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectDatabase opens the postgres connection and runs migrations. The
// returned handle is passed by injection into the stores and the settlement
// engine; nothing in this codebase keeps a package-level connection.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, utils.WrapError(err, "failed to connect to database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs schema migrations for all ledger entities.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.Transaction{},
		&models.Subscription{},
		&models.SubscriptionTier{},
		&models.CreatorEarnings{},
		&models.CreatorCoin{},
		&models.CoinPackage{},
	)
	return utils.WrapError(err, "failed to migrate database")
}

// SeedDefaults creates the default coin packages and subscription tiers when
// none exist yet, mirroring how sample rows are bootstrapped at startup.
func SeedDefaults(db *gorm.DB) error {
	var pkgCount int64
	if err := db.Model(&models.CoinPackage{}).Count(&pkgCount).Error; err != nil {
		return err
	}
	if pkgCount == 0 {
		packages := []models.CoinPackage{
			{Name: "Starter", Coins: 100, Price: 1800, Currency: models.CurrencyLocal},
			{Name: "Standard", Coins: 500, Price: 8500, Currency: models.CurrencyLocal},
			{Name: "Pro", Coins: 1200, Price: 19500, Currency: models.CurrencyLocal},
		}
		if err := db.Create(&packages).Error; err != nil {
			return err
		}
	}

	var tierCount int64
	if err := db.Model(&models.SubscriptionTier{}).Count(&tierCount).Error; err != nil {
		return err
	}
	if tierCount == 0 {
		tiers := []models.SubscriptionTier{
			{Slug: "weekly", Name: "Weekly Pass", Price: 2000, Currency: models.CurrencyLocal, DurationDays: 7, TokenGrant: 25},
			{Slug: "monthly", Name: "Monthly Pass", Price: 6500, Currency: models.CurrencyLocal, DurationDays: 30, TokenGrant: 120, BonusTokens: 10},
			{Slug: "yearly", Name: "Yearly Pass", Price: 60000, Currency: models.CurrencyLocal, DurationDays: 365, TokenGrant: 1500, BonusTokens: 250},
		}
		if err := db.Create(&tiers).Error; err != nil {
			return err
		}
	}

	return nil
}
