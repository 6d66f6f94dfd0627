package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBHost                string
	DBPort                string
	DBUser                string
	DBPassword            string
	DBName                string
	JWTSecret             string
	Port                  string
	Env                   string
	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string
	PaymentCallbackURL    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is fine in production where the environment is set
	// directly.
	_ = godotenv.Load()

	config := &Config{
		DBHost:                os.Getenv("DB_HOST"),
		DBPort:                os.Getenv("DB_PORT"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		Port:                  os.Getenv("PORT"),
		Env:                   os.Getenv("ENV"),
		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		PaymentCallbackURL:    os.Getenv("PAYMENT_CALLBACK_URL"),
	}

	if config.Port == "" {
		config.Port = "8080"
	}
	if config.RazorpayKey == "" || config.RazorpaySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY and RAZORPAY_SECRET must be set")
	}

	return config, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
