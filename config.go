package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Port string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string
	CartTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	// SNS topic for promotion events (coupons, flash sales)
	PromoSNSTopicARN string

	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortCode      string
	MpesaPasskey        string
	MpesaBaseURL        string
	MpesaCallbackURL    string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	StripeSuccessURL    string
	StripeCancelURL     string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	OpsEmail string

	FreeDeliveryThreshold float64
	CancelWindow          time.Duration
	FlashSaleSweep        time.Duration
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first; real environment variables win over it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "Africa/Nairobi"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CartTTL:  getEnvDuration("CART_TTL", 7*24*time.Hour),

		KafkaTopic:       getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		PromoSNSTopicARN: os.Getenv("PROMO_SNS_TOPIC_ARN"),

		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortCode:      os.Getenv("MPESA_SHORTCODE"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaBaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaCallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      getEnv("STRIPE_CURRENCY", "usd"),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/orders?paid=1"),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/orders?paid=0"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		OpsEmail: os.Getenv("OPS_EMAIL"),

		FreeDeliveryThreshold: getEnvFloat("FREE_DELIVERY_THRESHOLD", 0),
		CancelWindow:          getEnvDuration("ORDER_CANCEL_WINDOW", 300*time.Second),
		FlashSaleSweep:        getEnvDuration("FLASH_SALE_SWEEP_INTERVAL", time.Minute),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
