package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/MealFox/internal/pkg/env"
)

const maxEntitlementCacheTTL = 5 * time.Minute

// Config is the runtime configuration, read once at startup and injected.
type Config struct {
	AppEnv    string
	AppHost   string
	PublicURL string

	DBUser        string
	DBPassword    string
	DBHost        string
	DBPort        string
	DBName        string
	DBAutoMigrate bool

	CacheHost     string
	CachePort     string
	CachePassword string

	LogLevel  string
	LogFormat string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceWeekly   string
	StripePriceMonthly  string
	StripePriceYearly   string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	BillingTimeout      time.Duration

	EntitlementCacheTTL time.Duration
	InternalAPIToken    string

	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	MetricsUser     string
	MetricsPassword string
}

// Load builds the configuration from the loaded .env map and the process
// environment.
func Load() Config {
	publicURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"), "/")

	cfg := Config{
		AppEnv:    env.GetEnv("APP_ENV", "prod"),
		AppHost:   env.GetEnv("APP_HOST", "0.0.0.0:4000"),
		PublicURL: publicURL,

		DBUser:        env.GetEnv("DB_USER", "mealfox"),
		DBPassword:    env.GetEnv("DB_PASSWORD", ""),
		DBHost:        env.GetEnv("DB_HOST", "127.0.0.1"),
		DBPort:        env.GetEnv("DB_PORT", "3306"),
		DBName:        env.GetEnv("DB_NAME", "mealfox_db"),
		DBAutoMigrate: env.GetBool("DB_AUTO_MIGRATE", false),

		CacheHost:     env.GetEnv("CACHE_HOST", "localhost"),
		CachePort:     env.GetEnv("CACHE_PORT", "6379"),
		CachePassword: env.GetEnv("CACHE_PASSWORD", ""),

		LogLevel:  env.GetEnv("LOG_LEVEL", "info"),
		LogFormat: env.GetEnv("LOG_FORMAT", "json"),

		StripeSecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceWeekly:   env.GetEnv("STRIPE_PRICE_WEEKLY", ""),
		StripePriceMonthly:  env.GetEnv("STRIPE_PRICE_MONTHLY", ""),
		StripePriceYearly:   env.GetEnv("STRIPE_PRICE_YEARLY", ""),
		CheckoutSuccessURL:  env.GetEnv("CHECKOUT_SUCCESS_URL", publicURL+"/meal-planner?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:   env.GetEnv("CHECKOUT_CANCEL_URL", publicURL+"/subscribe"),
		BillingTimeout:      env.GetDuration("BILLING_TIMEOUT", 20*time.Second),

		EntitlementCacheTTL: env.GetDuration("ENTITLEMENT_CACHE_TTL", 30*time.Second),
		InternalAPIToken:    env.GetEnv("INTERNAL_API_TOKEN", ""),

		GoogleClientID:     env.GetEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: env.GetEnv("GOOGLE_CLIENT_SECRET", ""),
		GitHubClientID:     env.GetEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: env.GetEnv("GITHUB_CLIENT_SECRET", ""),

		MetricsUser:     env.GetEnv("METRICS_USER", ""),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),
	}
	if cfg.EntitlementCacheTTL > maxEntitlementCacheTTL {
		cfg.EntitlementCacheTTL = maxEntitlementCacheTTL
	}
	return cfg
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// MySQLDSN is the go-sql-driver DSN used by GORM.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL is the golang-migrate database URL.
func (c Config) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// CacheAddr is the Redis address.
func (c Config) CacheAddr() string {
	return fmt.Sprintf("%s:%s", c.CacheHost, c.CachePort)
}

// PriceIDs maps plan types to Stripe price ids.
func (c Config) PriceIDs() map[string]string {
	return map[string]string{
		"week":  c.StripePriceWeekly,
		"month": c.StripePriceMonthly,
		"year":  c.StripePriceYearly,
	}
}
