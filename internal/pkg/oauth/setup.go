package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"
)

// Config holds provider credentials and the Redis database for OAuth state.
type Config struct {
	PublicURL          string
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDatabase int
	Secure        bool
}

// Setup registers the configured Goth providers and the OAuth state store.
// Providers without credentials are skipped. It returns the registered names.
func Setup(cfg Config) []string {
	base := strings.TrimRight(cfg.PublicURL, "/")

	var providers []goth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			base+"/auth/google/callback",
			"email", "profile",
		))
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, github.New(
			cfg.GitHubClientID,
			cfg.GitHubClientSecret,
			base+"/auth/github/callback",
			"user:email",
		))
	}
	goth.UseProviders(providers...)

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDatabase,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.Secure,
		Expiration:     72 * time.Hour,
	})

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return names
}

// UserID namespaces a provider user id so ids from different providers
// cannot collide in the account store.
func UserID(provider, providerUserID string) string {
	return provider + "|" + providerUserID
}
