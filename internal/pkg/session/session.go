package session

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"
)

// Config describes the Redis database holding app sessions.
type Config struct {
	Host     string
	Port     int
	Password string
	Database int
	Secure   bool
}

// NewSessionStore creates the app session store on Redis. Sessions use their
// own database, separate from the cache.
func NewSessionStore(cfg Config) *session.Store {
	storage := redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: cfg.Database,
		Reset:    false,
	})
	return newStore(storage, cfg.Secure)
}

// NewMemorySessionStore creates an in-process store for tests and local runs.
func NewMemorySessionStore() *session.Store {
	return newStore(nil, false)
}

func newStore(storage fiber.Storage, secure bool) *session.Store {
	cfg := session.Config{
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return session.New(cfg)
}

// SetSessionValues stores key-value pairs in the user's individual session
func SetSessionValues(store *session.Store, c *fiber.Ctx, values map[string]interface{}) error {
	if store == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	for k, v := range values {
		sess.Set(k, v)
	}
	return sess.Save()
}

// GetSessionValue retrieves a string value by key from the user's individual session
func GetSessionValue(store *session.Store, c *fiber.Ctx, key string) string {
	if store == nil {
		return ""
	}

	sess, err := store.Get(c)
	if err != nil {
		return ""
	}

	if strValue, ok := sess.Get(key).(string); ok {
		return strValue
	}
	return ""
}

// Destroy ends the user's session
func Destroy(store *session.Store, c *fiber.Ctx) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
