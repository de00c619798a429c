package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// InternalTokenAuth protects service-to-service endpoints with a shared
// token sent as X-Internal-Token or a bearer token. An empty token disables
// the check.
func InternalTokenAuth(token string) fiber.Handler {
	token = strings.TrimSpace(token)
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		got := extractInternalToken(c)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid internal token"})
		}
		return c.Next()
	}
}

func extractInternalToken(c *fiber.Ctx) string {
	t := strings.TrimSpace(c.Get("X-Internal-Token"))
	if t != "" {
		return t
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
