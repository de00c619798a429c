package middleware

import (
	"context"

	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// EntitlementChecker decides whether a user may use gated functionality.
type EntitlementChecker interface {
	IsEntitled(ctx context.Context, userID string) (bool, error)
}

// RequireEntitlement admits only users with an active subscription. It must
// run after the session middleware.
func RequireEntitlement(gate EntitlementChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		entitled, err := gate.IsEntitled(c.UserContext(), userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("entitlement check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "entitlement_unavailable",
			})
		}
		if !entitled {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "subscription_required",
				"message": "an active subscription is required",
			})
		}
		return c.Next()
	}
}
