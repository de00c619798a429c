package controllers

import (
	"errors"

	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const genericErrorMessage = "Internal error. Please try again or contact support."

var validate = validator.New()

// respondError maps billing errors to JSON responses. Unexpected failures get
// a generic message; the precise kind is only logged.
func respondError(c *fiber.Ctx, action string, err error) error {
	var gwErr *billing.GatewayError
	switch {
	case errors.Is(err, billing.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	case errors.Is(err, billing.ErrNotSubscribed):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active subscription found."})
	case errors.Is(err, billing.ErrAccountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No account found."})
	case errors.Is(err, billing.ErrUnknownPlan):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown plan type."})
	case errors.As(err, &gwErr):
		log.Error().Err(err).Str("action", action).Str("kind", "gateway").Str("operation", gwErr.Op).Msg("billing gateway failure")
	default:
		log.Error().Err(err).Str("action", action).Str("kind", "internal").Msg("request failed")
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": genericErrorMessage})
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return err
	}
	return validate.Struct(out)
}
