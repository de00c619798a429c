package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/metrics"
	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// EntitlementChecker is the gate used by the route guard endpoint.
type EntitlementChecker interface {
	IsEntitled(ctx context.Context, userID string) (bool, error)
}

// BillingController serves checkout, the plan catalog, the Stripe webhook
// and the subscription check used by the route guard.
type BillingController struct {
	billing       *billing.Service
	gate          EntitlementChecker
	webhookSecret string
}

func NewBillingController(svc *billing.Service, gate EntitlementChecker, webhookSecret string) *BillingController {
	return &BillingController{billing: svc, gate: gate, webhookSecret: webhookSecret}
}

type checkoutRequest struct {
	PlanType string `json:"planType" validate:"required"`
}

// HandlePlans lists the plan catalog.
func (bc *BillingController) HandlePlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": bc.billing.Catalog().Plans()})
}

// HandleCheckout starts a Stripe checkout for the signed-in user.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := parseBody(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Plan type is required."})
	}

	uc := usercontext.GetUserContext(c)
	url, err := bc.billing.StartCheckout(c.UserContext(), uc.UserID, uc.Email, req.PlanType)
	if err != nil {
		return respondError(c, "checkout", err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleCheckSubscription reports whether userId is entitled.
func (bc *BillingController) HandleCheckSubscription(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing user ID"})
	}

	entitled, err := bc.gate.IsEntitled(c.UserContext(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("subscription check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error."})
	}
	return c.JSON(fiber.Map{"subscriptionActive": entitled})
}

// HandleStripeWebhook verifies and reconciles a Stripe event. It answers 2xx
// only after reconciliation finished, 400 for bad signatures or payloads and
// 500 for store failures so Stripe retries the delivery.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	start := time.Now()
	eventType := "unknown"
	status := fiber.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(bc.webhookSecret) == "" {
		status = fiber.StatusServiceUnavailable
		return c.Status(status).JSON(fiber.Map{"error": "webhook secret not configured"})
	}

	payload := append([]byte(nil), c.Body()...)
	event, err := billing.VerifyAndParseEvent(payload, c.Get("Stripe-Signature"), bc.webhookSecret)
	if err != nil {
		status = fiber.StatusBadRequest
		var sigErr *billing.SignatureError
		if errors.As(err, &sigErr) {
			log.Warn().Err(err).Str("ip", c.IP()).Msg("Stripe webhook rejected")
			return c.Status(status).JSON(fiber.Map{"error": "invalid_signature"})
		}
		log.Warn().Err(err).Msg("Stripe webhook payload could not be decoded")
		return c.Status(status).JSON(fiber.Map{"error": "invalid_payload"})
	}
	eventType = event.Kind()

	duplicate, err := bc.billing.ProcessEvent(c.UserContext(), event)
	if err != nil {
		log.Error().Err(err).Str("event_id", event.EventID()).Str("event_kind", event.Kind()).Msg("Stripe webhook processing failed")
		status = fiber.StatusInternalServerError
		return c.Status(status).JSON(fiber.Map{"error": "processing failed"})
	}

	if duplicate {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}
	return c.JSON(fiber.Map{"received": true})
}
