package controllers

import (
	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// AccountController serves the signed-in user's account and subscription.
type AccountController struct {
	billing *billing.Service
}

func NewAccountController(svc *billing.Service) *AccountController {
	return &AccountController{billing: svc}
}

type updatePlanRequest struct {
	NewPlan string `json:"newPlan" validate:"required"`
}

// HandleCreateAccount creates the account if it does not exist yet.
func (ac *AccountController) HandleCreateAccount(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if _, err := ac.billing.Account(c.UserContext(), uc.UserID); err == nil {
		return c.JSON(fiber.Map{"message": "Account already exists."})
	}

	if _, err := ac.billing.EnsureAccount(c.UserContext(), uc.UserID, uc.Email); err != nil {
		return respondError(c, "create_account", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Account created successfully!"})
}

// HandleSubscriptionStatus returns the current tier.
func (ac *AccountController) HandleSubscriptionStatus(c *fiber.Ctx) error {
	account, err := ac.billing.Account(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "subscription_status", err)
	}
	return c.JSON(fiber.Map{
		"subscription": fiber.Map{
			"subscriptionTier":   account.SubscriptionTier,
			"subscriptionActive": account.SubscriptionActive,
		},
	})
}

// HandleUpdatePlan switches the subscription to another plan.
func (ac *AccountController) HandleUpdatePlan(c *fiber.Ctx) error {
	var req updatePlanRequest
	if err := parseBody(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "New plan is required."})
	}

	account, err := ac.billing.ChangePlan(c.UserContext(), usercontext.GetUserID(c), req.NewPlan)
	if err != nil {
		return respondError(c, "update_plan", err)
	}
	return c.JSON(fiber.Map{
		"subscription": fiber.Map{
			"id":                 account.StripeSubscriptionID,
			"subscriptionTier":   account.SubscriptionTier,
			"subscriptionActive": account.SubscriptionActive,
		},
	})
}

// HandleCancelSubscription cancels at period end and revokes access now.
func (ac *AccountController) HandleCancelSubscription(c *fiber.Ctx) error {
	_, conf, err := ac.billing.CancelSubscription(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return respondError(c, "cancel_subscription", err)
	}

	resp := fiber.Map{
		"id":                conf.SubscriptionID,
		"cancelAtPeriodEnd": conf.CancelAtPeriodEnd,
	}
	if !conf.CurrentPeriodEnd.IsZero() {
		resp["currentPeriodEnd"] = conf.CurrentPeriodEnd
	}
	return c.JSON(fiber.Map{"subscription": resp})
}
