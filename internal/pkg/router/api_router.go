package router

import (
	"time"

	"github.com/ManuelReschke/MealFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		// Stripe retries on its own schedule, and the route guard calls
		// check-subscription for every gated page from a single origin.
		// Neither may be throttled.
		Next: func(c *fiber.Ctx) bool {
			switch c.Path() {
			case "/api/webhook", "/api/check-subscription":
				return true
			}
			return false
		},
	}))

	api.Post("/webhook", h.deps.Billing.HandleStripeWebhook)
	api.Get("/check-subscription", middleware.InternalTokenAuth(h.deps.InternalAPIToken), h.deps.Billing.HandleCheckSubscription)
	api.Get("/plans", h.deps.Billing.HandlePlans)

	// Session routes
	api.Post("/checkout", middleware.RequireAPISessionAuth, h.deps.Billing.HandleCheckout)
	api.Post("/create-account", middleware.RequireAPISessionAuth, h.deps.Accounts.HandleCreateAccount)

	account := api.Group("/account", middleware.RequireAPISessionAuth)
	account.Get("/subscription-status", h.deps.Accounts.HandleSubscriptionStatus)
	account.Post("/update-plan", h.deps.Accounts.HandleUpdatePlan)
	account.Post("/cancel-subscription", h.deps.Accounts.HandleCancelSubscription)

	// Gated routes
	plans := api.Group("/meal-plans", middleware.RequireAPISessionAuth, middleware.RequireEntitlement(h.deps.Gate))
	plans.Get("/", h.deps.MealPlans.HandleList)
	plans.Post("/", h.deps.MealPlans.HandleCreate)
	plans.Get("/:id", h.deps.MealPlans.HandleGet)
	plans.Delete("/:id", h.deps.MealPlans.HandleDelete)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
