package router

import (
	"github.com/ManuelReschke/MealFox/app/controllers"
	"github.com/ManuelReschke/MealFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the handlers and guards shared by the routers.
type Dependencies struct {
	Sessions *session.Store
	Gate     middleware.EntitlementChecker

	Accounts  *controllers.AccountController
	Billing   *controllers.BillingController
	MealPlans *controllers.MealPlanController
	Auth      *controllers.AuthController

	InternalAPIToken string
	MetricsUser      string
	MetricsPassword  string
	// DevMode serves /metrics without credentials when none are configured.
	DevMode bool
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// The HTTP router installs the user context middleware the API routes
	// depend on, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
