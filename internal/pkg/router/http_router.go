package router

import (
	"github.com/ManuelReschke/MealFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Sessions))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	metrics := adaptor.HTTPHandler(promhttp.Handler())
	switch {
	case h.deps.MetricsUser != "":
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{h.deps.MetricsUser: h.deps.MetricsPassword},
		}), metrics)
	case h.deps.DevMode:
		log.Warn().Msg("METRICS_USER is not set, serving /metrics without authentication")
		app.Get("/metrics", metrics)
	default:
		log.Warn().Msg("METRICS_USER is not set, /metrics is disabled")
	}

	// OAuth
	app.Get("/auth/logout", h.deps.Auth.HandleLogout)
	app.Get("/auth/:provider", h.deps.Auth.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", h.deps.Auth.HandleOAuthCallback)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
