package controllers

import (
	"strings"

	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/oauth"
	"github.com/ManuelReschke/MealFox/internal/pkg/session"
	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/rs/zerolog/log"
	gothfiber "github.com/shareed2k/goth_fiber"
)

// CompleteAuthFunc finishes a provider flow and returns the signed-in user.
type CompleteAuthFunc func(c *fiber.Ctx) (goth.User, error)

// AuthController handles provider sign-in and logout.
type AuthController struct {
	billing  *billing.Service
	sessions *fibersession.Store
	complete CompleteAuthFunc
}

func NewAuthController(svc *billing.Service, sessions *fibersession.Store, complete CompleteAuthFunc) *AuthController {
	if complete == nil {
		complete = func(c *fiber.Ctx) (goth.User, error) {
			return gothfiber.CompleteUserAuth(c)
		}
	}
	return &AuthController{billing: svc, sessions: sessions, complete: complete}
}

// HandleOAuthBegin redirects to the provider.
func (ac *AuthController) HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow, creates the account on
// first sign-in and logs the user in.
func (ac *AuthController) HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := ac.complete(c)
	if err != nil {
		log.Warn().Err(err).Str("provider", c.Params("provider")).Msg("OAuth failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "OAuth failed"})
	}

	userID := oauth.UserID(u.Provider, u.UserID)
	email := strings.TrimSpace(u.Email)
	if _, err := ac.billing.EnsureAccount(c.UserContext(), userID, email); err != nil {
		return respondError(c, "oauth_callback", err)
	}

	if err := session.SetSessionValues(ac.sessions, c, map[string]interface{}{
		usercontext.AuthKey:   true,
		usercontext.KeyUserID: userID,
		usercontext.KeyEmail:  email,
		usercontext.KeyName:   firstNonEmpty(u.Name, u.NickName, email),
	}); err != nil {
		log.Error().Err(err).Msg("session save failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session init failed"})
	}

	log.Info().Str("user_id", userID).Str("provider", u.Provider).Msg("user signed in")
	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleLogout ends the session.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := session.Destroy(ac.sessions, c); err != nil {
		log.Warn().Err(err).Msg("session destroy failed")
	}
	_ = gothfiber.Logout(c)
	return c.Redirect("/", fiber.StatusSeeOther)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
