package middleware

import (
	"strings"

	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// UserContextMiddleware sets up the user context for every request from the
// app session.
func UserContextMiddleware(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on /auth/*; skip ours there.
		if strings.HasPrefix(c.Path(), "/auth/") {
			return c.Next()
		}

		anonymous := usercontext.UserContext{IsLoggedIn: false}
		sess, err := store.Get(c)
		if err != nil {
			usercontext.SetUserContext(c, anonymous)
			return c.Next()
		}

		userID, _ := sess.Get(usercontext.KeyUserID).(string)
		if userID == "" {
			usercontext.SetUserContext(c, anonymous)
			return c.Next()
		}

		email, _ := sess.Get(usercontext.KeyEmail).(string)
		name, _ := sess.Get(usercontext.KeyName).(string)
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			Email:      email,
			Name:       name,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}
