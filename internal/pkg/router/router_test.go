package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuelReschke/MealFox/app/controllers"
	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/MealFox/internal/pkg/session"
	"github.com/gofiber/fiber/v2"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *repository.Repositories) {
	return newTestAppWith(t, func(*Dependencies) {})
}

func newTestAppWith(t *testing.T, configure func(*Dependencies)) (*fiber.App, *repository.Repositories) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.BillingWebhookEvent{}, &models.MealPlan{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repos := repository.NewRepositories(db)
	gate := entitlements.NewGate(repos.Account, nil)
	svc := billing.NewService(repos, nil, billing.NewCatalog(map[string]string{"month": "price_month"}), gate)
	sessions := session.NewMemorySessionStore()

	complete := func(c *fiber.Ctx) (goth.User, error) {
		return goth.User{Provider: "google", UserID: c.Query("uid"), Email: "cook@example.com"}, nil
	}

	deps := Dependencies{
		Sessions:         sessions,
		Gate:             gate,
		Accounts:         controllers.NewAccountController(svc),
		Billing:          controllers.NewBillingController(svc, gate, "whsec_router"),
		MealPlans:        controllers.NewMealPlanController(repos.MealPlan),
		Auth:             controllers.NewAuthController(svc, sessions, complete),
		InternalAPIToken: "internal-secret",
		MetricsUser:      "metrics",
		MetricsPassword:  "pw",
	}
	configure(&deps)

	app := fiber.New()
	InstallRouter(app, deps)
	return app, repos
}

func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func signIn(t *testing.T, app *fiber.App, uid string) *http.Cookie {
	t.Helper()
	resp := do(t, app, httptest.NewRequest(http.MethodGet, "/auth/google/callback?uid="+uid, nil))
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestPublicRoutes(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, fiber.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/healthz", nil)).StatusCode)
	assert.Equal(t, fiber.StatusOK, do(t, app, httptest.NewRequest(http.MethodGet, "/api/plans", nil)).StatusCode)
}

func TestMetricsRequireBasicAuth(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, httptest.NewRequest(http.MethodGet, "/metrics", nil)).StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("metrics", "pw")
	assert.Equal(t, fiber.StatusOK, do(t, app, req).StatusCode)
}

func TestMetricsWithoutCredentials(t *testing.T) {
	prod, _ := newTestAppWith(t, func(d *Dependencies) { d.MetricsUser = "" })
	assert.Equal(t, fiber.StatusNotFound, do(t, prod, httptest.NewRequest(http.MethodGet, "/metrics", nil)).StatusCode)

	dev, _ := newTestAppWith(t, func(d *Dependencies) {
		d.MetricsUser = ""
		d.DevMode = true
	})
	assert.Equal(t, fiber.StatusOK, do(t, dev, httptest.NewRequest(http.MethodGet, "/metrics", nil)).StatusCode)
}

func TestCheckSubscriptionIsNotRateLimited(t *testing.T) {
	app, _ := newTestApp(t)

	for i := 0; i < 150; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/check-subscription?userId=u", nil)
		req.Header.Set("X-Internal-Token", "internal-secret")
		require.Equal(t, fiber.StatusOK, do(t, app, req).StatusCode, "request %d", i+1)
	}
}

func TestPublicAPIRoutesAreRateLimited(t *testing.T) {
	app, _ := newTestApp(t)

	last := 0
	for i := 0; i < 121; i++ {
		last = do(t, app, httptest.NewRequest(http.MethodGet, "/api/plans", nil)).StatusCode
	}
	assert.Equal(t, fiber.StatusTooManyRequests, last)
}

func TestCheckSubscriptionRequiresInternalToken(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/check-subscription?userId=u", nil)
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, req).StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/check-subscription?userId=u", nil)
	req.Header.Set("X-Internal-Token", "internal-secret")
	assert.Equal(t, fiber.StatusOK, do(t, app, req).StatusCode)
}

func TestSessionRoutesRequireLogin(t *testing.T) {
	app, _ := newTestApp(t)

	for _, path := range []string{"/api/account/subscription-status", "/api/meal-plans"} {
		resp := do(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestMealPlansAreGatedBySubscription(t *testing.T) {
	app, repos := newTestApp(t)
	cookie := signIn(t, app, "7")

	list := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/meal-plans", nil)
		req.AddCookie(cookie)
		return do(t, app, req).StatusCode
	}

	// Signed in, account created by the callback, no subscription.
	assert.Equal(t, fiber.StatusForbidden, list())

	_, err := repos.Account.UpdateSubscription(context.Background(), "google|7", models.Subscribed("month", "sub_7"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, list())

	_, err = repos.Account.UpdateSubscription(context.Background(), "google|7", models.Unsubscribed())
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, list())
}
