package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenGate struct{}

func (brokenGate) IsEntitled(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func newBillingApp(repos *repository.Repositories, gw billing.Gateway, gate EntitlementChecker, secret string) *fiber.App {
	svc := billing.NewService(repos, gw, testCatalog(), nil)
	bc := NewBillingController(svc, gate, secret)

	app := fiber.New()
	app.Use(withTestUser)
	app.Get("/api/plans", bc.HandlePlans)
	app.Post("/api/checkout", bc.HandleCheckout)
	app.Get("/api/check-subscription", bc.HandleCheckSubscription)
	app.Post("/api/webhook", bc.HandleStripeWebhook)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, payload, signature string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

const checkoutEvent = `{"id":"evt_checkout_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","mode":"subscription","subscription":"sub_1","metadata":{"userId":"user_1","planType":"month"}}}}`

func TestStripeWebhookActivatesSubscription(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, entitlements.NewGate(repos.Account, nil), testWebhookSecret)

	resp, body := postWebhook(t, app, checkoutEvent, signPayload([]byte(checkoutEvent), testWebhookSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])
	assert.Nil(t, body["duplicate"])

	account, err := repos.Account.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.True(t, account.SubscriptionActive)
	assert.Equal(t, "month", *account.SubscriptionTier)
	assert.Equal(t, "sub_1", *account.StripeSubscriptionID)

	// Stripe redelivers the same event.
	resp, body = postWebhook(t, app, checkoutEvent, signPayload([]byte(checkoutEvent), testWebhookSecret))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["duplicate"])
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, entitlements.NewGate(repos.Account, nil), testWebhookSecret)

	for name, sig := range map[string]string{
		"missing":      "",
		"wrong secret": signPayload([]byte(checkoutEvent), "whsec_other"),
		"garbage":      "t=1,v1=deadbeef",
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := postWebhook(t, app, checkoutEvent, sig)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_signature", body["error"])
		})
	}

	_, err := repos.Account.Get(context.Background(), "user_1")
	assert.Error(t, err, "unverified event must not create an account")
}

func TestStripeWebhookMalformedPayload(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, entitlements.NewGate(repos.Account, nil), testWebhookSecret)

	payload := `{"id":"evt_bad","object":"event","type":"invoice.payment_failed","data":{"object":{"subscription":42}}}`
	resp, body := postWebhook(t, app, payload, signPayload([]byte(payload), testWebhookSecret))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_payload", body["error"])
}

func TestStripeWebhookStoreFailureAsksForRetry(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	repos.Account = failingAccounts{err: errors.New("connection refused")}
	app := newBillingApp(repos, &stubGateway{}, brokenGate{}, testWebhookSecret)

	resp, body := postWebhook(t, app, checkoutEvent, signPayload([]byte(checkoutEvent), testWebhookSecret))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "processing failed", body["error"])
}

func TestStripeWebhookWithoutSecret(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, brokenGate{}, "")

	resp, _ := postWebhook(t, app, checkoutEvent, signPayload([]byte(checkoutEvent), testWebhookSecret))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestStripeWebhookIgnoresUnrecognizedEvents(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, brokenGate{}, testWebhookSecret)

	payload := `{"id":"evt_paid","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`
	resp, body := postWebhook(t, app, payload, signPayload([]byte(payload), testWebhookSecret))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])
}

func TestCheckSubscription(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	subscribe(t, repos, "paying", "year", "sub_paying")
	_, err := repos.Account.Create(context.Background(), "free", "")
	require.NoError(t, err)
	app := newBillingApp(repos, &stubGateway{}, entitlements.NewGate(repos.Account, nil), testWebhookSecret)

	resp, body := doJSON(t, app, http.MethodGet, "/api/check-subscription", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing user ID", body["error"])

	tests := map[string]bool{"paying": true, "free": false, "nobody": false}
	for userID, want := range tests {
		resp, body := doJSON(t, app, http.MethodGet, "/api/check-subscription?userId="+userID, "", nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, want, body["subscriptionActive"], userID)
	}
}

func TestCheckSubscriptionStoreFailure(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, brokenGate{}, testWebhookSecret)

	resp, body := doJSON(t, app, http.MethodGet, "/api/check-subscription?userId=u1", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body, "subscriptionActive")
}

func TestPlans(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	app := newBillingApp(repos, &stubGateway{}, brokenGate{}, testWebhookSecret)

	resp, body := doJSON(t, app, http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	plans, ok := body["plans"].([]interface{})
	require.True(t, ok)
	require.Len(t, plans, 3)
	for _, p := range plans {
		plan := p.(map[string]interface{})
		assert.NotContains(t, plan, "PriceID", "price ids stay server side")
	}
}

func TestCheckout(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	gw := &stubGateway{url: "https://checkout.stripe.test/cs_1"}
	app := newBillingApp(repos, gw, brokenGate{}, testWebhookSecret)

	resp, body := doJSON(t, app, http.MethodPost, "/api/checkout", "user_1", map[string]string{"planType": "month"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", body["url"])
	assert.Equal(t, "month", gw.lastPlanType)

	resp, body = doJSON(t, app, http.MethodPost, "/api/checkout", "user_1", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Plan type is required.", body["error"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/checkout", "user_1", map[string]string{"planType": "decade"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unknown plan type.", body["error"])
	assert.Equal(t, 1, gw.checkouts, "unknown plans never reach Stripe")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/checkout", "", map[string]string{"planType": "month"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutGatewayFailure(t *testing.T) {
	repos := repository.NewRepositories(newTestDB(t))
	gw := &stubGateway{err: &billing.GatewayError{Op: "checkout", Err: errors.New("card network down")}}
	app := newBillingApp(repos, gw, brokenGate{}, testWebhookSecret)

	resp, body := doJSON(t, app, http.MethodPost, "/api/checkout", "user_1", map[string]string{"planType": "week"})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, genericErrorMessage, body["error"])
}
