package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/ManuelReschke/MealFox/internal/pkg/billing"
	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testWebhookSecret = "whsec_controller_test"
	testUserHeader    = "X-Test-User"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.BillingWebhookEvent{}, &models.MealPlan{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testCatalog() *billing.Catalog {
	return billing.NewCatalog(map[string]string{
		"week":  "price_week",
		"month": "price_month",
		"year":  "price_year",
	})
}

// withTestUser stands in for the session middleware: the user id comes from
// a request header.
func withTestUser(c *fiber.Ctx) error {
	if id := c.Get(testUserHeader); id != "" {
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     id,
			Email:      id + "@example.com",
			IsLoggedIn: true,
		})
	}
	return c.Next()
}

// stubGateway returns canned results and counts calls.
type stubGateway struct {
	url          string
	newSubID     string
	err          error
	checkouts    int
	changes      int
	cancels      int
	lastPlanType string
}

func (s *stubGateway) CreateSubscriptionCheckout(_ context.Context, plan billing.Plan, _, _ string) (string, error) {
	s.checkouts++
	s.lastPlanType = plan.Type
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func (s *stubGateway) ChangePlan(_ context.Context, subscriptionID string, plan billing.Plan) (string, error) {
	s.changes++
	s.lastPlanType = plan.Type
	if s.err != nil {
		return "", s.err
	}
	if s.newSubID != "" {
		return s.newSubID, nil
	}
	return subscriptionID, nil
}

func (s *stubGateway) CancelSubscription(_ context.Context, subscriptionID string) (billing.Confirmation, error) {
	s.cancels++
	if s.err != nil {
		return billing.Confirmation{}, s.err
	}
	return billing.Confirmation{
		SubscriptionID:    subscriptionID,
		CancelAtPeriodEnd: true,
		CurrentPeriodEnd:  time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

// failingAccounts fails every account call.
type failingAccounts struct {
	err error
}

func (f failingAccounts) Get(context.Context, string) (*models.Account, error) { return nil, f.err }
func (f failingAccounts) GetBySubscriptionID(context.Context, string) (*models.Account, error) {
	return nil, f.err
}
func (f failingAccounts) Create(context.Context, string, string) (*models.Account, error) {
	return nil, f.err
}
func (f failingAccounts) UpdateSubscription(context.Context, string, models.SubscriptionState) (*models.Account, error) {
	return nil, f.err
}

func subscribe(t *testing.T, repos *repository.Repositories, userID, tier, subID string) {
	t.Helper()
	ctx := context.Background()
	_, err := repos.Account.Create(ctx, userID, userID+"@example.com")
	require.NoError(t, err)
	_, err = repos.Account.UpdateSubscription(ctx, userID, models.Subscribed(tier, subID))
	require.NoError(t, err)
}

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}
