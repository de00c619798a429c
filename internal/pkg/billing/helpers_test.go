package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test_secret"

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}, &models.BillingWebhookEvent{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// fakeGateway records calls and returns canned results.
type fakeGateway struct {
	mu sync.Mutex

	checkoutURL    string
	changedSubID   string
	confirmation   Confirmation
	err            error
	block          bool
	checkoutCalls  int
	changeCalls    []string
	cancelCalls    []string
	lastPlan       Plan
	lastCheckoutBy string
}

func (f *fakeGateway) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return &GatewayError{Op: "blocked", Err: ctx.Err()}
}

func (f *fakeGateway) CreateSubscriptionCheckout(ctx context.Context, plan Plan, userID, email string) (string, error) {
	f.mu.Lock()
	f.checkoutCalls++
	f.lastPlan = plan
	f.lastCheckoutBy = userID
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.checkoutURL, nil
}

func (f *fakeGateway) ChangePlan(ctx context.Context, subscriptionID string, plan Plan) (string, error) {
	f.mu.Lock()
	f.changeCalls = append(f.changeCalls, subscriptionID)
	f.lastPlan = plan
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	if f.changedSubID != "" {
		return f.changedSubID, nil
	}
	return subscriptionID, nil
}

func (f *fakeGateway) CancelSubscription(ctx context.Context, subscriptionID string) (Confirmation, error) {
	f.mu.Lock()
	f.cancelCalls = append(f.cancelCalls, subscriptionID)
	f.mu.Unlock()
	if err := f.wait(ctx); err != nil {
		return Confirmation{}, err
	}
	if f.err != nil {
		return Confirmation{}, f.err
	}
	conf := f.confirmation
	if conf.SubscriptionID == "" {
		conf.SubscriptionID = subscriptionID
		conf.CancelAtPeriodEnd = true
	}
	return conf, nil
}

// recordingInvalidator collects invalidated user ids.
type recordingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

func (r *recordingInvalidator) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.users...)
}

// failingAccounts fails every call with err.
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

func mustAccount(t *testing.T, repos *repository.Repositories, userID string) *models.Account {
	t.Helper()
	account, err := repos.Account.Get(context.Background(), userID)
	require.NoError(t, err)
	return account
}

func requireConsistentTrio(t *testing.T, a *models.Account) {
	t.Helper()
	if a.SubscriptionActive {
		require.NotNil(t, a.SubscriptionTier, "active account without tier")
		require.NotNil(t, a.StripeSubscriptionID, "active account without subscription id")
	}
}

func testCatalog() *Catalog {
	return NewCatalog(map[string]string{
		"week":  "price_week",
		"month": "price_month",
		"year":  "price_year",
	})
}
