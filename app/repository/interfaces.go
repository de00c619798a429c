package repository

import (
	"context"

	"github.com/ManuelReschke/MealFox/app/models"
	"gorm.io/gorm"
)

// AccountRepository is the account store. Lookups return gorm.ErrRecordNotFound
// when no account matches. Subscription fields are only written as a whole
// through UpdateSubscription.
type AccountRepository interface {
	Get(ctx context.Context, userID string) (*models.Account, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Account, error)
	Create(ctx context.Context, userID, email string) (*models.Account, error)
	UpdateSubscription(ctx context.Context, userID string, state models.SubscriptionState) (*models.Account, error)
}

// WebhookEventRepository persists webhook delivery metadata.
type WebhookEventRepository interface {
	BeginDelivery(ctx context.Context, provider, providerEventID, eventType string) (*models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// MealPlanRepository defines the saved meal plan operations
type MealPlanRepository interface {
	Create(ctx context.Context, plan *models.MealPlan) error
	GetByID(ctx context.Context, id string) (*models.MealPlan, error)
	ListByUser(ctx context.Context, userID string) ([]models.MealPlan, error)
	Delete(ctx context.Context, id string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Account      AccountRepository
	WebhookEvent WebhookEventRepository
	MealPlan     MealPlanRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:      NewAccountRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		MealPlan:     NewMealPlanRepository(db),
	}
}
