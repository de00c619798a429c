package repository

import (
	"context"
	"strings"

	"github.com/ManuelReschke/MealFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Get retrieves an account by its external user id
func (r *accountRepository) Get(ctx context.Context, userID string) (*models.Account, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var account models.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBySubscriptionID retrieves the account tracking a processor subscription
func (r *accountRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Account, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var account models.Account
	if err := r.db.WithContext(ctx).Where("stripe_subscription_id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Create inserts an unsubscribed account. An existing account for the same
// user id is returned unchanged.
func (r *accountRepository) Create(ctx context.Context, userID, email string) (*models.Account, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, gorm.ErrInvalidValue
	}
	account := &models.Account{
		UserID: id,
		Email:  strings.TrimSpace(email),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(account).Error; err != nil {
		return nil, err
	}

	// Re-read so duplicate calls see the stored row, not the discarded insert.
	return r.Get(ctx, id)
}

// UpdateSubscription replaces the subscription trio of an existing account.
func (r *accountRepository) UpdateSubscription(ctx context.Context, userID string, state models.SubscriptionState) (*models.Account, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var account models.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).First(&account).Error; err != nil {
			return err
		}
		account.Apply(state)
		return tx.Model(&account).
			Select("subscription_tier", "stripe_subscription_id", "subscription_active", "updated_at").
			Updates(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
