package repository

import (
	"context"

	"github.com/ManuelReschke/MealFox/app/models"
	"gorm.io/gorm"
)

// mealPlanRepository implements the MealPlanRepository interface
type mealPlanRepository struct {
	db *gorm.DB
}

// NewMealPlanRepository creates a new meal plan repository instance
func NewMealPlanRepository(db *gorm.DB) MealPlanRepository {
	return &mealPlanRepository{db: db}
}

// Create stores a new meal plan
func (r *mealPlanRepository) Create(ctx context.Context, plan *models.MealPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// GetByID retrieves a meal plan by its UUID
func (r *mealPlanRepository) GetByID(ctx context.Context, id string) (*models.MealPlan, error) {
	var plan models.MealPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListByUser returns the user's meal plans, newest first
func (r *mealPlanRepository) ListByUser(ctx context.Context, userID string) ([]models.MealPlan, error) {
	var plans []models.MealPlan
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&plans).Error
	return plans, err
}

// Delete removes a meal plan
func (r *mealPlanRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MealPlan{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
