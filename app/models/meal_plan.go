package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealPlan is a saved, user-owned meal plan document. The plan and preference
// payloads are stored as opaque JSON.
type MealPlan struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(191);not null;index" json:"userId"`
	Title           string    `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	PreferencesJSON string    `gorm:"type:text" json:"-"`
	PlanJSON        string    `gorm:"type:longtext;not null" json:"-" validate:"required"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (m *MealPlan) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m *MealPlan) Validate() error {
	v := validator.New()

	return v.Struct(m)
}

// OwnedBy reports whether userID owns the plan.
func (m *MealPlan) OwnedBy(userID string) bool {
	return m != nil && userID != "" && m.UserID == userID
}
