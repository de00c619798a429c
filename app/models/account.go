package models

import (
	"errors"
	"strings"
	"time"
)

// Account joins an external sign-in identity to its local subscription state.
// The subscription trio (SubscriptionTier, StripeSubscriptionID,
// SubscriptionActive) is only ever written as a whole via SubscriptionState.
type Account struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_accounts_user_id" json:"userId"`
	Email                string    `gorm:"type:varchar(200);default:''" json:"email"`
	SubscriptionTier     *string   `gorm:"type:varchar(32);default:null" json:"subscriptionTier"`
	StripeSubscriptionID *string   `gorm:"type:varchar(191);default:null;uniqueIndex:ux_accounts_stripe_subscription_id" json:"stripeSubscriptionId"`
	SubscriptionActive   bool      `gorm:"not null;default:false" json:"subscriptionActive"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ErrInvalidSubscriptionState is returned for trios that would mark an account
// active without a tier and subscription id.
var ErrInvalidSubscriptionState = errors.New("active subscription requires tier and subscription id")

// SubscriptionState is the subscription trio written atomically to an Account.
type SubscriptionState struct {
	Tier           *string
	SubscriptionID *string
	Active         bool
}

// Subscribed is the state after a confirmed checkout or plan change.
func Subscribed(tier, subscriptionID string) SubscriptionState {
	return SubscriptionState{
		Tier:           stringPtr(tier),
		SubscriptionID: stringPtr(subscriptionID),
		Active:         true,
	}
}

// Delinquent keeps the subscription reference but revokes entitlement.
func Delinquent(tier *string, subscriptionID *string) SubscriptionState {
	return SubscriptionState{
		Tier:           cloneString(tier),
		SubscriptionID: cloneString(subscriptionID),
		Active:         false,
	}
}

// Unsubscribed clears the trio.
func Unsubscribed() SubscriptionState {
	return SubscriptionState{}
}

// Validate rejects trios that break the active-implies-identified invariant.
func (s SubscriptionState) Validate() error {
	if !s.Active {
		return nil
	}
	if s.Tier == nil || strings.TrimSpace(*s.Tier) == "" {
		return ErrInvalidSubscriptionState
	}
	if s.SubscriptionID == nil || strings.TrimSpace(*s.SubscriptionID) == "" {
		return ErrInvalidSubscriptionState
	}
	return nil
}

// State returns the account's current subscription trio.
func (a *Account) State() SubscriptionState {
	return SubscriptionState{
		Tier:           cloneString(a.SubscriptionTier),
		SubscriptionID: cloneString(a.StripeSubscriptionID),
		Active:         a.SubscriptionActive,
	}
}

// Apply copies the trio onto the account.
func (a *Account) Apply(s SubscriptionState) {
	a.SubscriptionTier = cloneString(s.Tier)
	a.StripeSubscriptionID = cloneString(s.SubscriptionID)
	a.SubscriptionActive = s.Active
}

// HasSubscription reports whether a processor subscription is tracked.
func (a *Account) HasSubscription() bool {
	return a != nil && a.StripeSubscriptionID != nil && *a.StripeSubscriptionID != ""
}

func stringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
