package billing

import (
	"context"
	"time"
)

// Confirmation is the processor's answer to a cancellation request.
type Confirmation struct {
	SubscriptionID    string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// Gateway is the outbound side of the payment processor. Every method returns
// a *GatewayError on failure and never touches local state.
type Gateway interface {
	// CreateSubscriptionCheckout starts a hosted checkout and returns its URL.
	CreateSubscriptionCheckout(ctx context.Context, plan Plan, userID, email string) (string, error)
	// ChangePlan swaps the priced item of a subscription and clears any
	// pending cancellation. It returns the subscription id to store.
	ChangePlan(ctx context.Context, subscriptionID string, plan Plan) (string, error)
	// CancelSubscription schedules cancellation at the end of the period.
	CancelSubscription(ctx context.Context, subscriptionID string) (Confirmation, error)
}
