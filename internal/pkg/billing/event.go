package billing

// Stripe event types consumed by the reconciler.
const (
	StripeEventCheckoutCompleted   = "checkout.session.completed"
	StripeEventPaymentFailed       = "invoice.payment_failed"
	StripeEventSubscriptionDeleted = "customer.subscription.deleted"
)

// Event kinds used in logs and metrics.
const (
	KindCheckoutCompleted   = "checkout-completed"
	KindPaymentFailed       = "payment-failed"
	KindSubscriptionDeleted = "subscription-deleted"
	KindUnrecognized        = "unrecognized"
)

// Event is a verified billing event. The set of implementations is closed.
type Event interface {
	EventID() string
	Kind() string
	isEvent()
}

// CheckoutCompleted is emitted when a subscription checkout was paid.
type CheckoutCompleted struct {
	ID             string
	UserID         string
	SubscriptionID string
	Tier           string
}

// PaymentFailed is emitted when a subscription invoice could not be charged.
type PaymentFailed struct {
	ID             string
	SubscriptionID string
}

// SubscriptionDeleted is emitted when the processor ended a subscription.
type SubscriptionDeleted struct {
	ID             string
	SubscriptionID string
}

// Unrecognized is any other event type. It is acknowledged and ignored.
type Unrecognized struct {
	ID   string
	Type string
}

func (e CheckoutCompleted) EventID() string   { return e.ID }
func (e PaymentFailed) EventID() string       { return e.ID }
func (e SubscriptionDeleted) EventID() string { return e.ID }
func (e Unrecognized) EventID() string        { return e.ID }

func (CheckoutCompleted) Kind() string   { return KindCheckoutCompleted }
func (PaymentFailed) Kind() string       { return KindPaymentFailed }
func (SubscriptionDeleted) Kind() string { return KindSubscriptionDeleted }
func (Unrecognized) Kind() string        { return KindUnrecognized }

func (CheckoutCompleted) isEvent()   {}
func (PaymentFailed) isEvent()       {}
func (SubscriptionDeleted) isEvent() {}
func (Unrecognized) isEvent()        {}
