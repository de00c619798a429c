package billing

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/MealFox/internal/pkg/metrics"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

const defaultGatewayTimeout = 20 * time.Second

var errNoSubscriptionItem = errors.New("subscription has no items")

// StripeGatewayConfig holds the checkout redirect targets and call timeout.
type StripeGatewayConfig struct {
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// StripeGateway implements Gateway on the Stripe API.
type StripeGateway struct {
	api *client.API
	cfg StripeGatewayConfig
}

// NewStripeClient creates a Stripe API client for the given secret key.
func NewStripeClient(secretKey string) *client.API {
	return client.New(secretKey, nil)
}

// NewStripeGateway wraps a Stripe API client.
func NewStripeGateway(api *client.API, cfg StripeGatewayConfig) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGatewayTimeout
	}
	return &StripeGateway{api: api, cfg: cfg}
}

func (g *StripeGateway) CreateSubscriptionCheckout(ctx context.Context, plan Plan, userID, email string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	metadata := map[string]string{
		"userId":   userID,
		"planType": plan.Type,
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", g.fail("create_checkout", err)
	}
	g.ok("create_checkout")
	return session.URL, nil
}

func (g *StripeGateway) ChangePlan(ctx context.Context, subscriptionID string, plan Plan) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := g.api.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return "", g.fail("change_plan", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 || current.Items.Data[0] == nil {
		return "", g.fail("change_plan", errNoSubscriptionItem)
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		ProrationBehavior: stripe.String("create_prorations"),
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(plan.PriceID),
			},
		},
	}
	params.Context = ctx

	updated, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return "", g.fail("change_plan", err)
	}
	g.ok("change_plan")
	return updated.ID, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) (Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	updated, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return Confirmation{}, g.fail("cancel_subscription", err)
	}
	g.ok("cancel_subscription")

	conf := Confirmation{
		SubscriptionID:    updated.ID,
		CancelAtPeriodEnd: updated.CancelAtPeriodEnd,
	}
	if updated.CurrentPeriodEnd > 0 {
		conf.CurrentPeriodEnd = time.Unix(updated.CurrentPeriodEnd, 0).UTC()
	}
	return conf, nil
}

func (g *StripeGateway) ok(op string) {
	metrics.GatewayCallsTotal.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
}

func (g *StripeGateway) fail(op string, err error) error {
	metrics.GatewayCallsTotal.WithLabelValues(op, metrics.OutcomeError).Inc()

	evt := log.Warn().Err(err).Str("operation", op)
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		evt = evt.Int("http_status", stripeErr.HTTPStatusCode).
			Str("stripe_code", string(stripeErr.Code)).
			Str("request_id", stripeErr.RequestID)
	}
	evt.Msg("Stripe call failed")

	return &GatewayError{Op: op, Err: err}
}
