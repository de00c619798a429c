package billing

import (
	"context"
	"errors"

	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/ManuelReschke/MealFox/internal/pkg/metrics"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EntitlementInvalidator drops any cached entitlement decision for a user.
type EntitlementInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}

// Reconciler applies verified billing events to the account store. Every
// handler writes an absolute target state, so replays converge.
type Reconciler struct {
	accounts    repository.AccountRepository
	invalidator EntitlementInvalidator
}

// NewReconciler creates a reconciler. invalidator may be nil.
func NewReconciler(accounts repository.AccountRepository, invalidator EntitlementInvalidator) *Reconciler {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &Reconciler{accounts: accounts, invalidator: invalidator}
}

// Apply reconciles one event. Events that match no account are logged no-ops;
// only store failures return an error, always a *ReconciliationError.
func (r *Reconciler) Apply(ctx context.Context, event Event) error {
	var (
		applied bool
		err     error
	)
	switch e := event.(type) {
	case CheckoutCompleted:
		applied, err = r.checkoutCompleted(ctx, e)
	case PaymentFailed:
		applied, err = r.paymentFailed(ctx, e)
	case SubscriptionDeleted:
		applied, err = r.subscriptionDeleted(ctx, e)
	default:
		log.Info().Str("event_id", event.EventID()).Str("event_kind", event.Kind()).Msg("Billing event ignored (unhandled type)")
	}

	switch {
	case err != nil:
		metrics.ReconcileTotal.WithLabelValues(event.Kind(), metrics.OutcomeError).Inc()
		return &ReconciliationError{EventID: event.EventID(), Kind: event.Kind(), Err: err}
	case applied:
		metrics.ReconcileTotal.WithLabelValues(event.Kind(), metrics.OutcomeApplied).Inc()
	default:
		metrics.ReconcileTotal.WithLabelValues(event.Kind(), metrics.OutcomeNoop).Inc()
	}
	return nil
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, e CheckoutCompleted) (bool, error) {
	logger := log.With().Str("event_id", e.ID).Str("user_id", e.UserID).Str("subscription_id", e.SubscriptionID).Logger()
	if e.UserID == "" || e.SubscriptionID == "" || e.Tier == "" {
		logger.Warn().Str("tier", e.Tier).Msg("checkout completed without user id, subscription id or plan type, skipping")
		return false, nil
	}

	if _, err := r.accounts.Get(ctx, e.UserID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		logger.Warn().Msg("checkout completed for unknown account, creating it")
		if _, err := r.accounts.Create(ctx, e.UserID, ""); err != nil {
			return false, err
		}
	}

	if _, err := r.accounts.UpdateSubscription(ctx, e.UserID, models.Subscribed(e.Tier, e.SubscriptionID)); err != nil {
		return false, err
	}
	r.invalidator.Invalidate(ctx, e.UserID)
	logger.Info().Str("tier", e.Tier).Msg("subscription activated")
	return true, nil
}

func (r *Reconciler) paymentFailed(ctx context.Context, e PaymentFailed) (bool, error) {
	account, found, err := r.lookup(ctx, e.ID, e.SubscriptionID)
	if err != nil || !found {
		return false, err
	}

	state := models.Delinquent(account.SubscriptionTier, account.StripeSubscriptionID)
	if _, err := r.accounts.UpdateSubscription(ctx, account.UserID, state); err != nil {
		return false, err
	}
	r.invalidator.Invalidate(ctx, account.UserID)
	log.Info().Str("event_id", e.ID).Str("user_id", account.UserID).Str("subscription_id", e.SubscriptionID).Msg("subscription marked delinquent")
	return true, nil
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, e SubscriptionDeleted) (bool, error) {
	account, found, err := r.lookup(ctx, e.ID, e.SubscriptionID)
	if err != nil || !found {
		return false, err
	}

	if _, err := r.accounts.UpdateSubscription(ctx, account.UserID, models.Unsubscribed()); err != nil {
		return false, err
	}
	r.invalidator.Invalidate(ctx, account.UserID)
	log.Info().Str("event_id", e.ID).Str("user_id", account.UserID).Str("subscription_id", e.SubscriptionID).Msg("subscription cleared")
	return true, nil
}

// lookup resolves the account tracking a subscription. A missing account is
// not an error.
func (r *Reconciler) lookup(ctx context.Context, eventID, subscriptionID string) (*models.Account, bool, error) {
	if subscriptionID == "" {
		log.Warn().Str("event_id", eventID).Msg("billing event without subscription id, skipping")
		return nil, false, nil
	}
	account, err := r.accounts.GetBySubscriptionID(ctx, subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info().Str("event_id", eventID).Str("subscription_id", subscriptionID).Msg("no account for subscription, skipping")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}
