package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service runs the user-initiated billing flows and webhook processing.
type Service struct {
	accounts    repository.AccountRepository
	deliveries  repository.WebhookEventRepository
	gateway     Gateway
	catalog     *Catalog
	reconciler  *Reconciler
	invalidator EntitlementInvalidator
}

// NewService creates a billing service from injected dependencies.
// invalidator may be nil.
func NewService(
	repos *repository.Repositories,
	gateway Gateway,
	catalog *Catalog,
	invalidator EntitlementInvalidator,
) *Service {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &Service{
		accounts:    repos.Account,
		deliveries:  repos.WebhookEvent,
		gateway:     gateway,
		catalog:     catalog,
		reconciler:  NewReconciler(repos.Account, invalidator),
		invalidator: invalidator,
	}
}

// Catalog returns the plan catalog.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// EnsureAccount creates the user's account on first sign-in and returns the
// stored account on every later call.
func (s *Service) EnsureAccount(ctx context.Context, userID, email string) (*models.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthorized
	}
	account, err := s.accounts.Create(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, userID)
	return account, nil
}

// Account returns the user's account.
func (s *Service) Account(ctx context.Context, userID string) (*models.Account, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthorized
	}
	account, err := s.accounts.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// StartCheckout creates a hosted subscription checkout for planType.
func (s *Service) StartCheckout(ctx context.Context, userID, email, planType string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrUnauthorized
	}
	plan, err := s.catalog.Lookup(planType)
	if err != nil {
		return "", err
	}
	return s.gateway.CreateSubscriptionCheckout(ctx, plan, userID, strings.TrimSpace(email))
}

// ChangePlan moves the user's subscription to newPlanType. The local trio is
// written only after the processor confirmed the change.
func (s *Service) ChangePlan(ctx context.Context, userID, newPlanType string) (*models.Account, error) {
	account, err := s.subscribedAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.catalog.Lookup(newPlanType)
	if err != nil {
		return nil, err
	}

	subscriptionID, err := s.gateway.ChangePlan(ctx, *account.StripeSubscriptionID, plan)
	if err != nil {
		return nil, err
	}

	updated, err := s.accounts.UpdateSubscription(ctx, account.UserID, models.Subscribed(plan.Type, subscriptionID))
	if err != nil {
		log.Error().Err(err).Str("user_id", account.UserID).Str("subscription_id", subscriptionID).
			Msg("plan changed at Stripe but local update failed")
		return nil, err
	}
	s.invalidator.Invalidate(ctx, account.UserID)

	log.Info().Str("user_id", account.UserID).Str("subscription_id", subscriptionID).Str("tier", plan.Type).Msg("plan changed")
	return updated, nil
}

// CancelSubscription schedules period-end cancellation at the processor and
// revokes local entitlement right away.
func (s *Service) CancelSubscription(ctx context.Context, userID string) (*models.Account, Confirmation, error) {
	account, err := s.subscribedAccount(ctx, userID)
	if err != nil {
		return nil, Confirmation{}, err
	}

	conf, err := s.gateway.CancelSubscription(ctx, *account.StripeSubscriptionID)
	if err != nil {
		return nil, Confirmation{}, err
	}

	updated, err := s.accounts.UpdateSubscription(ctx, account.UserID, models.Unsubscribed())
	if err != nil {
		log.Error().Err(err).Str("user_id", account.UserID).Str("subscription_id", conf.SubscriptionID).
			Msg("subscription cancelled at Stripe but local update failed")
		return nil, Confirmation{}, err
	}
	s.invalidator.Invalidate(ctx, account.UserID)

	log.Info().Str("user_id", account.UserID).Str("subscription_id", conf.SubscriptionID).
		Time("period_end", conf.CurrentPeriodEnd).Msg("subscription cancelled")
	return updated, conf, nil
}

// ProcessEvent reconciles a verified webhook event once. It reports
// duplicate=true when an earlier delivery of the same event already
// succeeded. Failed deliveries are processed again.
func (s *Service) ProcessEvent(ctx context.Context, event Event) (duplicate bool, err error) {
	if event.EventID() == "" {
		return false, s.reconciler.Apply(ctx, event)
	}

	delivery, err := s.deliveries.BeginDelivery(ctx, models.BillingProviderStripe, event.EventID(), event.Kind())
	if err != nil {
		return false, &ReconciliationError{EventID: event.EventID(), Kind: event.Kind(), Err: err}
	}
	if delivery.Succeeded() {
		log.Info().Str("event_id", event.EventID()).Int("attempts", delivery.Attempts).Msg("billing event already processed")
		return true, nil
	}

	applyErr := s.reconciler.Apply(ctx, event)
	processingError := ""
	if applyErr != nil {
		processingError = applyErr.Error()
	}
	if err := s.deliveries.MarkProcessed(ctx, delivery.ID, processingError); err != nil {
		log.Warn().Err(err).Str("event_id", event.EventID()).Msg("failed to record webhook outcome")
	}
	return false, applyErr
}

func (s *Service) subscribedAccount(ctx context.Context, userID string) (*models.Account, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.HasSubscription() {
		return nil, ErrNotSubscribed
	}
	return account, nil
}
