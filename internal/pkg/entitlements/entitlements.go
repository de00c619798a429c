package entitlements

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/internal/pkg/metrics"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AccountReader is the part of the account store the gate needs.
type AccountReader interface {
	Get(ctx context.Context, userID string) (*models.Account, error)
}

// Gate decides whether a user may use gated functionality. The decision is
// the account's subscriptionActive flag. When in doubt it denies: unknown
// accounts are not entitled and store failures return false with the error.
type Gate struct {
	accounts AccountReader
	cache    *Cache
}

// NewGate creates a gate. cache may be nil to always read the store.
func NewGate(accounts AccountReader, cache *Cache) *Gate {
	return &Gate{accounts: accounts, cache: cache}
}

// IsEntitled reports whether userID currently holds an active subscription.
func (g *Gate) IsEntitled(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		metrics.EntitlementDecisionsTotal.WithLabelValues("denied").Inc()
		return false, nil
	}

	if g.cache != nil {
		entitled, found, err := g.cache.Get(ctx, userID)
		switch {
		case err != nil:
			metrics.EntitlementCacheTotal.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("user_id", userID).Msg("entitlement cache read failed, using store")
		case found:
			metrics.EntitlementCacheTotal.WithLabelValues("hit").Inc()
			return record(entitled), nil
		default:
			metrics.EntitlementCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	account, err := g.accounts.Get(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record(false), nil
	}
	if err != nil {
		metrics.EntitlementDecisionsTotal.WithLabelValues("error").Inc()
		return false, err
	}

	entitled := account.SubscriptionActive
	if g.cache != nil {
		if err := g.cache.Set(ctx, userID, entitled); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("entitlement cache write failed")
		}
	}
	return record(entitled), nil
}

// Invalidate drops the cached decision for userID. It is called after every
// write of the subscription trio.
func (g *Gate) Invalidate(ctx context.Context, userID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("entitlement cache invalidation failed")
	}
}

func record(entitled bool) bool {
	if entitled {
		metrics.EntitlementDecisionsTotal.WithLabelValues("allowed").Inc()
	} else {
		metrics.EntitlementDecisionsTotal.WithLabelValues("denied").Inc()
	}
	return entitled
}
