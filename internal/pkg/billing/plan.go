package billing

import (
	"fmt"
	"strings"
)

// Plan is an offerable subscription plan.
type Plan struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	IsPopular   bool     `json:"isPopular,omitempty"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	PriceID     string   `json:"-"`
}

var planFeatures = []string{
	"Unlimited AI meal plans",
	"AI nutrition insights",
	"Cancel anytime",
}

var defaultPlans = []Plan{
	{
		Type:        "week",
		Name:        "Weekly Plan",
		Amount:      49,
		Currency:    "NOK",
		Interval:    "week",
		Description: "Perfect if you want to try the service before committing longer.",
	},
	{
		Type:        "month",
		Name:        "Monthly Plan",
		Amount:      89,
		Currency:    "NOK",
		Interval:    "month",
		IsPopular:   true,
		Description: "Perfect for ongoing, month-to-month meal planning and features.",
	},
	{
		Type:        "year",
		Name:        "Yearly Plan",
		Amount:      999,
		Currency:    "NOK",
		Interval:    "year",
		Description: "Best value for those committed to improving their diet long-term.",
	},
}

// Catalog is the static set of plans with their Stripe price ids.
type Catalog struct {
	plans []Plan
}

// NewCatalog binds the default plans to Stripe price ids keyed by plan type.
func NewCatalog(priceIDs map[string]string) *Catalog {
	plans := make([]Plan, 0, len(defaultPlans))
	for _, p := range defaultPlans {
		p.Features = append([]string(nil), planFeatures...)
		p.PriceID = strings.TrimSpace(priceIDs[p.Type])
		plans = append(plans, p)
	}
	return &Catalog{plans: plans}
}

// Plans returns a copy of all plans in display order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Lookup resolves a plan type. Unknown types and plans without a configured
// price id return ErrUnknownPlan.
func (c *Catalog) Lookup(planType string) (Plan, error) {
	t := normalizePlanType(planType)
	for _, p := range c.plans {
		if p.Type != t {
			continue
		}
		if p.PriceID == "" {
			return Plan{}, fmt.Errorf("%w: %q has no price configured", ErrUnknownPlan, t)
		}
		return p, nil
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planType)
}

func normalizePlanType(planType string) string {
	switch p := strings.ToLower(strings.TrimSpace(planType)); p {
	case "week", "weekly":
		return "week"
	case "month", "monthly":
		return "month"
	case "year", "yearly":
		return "year"
	default:
		return p
	}
}
