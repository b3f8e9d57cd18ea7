package plans

import "github.com/mercato-local/marketplace/internal/models"

// Unlimited marks a limit with no cap.
const Unlimited = -1

// Limits defines the resource caps and feature flags for one plan tier.
type Limits struct {
	MaxProducts          int     // Max product rows per store.
	MaxPromotions        int     // Max promotion rows per store.
	MaxCouponsPerMonth   int     // Max coupon rows per store.
	AllowsFlashPromotion bool    // Whether flash promotions are permitted.
	AllowsAnalytics      bool    // Whether advanced analytics are exposed.
	AllowsHighlights     bool    // Whether the store competes for highlights.
	HighlightWeight      float64 // Base placement weight for the tier.
}

// catalog is the single authoritative plan table. Changing a limit is a code
// deploy, not a data migration.
var catalog = map[string]Limits{
	models.PlanFreemium: {
		MaxProducts:        10,
		MaxPromotions:      1,
		MaxCouponsPerMonth: 2,
		AllowsHighlights:   true,
		HighlightWeight:    1,
	},
	models.PlanStart: {
		MaxProducts:        50,
		MaxPromotions:      5,
		MaxCouponsPerMonth: 10,
		AllowsHighlights:   true,
		HighlightWeight:    3,
	},
	models.PlanPro: {
		MaxProducts:          200,
		MaxPromotions:        20,
		MaxCouponsPerMonth:   40,
		AllowsFlashPromotion: true,
		AllowsAnalytics:      true,
		AllowsHighlights:     true,
		HighlightWeight:      4,
	},
	models.PlanPremium: {
		MaxProducts:          Unlimited,
		MaxPromotions:        Unlimited,
		MaxCouponsPerMonth:   Unlimited,
		AllowsFlashPromotion: true,
		AllowsAnalytics:      true,
		AllowsHighlights:     true,
		HighlightWeight:      5,
	},
}

// trialLimits is the effective limit set while a trial overlay is active:
// full premium behavior regardless of the stored plan name.
var trialLimits = Limits{
	MaxProducts:          Unlimited,
	MaxPromotions:        Unlimited,
	MaxCouponsPerMonth:   Unlimited,
	AllowsFlashPromotion: true,
	AllowsAnalytics:      true,
	AllowsHighlights:     true,
	HighlightWeight:      2,
}

// planOrder defines upgrade ordering for suggestion purposes.
var planOrder = []string{models.PlanFreemium, models.PlanStart, models.PlanPro, models.PlanPremium}

// LimitsFor returns the catalog limits for a plan name, defaulting to
// freemium for unknown plans.
func LimitsFor(plan string) Limits {
	if limits, ok := catalog[plan]; ok {
		return limits
	}
	return catalog[models.PlanFreemium]
}

// TrialLimits returns the limit set applied during an active trial.
func TrialLimits() Limits {
	return trialLimits
}

// Names returns plan names in ascending tier order.
func Names() []string {
	out := make([]string, len(planOrder))
	copy(out, planOrder)
	return out
}

// Rank returns the ordinal of a plan in the tier ordering, or 0 for
// unknown plans.
func Rank(plan string) int {
	for i, name := range planOrder {
		if name == plan {
			return i
		}
	}
	return 0
}

// NextAbove returns the cheapest plan strictly above the given one. Premium
// has no upgrade and returns an empty string.
func NextAbove(plan string) string {
	rank := Rank(plan)
	if rank+1 >= len(planOrder) {
		return ""
	}
	return planOrder[rank+1]
}

// FromCheckoutID maps the numeric checkout plan identifier to a plan name.
func FromCheckoutID(id int) (string, bool) {
	switch id {
	case 2:
		return models.PlanStart, true
	case 3:
		return models.PlanPro, true
	case 4:
		return models.PlanPremium, true
	default:
		return "", false
	}
}
