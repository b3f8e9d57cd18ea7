package plans

import (
	"testing"

	"github.com/mercato-local/marketplace/internal/models"
)

func TestNextAbove_StrictlyAboveCurrent(t *testing.T) {
	for _, plan := range Names() {
		next := NextAbove(plan)
		if plan == models.PlanPremium {
			if next != "" {
				t.Fatalf("expected no upgrade above premium, got %q", next)
			}
			continue
		}
		if next == "" {
			t.Fatalf("expected an upgrade suggestion for %q", plan)
		}
		if Rank(next) <= Rank(plan) {
			t.Fatalf("suggestion %q is not above %q", next, plan)
		}
	}
}

func TestLimitsFor_UnknownPlanFallsBackToFreemium(t *testing.T) {
	limits := LimitsFor("enterprise")
	if limits != LimitsFor(models.PlanFreemium) {
		t.Fatalf("expected freemium limits for unknown plan, got %+v", limits)
	}
}

func TestFromCheckoutID(t *testing.T) {
	cases := []struct {
		id   int
		plan string
		ok   bool
	}{
		{2, models.PlanStart, true},
		{3, models.PlanPro, true},
		{4, models.PlanPremium, true},
		{1, "", false},
		{5, "", false},
	}
	for _, tc := range cases {
		plan, ok := FromCheckoutID(tc.id)
		if plan != tc.plan || ok != tc.ok {
			t.Fatalf("FromCheckoutID(%d) = (%q, %v), expected (%q, %v)", tc.id, plan, ok, tc.plan, tc.ok)
		}
	}
}

func TestTrialLimits_Unlimited(t *testing.T) {
	limits := TrialLimits()
	if limits.MaxProducts != Unlimited || limits.MaxPromotions != Unlimited || limits.MaxCouponsPerMonth != Unlimited {
		t.Fatalf("expected unlimited trial limits, got %+v", limits)
	}
	if limits.HighlightWeight != 2 {
		t.Fatalf("expected trial highlight weight 2, got %v", limits.HighlightWeight)
	}
}
