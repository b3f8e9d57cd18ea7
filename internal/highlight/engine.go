package highlight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mercato-local/marketplace/internal/models"

	"gorm.io/gorm"
)

const (
	// impressionPenaltyDivisor converts lifetime impressions into a weight
	// penalty: one full point per thousand impressions.
	impressionPenaltyDivisor = 1000.0
	// maxImpressionPenalty caps how much exposure can cost a store.
	maxImpressionPenalty = 0.5
	// minCalculatedWeight keeps every candidate rankable; penalties never
	// fully exclude a store.
	minCalculatedWeight = 0.1
	// recencyFairnessGap is the lastHighlightedAt spread beyond which the
	// less-recently-shown candidate wins regardless of weight.
	recencyFairnessGap = 6 * time.Hour
)

// Placement is one (store, product) entry in a home-page section.
type Placement struct {
	StoreID          uint64  `json:"store_id"`
	StoreName        string  `json:"store_name"`
	Plan             string  `json:"plan"`
	ProductID        uint64  `json:"product_id"`
	ProductName      string  `json:"product_name"`
	Category         string  `json:"category"`
	PriceCents       int64   `json:"price_cents"`
	CalculatedWeight float64 `json:"calculated_weight"`
}

// Distribution is the full home-page highlight layout.
type Distribution struct {
	Sections      map[string][]Placement `json:"highlights"`
	TotalSections int                    `json:"total_sections"`
}

// candidate pairs a product with its store's ranking inputs.
type candidate struct {
	store     *models.Store
	product   *models.Product
	weight    float64
	lastShown time.Time
}

// Engine produces the fairness-adjusted section layout. It is a pure read:
// no invocation mutates any row.
type Engine struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewEngine constructs an Engine. A nil nowFn defaults to time.Now.
func NewEngine(db *gorm.DB, nowFn func() time.Time) *Engine {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{db: db, nowFn: nowFn}
}

// CalculatedWeight applies the impression penalty to a base weight. A zero
// base defaults to 1. The result is always at least minCalculatedWeight.
func CalculatedWeight(baseWeight float64, totalImpressions int64) float64 {
	if baseWeight <= 0 {
		baseWeight = 1
	}
	penalty := float64(totalImpressions) / impressionPenaltyDivisor
	if penalty > maxImpressionPenalty {
		penalty = maxImpressionPenalty
	}
	weight := baseWeight - penalty
	if weight < minCalculatedWeight {
		weight = minCalculatedWeight
	}
	return weight
}

// Distribute builds the section layout for one home-page request. Tiers are
// processed in configuration order, so higher tiers fill their sections
// first; a product eligible for several sections may appear in each.
func (e *Engine) Distribute(ctx context.Context) (Distribution, error) {
	now := e.nowFn().UTC()

	var configs []models.HighlightConfiguration
	if errFind := e.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order DESC, id ASC").
		Find(&configs).Error; errFind != nil {
		return Distribution{}, fmt.Errorf("highlight: load configurations: %w", errFind)
	}

	candidates, errLoad := e.loadCandidates(ctx)
	if errLoad != nil {
		return Distribution{}, errLoad
	}

	sections := make(map[string][]Placement)
	caps := make(map[string]int)

	for i := range configs {
		config := &configs[i]
		tierCandidates := filterTier(candidates, config.PlanType, now)
		rankCandidates(tierCandidates)

		sectionDefs, errDecode := decodeSections(config.Sections)
		if errDecode != nil {
			return Distribution{}, fmt.Errorf("highlight: configuration %s: %w", config.PlanType, errDecode)
		}

		for _, def := range sectionDefs {
			if def.Name == "" {
				continue
			}
			take := def.Slots
			if take <= 0 || take > len(tierCandidates) {
				take = len(tierCandidates)
			}
			for _, cand := range tierCandidates[:take] {
				sections[def.Name] = append(sections[def.Name], placementFrom(cand))
			}
			if def.MaxDisplay > 0 {
				if limit, ok := caps[def.Name]; !ok || def.MaxDisplay > limit {
					caps[def.Name] = def.MaxDisplay
				}
			}
		}
	}

	for name, entries := range sections {
		diversified := diversify(entries)
		if limit, ok := caps[name]; ok && len(diversified) > limit {
			diversified = diversified[:limit]
		}
		sections[name] = diversified
	}

	return Distribution{Sections: sections, TotalSections: len(sections)}, nil
}

// loadCandidates joins active products with their open stores, newest
// products first.
func (e *Engine) loadCandidates(ctx context.Context) ([]candidate, error) {
	var stores []models.Store
	if errFind := e.db.WithContext(ctx).Where("is_open = ?", true).Find(&stores).Error; errFind != nil {
		return nil, fmt.Errorf("highlight: load stores: %w", errFind)
	}
	storesByID := make(map[uint64]*models.Store, len(stores))
	for i := range stores {
		storesByID[stores[i].ID] = &stores[i]
	}

	var products []models.Product
	if errFind := e.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Find(&products).Error; errFind != nil {
		return nil, fmt.Errorf("highlight: load products: %w", errFind)
	}

	out := make([]candidate, 0, len(products))
	for i := range products {
		product := &products[i]
		store, ok := storesByID[product.StoreID]
		if !ok {
			continue
		}
		lastShown := time.Time{}
		if store.LastHighlightedAt != nil {
			lastShown = *store.LastHighlightedAt
		}
		out = append(out, candidate{
			store:     store,
			product:   product,
			weight:    CalculatedWeight(store.HighlightWeight, store.TotalHighlightImpressions),
			lastShown: lastShown,
		})
	}
	return out, nil
}

// filterTier selects candidates whose store belongs to the given tier. The
// synthetic trial tier matches on the trial overlay rather than the plan.
func filterTier(candidates []candidate, tier string, now time.Time) []candidate {
	out := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		if tier == models.TierTrial {
			if cand.store.TrialActive(now) {
				out = append(out, cand)
			}
			continue
		}
		if cand.store.SubscriptionPlan == tier {
			out = append(out, cand)
		}
	}
	return out
}

// rankCandidates orders a tier's candidates: when two stores' last-shown
// times differ by more than the fairness gap the staler one wins, otherwise
// the higher calculated weight wins.
func rankCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		gap := a.lastShown.Sub(b.lastShown)
		if gap < 0 {
			gap = -gap
		}
		if gap > recencyFairnessGap {
			return a.lastShown.Before(b.lastShown)
		}
		return a.weight > b.weight
	})
}

// diversify reorders a section so no two adjacent entries share a store when
// an alternative exists. Category is the tie-break dimension.
func diversify(entries []Placement) []Placement {
	if len(entries) < 3 {
		return entries
	}
	remaining := make([]Placement, len(entries))
	copy(remaining, entries)
	out := make([]Placement, 0, len(entries))

	for len(remaining) > 0 {
		pick := 0
		if len(out) > 0 {
			prev := out[len(out)-1]
			pick = pickNext(remaining, prev)
		}
		out = append(out, remaining[pick])
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return out
}

// pickNext prefers a candidate from a different store and category than the
// previous entry, then a different store, then gives up and takes the head.
func pickNext(remaining []Placement, prev Placement) int {
	for i, cand := range remaining {
		if cand.StoreID != prev.StoreID && cand.Category != prev.Category {
			return i
		}
	}
	for i, cand := range remaining {
		if cand.StoreID != prev.StoreID {
			return i
		}
	}
	return 0
}

// decodeSections parses a configuration's section list.
func decodeSections(raw []byte) ([]models.HighlightSection, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var defs []models.HighlightSection
	if errUnmarshal := json.Unmarshal(raw, &defs); errUnmarshal != nil {
		return nil, errUnmarshal
	}
	return defs, nil
}

func placementFrom(cand candidate) Placement {
	return Placement{
		StoreID:          cand.store.ID,
		StoreName:        cand.store.Name,
		Plan:             cand.store.SubscriptionPlan,
		ProductID:        cand.product.ID,
		ProductName:      cand.product.Name,
		Category:         cand.product.Category,
		PriceCents:       cand.product.PriceCents,
		CalculatedWeight: cand.weight,
	}
}
