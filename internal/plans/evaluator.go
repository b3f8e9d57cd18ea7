package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mercato-local/marketplace/internal/models"

	"gorm.io/gorm"
)

// ResourceKind identifies a plan-limited resource type.
type ResourceKind string

const (
	ResourceProducts   ResourceKind = "products"
	ResourcePromotions ResourceKind = "promotions"
	ResourceCoupons    ResourceKind = "coupons"
)

// ErrStoreNotFound indicates the caller owns no matching store.
var ErrStoreNotFound = errors.New("plans: store not found")

// ErrUnknownResource indicates an unrecognized resource kind.
var ErrUnknownResource = errors.New("plans: unknown resource kind")

// CheckResult describes the outcome of a plan limit check.
type CheckResult struct {
	Allowed           bool   // Whether the creation may proceed.
	Message           string // Human-readable explanation.
	CurrentCount      int64  // Existing resources of this kind in the store.
	MaxAllowed        int    // Catalog limit (-1 means unlimited).
	UpgradeSuggestion string // Next tier above the effective plan, for UX only.
}

// Evaluator performs read-only plan limit checks against store usage.
type Evaluator struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewEvaluator constructs an Evaluator. A nil nowFn defaults to time.Now.
func NewEvaluator(db *gorm.DB, nowFn func() time.Time) *Evaluator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Evaluator{db: db, nowFn: nowFn}
}

// ValidateResourceLimit resolves the caller's store, determines its effective
// limits, and compares current usage against the catalog cap for the given
// resource kind. The check is read-only; callers create the resource only
// when Allowed is true. The count-then-compare is not atomic: two concurrent
// creations at the boundary can both pass, which is tolerated for a soft
// business limit.
func (e *Evaluator) ValidateResourceLimit(ctx context.Context, sellerID uint64, storeID *uint64, kind ResourceKind) (CheckResult, error) {
	store, errStore := e.resolveStore(ctx, sellerID, storeID)
	if errStore != nil {
		return CheckResult{}, errStore
	}

	now := e.nowFn().UTC()
	limits := LimitsFor(store.SubscriptionPlan)
	if store.TrialActive(now) {
		limits = TrialLimits()
	}

	max, errMax := limitForKind(limits, kind)
	if errMax != nil {
		return CheckResult{}, errMax
	}
	if max == Unlimited {
		return CheckResult{Allowed: true, Message: "unlimited", CurrentCount: 0, MaxAllowed: Unlimited}, nil
	}

	current, errCount := e.countResources(ctx, store.ID, kind)
	if errCount != nil {
		return CheckResult{}, errCount
	}

	if current < int64(max) {
		return CheckResult{Allowed: true, Message: "within plan limit", CurrentCount: current, MaxAllowed: max}, nil
	}

	return CheckResult{
		Allowed:           false,
		Message:           fmt.Sprintf("%s limit reached for plan %s (%d/%d)", kind, store.SubscriptionPlan, current, max),
		CurrentCount:      current,
		MaxAllowed:        max,
		UpgradeSuggestion: NextAbove(store.SubscriptionPlan),
	}, nil
}

// resolveStore loads the store by explicit ID when given, otherwise the
// first store owned by the seller.
func (e *Evaluator) resolveStore(ctx context.Context, sellerID uint64, storeID *uint64) (*models.Store, error) {
	q := e.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if storeID != nil {
		q = q.Where("id = ?", *storeID)
	} else {
		q = q.Order("id ASC")
	}

	var store models.Store
	if errFind := q.First(&store).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("plans: resolve store: %w", errFind)
	}
	return &store, nil
}

// countResources counts existing rows of a resource kind scoped to the
// store. Promotion and coupon counts are intentionally unbounded by time:
// the monthly-window semantics were never finalized upstream, so the literal
// per-store total is what gets compared.
func (e *Evaluator) countResources(ctx context.Context, storeID uint64, kind ResourceKind) (int64, error) {
	var (
		count int64
		q     *gorm.DB
	)
	switch kind {
	case ResourceProducts:
		q = e.db.WithContext(ctx).Model(&models.Product{})
	case ResourcePromotions:
		q = e.db.WithContext(ctx).Model(&models.Promotion{})
	case ResourceCoupons:
		q = e.db.WithContext(ctx).Model(&models.Coupon{})
	default:
		return 0, ErrUnknownResource
	}
	if errCount := q.Where("store_id = ?", storeID).Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("plans: count %s: %w", kind, errCount)
	}
	return count, nil
}

// limitForKind selects the catalog cap for a resource kind.
func limitForKind(limits Limits, kind ResourceKind) (int, error) {
	switch kind {
	case ResourceProducts:
		return limits.MaxProducts, nil
	case ResourcePromotions:
		return limits.MaxPromotions, nil
	case ResourceCoupons:
		return limits.MaxCouponsPerMonth, nil
	default:
		return 0, ErrUnknownResource
	}
}
