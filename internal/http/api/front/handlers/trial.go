package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/plans"
	"github.com/mercato-local/marketplace/internal/trial"
	"gorm.io/gorm"
)

// TrialHandler serves trial lifecycle endpoints.
type TrialHandler struct {
	db     *gorm.DB
	trials *trial.Manager
}

// NewTrialHandler constructs a trial handler.
func NewTrialHandler(db *gorm.DB, trials *trial.Manager) *TrialHandler {
	return &TrialHandler{db: db, trials: trials}
}

// Status reports the trial state of the seller's store.
func (h *TrialHandler) Status(c *gin.Context) {
	sellerID := currentSellerID(c)

	status, errStatus := h.trials.StatusFor(c.Request.Context(), sellerID)
	if errStatus != nil {
		if errors.Is(errStatus, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trial status failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"trial_active":    status.Active,
		"trial_used":      status.Used,
		"days_remaining":  status.DaysRemaining,
		"hours_remaining": status.HoursRemaining,
		"ends_at":         status.EndsAt,
		"features": gin.H{
			"max_products":           status.Limits.MaxProducts,
			"max_promotions":         status.Limits.MaxPromotions,
			"max_coupons_per_month":  status.Limits.MaxCouponsPerMonth,
			"allows_flash_promotion": status.Limits.AllowsFlashPromotion,
			"allows_analytics":       status.Limits.AllowsAnalytics,
			"highlight_weight":       status.Limits.HighlightWeight,
		},
	})
}

// startTrialRequest captures the payload for a user-initiated trial.
type startTrialRequest struct {
	PlanID  int     `json:"plan_id"`  // Checkout plan the user intends to trial.
	StoreID *uint64 `json:"store_id"` // Optional explicit store.
}

// Start activates the trial on the seller's store. A consumed trial is a
// rejection, never a window reset. The trial always grants the full premium
// overlay; plan_id records intent and is validated, nothing more.
func (h *TrialHandler) Start(c *gin.Context) {
	sellerID := currentSellerID(c)

	var body startTrialRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if body.PlanID != 0 {
		if _, ok := plans.FromCheckoutID(body.PlanID); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
			return
		}
	}

	store, ok := resolveOwnedStore(c, h.db, sellerID, body.StoreID)
	if !ok {
		return
	}

	activated, errActivate := h.trials.Activate(c.Request.Context(), store.ID)
	if errActivate != nil {
		switch {
		case errors.Is(errActivate, trial.ErrAlreadyUsed):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "trial already used"})
		case errors.Is(errActivate, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "start trial failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "trial started",
		"trial_end_date": activated.TrialEndDate,
		"store":          formatStore(activated),
	})
}

// convertTrialRequest captures the payload for converting a trial to paid.
type convertTrialRequest struct {
	PlanID                 int    `json:"plan_id"`                // Checkout plan identifier (2/3/4).
	StripeSubscriptionID   string `json:"stripe_subscription_id"` // Billing provider subscription.
}

// Convert moves a trial-active store onto a paid plan.
func (h *TrialHandler) Convert(c *gin.Context) {
	sellerID := currentSellerID(c)

	storeID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("storeId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}

	var body convertTrialRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	converted, errConvert := h.trials.ConvertToPaid(c.Request.Context(), sellerID, storeID, body.PlanID, strings.TrimSpace(body.StripeSubscriptionID))
	if errConvert != nil {
		switch {
		case errors.Is(errConvert, trial.ErrInvalidPlan):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		case errors.Is(errConvert, trial.ErrNoActiveTrial):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no active trial for store"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "convert trial failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "trial converted",
		"store":   formatStore(converted),
	})
}
