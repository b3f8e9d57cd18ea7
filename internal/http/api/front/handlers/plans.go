package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/plans"
)

// PlanFrontHandler serves the public plan catalog.
type PlanFrontHandler struct{}

// NewPlanFrontHandler constructs a plan catalog handler.
func NewPlanFrontHandler() *PlanFrontHandler {
	return &PlanFrontHandler{}
}

// List returns the plan catalog in ascending tier order. The checkout_id is
// the numeric identifier the conversion endpoint accepts.
func (h *PlanFrontHandler) List(c *gin.Context) {
	names := plans.Names()
	out := make([]gin.H, 0, len(names))
	for i, name := range names {
		limits := plans.LimitsFor(name)
		out = append(out, gin.H{
			"name":                   name,
			"checkout_id":            i + 1,
			"max_products":           limits.MaxProducts,
			"max_promotions":         limits.MaxPromotions,
			"max_coupons_per_month":  limits.MaxCouponsPerMonth,
			"allows_flash_promotion": limits.AllowsFlashPromotion,
			"allows_analytics":       limits.AllowsAnalytics,
			"highlight_weight":       limits.HighlightWeight,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plans": out})
}
