package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/plans"
	"gorm.io/gorm"
)

// PromotionHandler serves seller promotion endpoints. Creation runs behind
// the plan-limit middleware; the flash flag carries its own plan gate.
type PromotionHandler struct {
	db *gorm.DB
}

// NewPromotionHandler constructs a promotion handler.
func NewPromotionHandler(db *gorm.DB) *PromotionHandler {
	return &PromotionHandler{db: db}
}

// createPromotionRequest captures the payload for creating a promotion.
type createPromotionRequest struct {
	StoreID         *uint64   `json:"store_id"`         // Optional explicit store.
	Title           string    `json:"title"`            // Promotion title.
	Description     string    `json:"description"`      // Promotion description.
	DiscountPercent float64   `json:"discount_percent"` // Discount percentage.
	IsFlash         bool      `json:"is_flash"`         // Flash promotion flag.
	StartsAt        time.Time `json:"starts_at"`        // Window start.
	EndsAt          time.Time `json:"ends_at"`          // Window end.
}

// Create inserts a promotion into the seller's store.
func (h *PromotionHandler) Create(c *gin.Context) {
	sellerID := currentSellerID(c)

	var body createPromotionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if body.DiscountPercent <= 0 || body.DiscountPercent > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount_percent must be between 0 and 100"})
		return
	}
	if !body.EndsAt.After(body.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	store, ok := resolveOwnedStore(c, h.db, sellerID, body.StoreID)
	if !ok {
		return
	}

	if body.IsFlash {
		limits := plans.LimitsFor(store.SubscriptionPlan)
		if store.TrialActive(time.Now().UTC()) {
			limits = plans.TrialLimits()
		}
		if !limits.AllowsFlashPromotion {
			c.JSON(http.StatusForbidden, gin.H{
				"success":          false,
				"error":            "flash promotions not included in current plan",
				"suggestedUpgrade": plans.NextAbove(store.SubscriptionPlan),
			})
			return
		}
	}

	promotion := models.Promotion{
		StoreID:         store.ID,
		Title:           title,
		Description:     strings.TrimSpace(body.Description),
		DiscountPercent: body.DiscountPercent,
		IsFlash:         body.IsFlash,
		StartsAt:        body.StartsAt.UTC(),
		EndsAt:          body.EndsAt.UTC(),
		IsActive:        true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&promotion).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create promotion failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "promotion": formatPromotion(&promotion)})
}

// List returns the seller's promotions for one store.
func (h *PromotionHandler) List(c *gin.Context) {
	sellerID := currentSellerID(c)

	store, ok := resolveOwnedStore(c, h.db, sellerID, queryStoreID(c))
	if !ok {
		return
	}

	var promotions []models.Promotion
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("store_id = ?", store.ID).
		Order("created_at DESC, id DESC").
		Find(&promotions).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list promotions failed"})
		return
	}
	out := make([]gin.H, 0, len(promotions))
	for i := range promotions {
		out = append(out, formatPromotion(&promotions[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "promotions": out})
}

func formatPromotion(p *models.Promotion) gin.H {
	return gin.H{
		"id":               p.ID,
		"store_id":         p.StoreID,
		"title":            p.Title,
		"description":      p.Description,
		"discount_percent": p.DiscountPercent,
		"is_flash":         p.IsFlash,
		"starts_at":        p.StartsAt,
		"ends_at":          p.EndsAt,
		"is_active":        p.IsActive,
		"created_at":       p.CreatedAt,
	}
}
