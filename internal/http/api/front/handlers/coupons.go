package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/models"
	"gorm.io/gorm"
)

// CouponHandler serves seller coupon endpoints. Creation runs behind the
// plan-limit middleware.
type CouponHandler struct {
	db *gorm.DB
}

// NewCouponHandler constructs a coupon handler.
func NewCouponHandler(db *gorm.DB) *CouponHandler {
	return &CouponHandler{db: db}
}

// createCouponRequest captures the payload for creating a coupon.
type createCouponRequest struct {
	StoreID       *uint64    `json:"store_id"`        // Optional explicit store.
	Code          string     `json:"code"`            // Redemption code.
	Type          string     `json:"type"`            // Discount type (flat or percent).
	Value         float64    `json:"value"`           // Discount value.
	MinOrderCents int64      `json:"min_order_cents"` // Minimum order in cents.
	ExpiresAt     *time.Time `json:"expires_at"`      // Optional expiry.
	UsageLimit    int        `json:"usage_limit"`     // Max redemptions (0 unlimited).
}

// Create inserts a coupon into the seller's store.
func (h *CouponHandler) Create(c *gin.Context) {
	sellerID := currentSellerID(c)

	var body createCouponRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(body.Code))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	couponType := strings.TrimSpace(body.Type)
	if couponType != models.CouponTypeFlat && couponType != models.CouponTypePercent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be flat or percent"})
		return
	}
	if body.Value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be positive"})
		return
	}
	if couponType == models.CouponTypePercent && body.Value > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percent value cannot exceed 100"})
		return
	}

	store, ok := resolveOwnedStore(c, h.db, sellerID, body.StoreID)
	if !ok {
		return
	}

	var existing models.Coupon
	if errFind := h.db.WithContext(c.Request.Context()).Where("code = ?", code).First(&existing).Error; errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "coupon code already exists"})
		return
	}

	coupon := models.Coupon{
		StoreID:       store.ID,
		Code:          code,
		Type:          couponType,
		Value:         body.Value,
		MinOrderCents: body.MinOrderCents,
		ExpiresAt:     body.ExpiresAt,
		UsageLimit:    body.UsageLimit,
		IsActive:      true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&coupon).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create coupon failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "coupon": formatCoupon(&coupon)})
}

// List returns the seller's coupons for one store.
func (h *CouponHandler) List(c *gin.Context) {
	sellerID := currentSellerID(c)

	store, ok := resolveOwnedStore(c, h.db, sellerID, queryStoreID(c))
	if !ok {
		return
	}

	var coupons []models.Coupon
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("store_id = ?", store.ID).
		Order("created_at DESC, id DESC").
		Find(&coupons).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list coupons failed"})
		return
	}
	out := make([]gin.H, 0, len(coupons))
	for i := range coupons {
		out = append(out, formatCoupon(&coupons[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "coupons": out})
}

func formatCoupon(cp *models.Coupon) gin.H {
	return gin.H{
		"id":              cp.ID,
		"store_id":        cp.StoreID,
		"code":            cp.Code,
		"type":            cp.Type,
		"value":           cp.Value,
		"min_order_cents": cp.MinOrderCents,
		"expires_at":      cp.ExpiresAt,
		"usage_limit":     cp.UsageLimit,
		"used_count":      cp.UsedCount,
		"is_active":       cp.IsActive,
		"created_at":      cp.CreatedAt,
	}
}
