package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	internaldb "github.com/mercato-local/marketplace/internal/db"
	"github.com/mercato-local/marketplace/internal/models"
	"gorm.io/gorm"
)

// StoreAdminHandler manages admin endpoints over stores.
type StoreAdminHandler struct {
	db *gorm.DB // Database handle for store records.
}

// NewStoreAdminHandler constructs an admin store handler.
func NewStoreAdminHandler(db *gorm.DB) *StoreAdminHandler {
	return &StoreAdminHandler{db: db}
}

// List returns stores with optional name search, plan and trial filters.
func (h *StoreAdminHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Store{})

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := internaldb.NormalizeLikePattern(h.db, "%"+search+"%")
		q = q.Where(internaldb.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}
	if plan := strings.TrimSpace(c.Query("plan")); plan != "" {
		q = q.Where("subscription_plan = ?", plan)
	}
	switch strings.TrimSpace(c.Query("in_trial")) {
	case "true", "1":
		q = q.Where("is_in_trial = ?", true)
	case "false", "0":
		q = q.Where("is_in_trial = ?", false)
	}

	page, pageSize := paginationParams(c)
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count stores failed"})
		return
	}

	var rows []models.Store
	if errFind := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list stores failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatStore(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"stores": out, "total": total, "page": page, "page_size": pageSize})
}

// updateWeightRequest captures the payload for a weight override.
type updateWeightRequest struct {
	Weight *float64 `json:"weight"` // New base weight, 0 to 10.
}

// UpdateWeight overrides a store's base highlight weight.
func (h *StoreAdminHandler) UpdateWeight(c *gin.Context) {
	storeID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("storeId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}
	var body updateWeightRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Weight == nil || *body.Weight < 0 || *body.Weight > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "weight must be between 0 and 10"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Store{}).Where("id = ?", storeID).
		Updates(map[string]any{"highlight_weight": *body.Weight, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "weight": *body.Weight})
}

// Enable opens a store.
func (h *StoreAdminHandler) Enable(c *gin.Context) {
	h.setOpen(c, true)
}

// Disable closes a store, removing it from highlight candidacy.
func (h *StoreAdminHandler) Disable(c *gin.Context) {
	h.setOpen(c, false)
}

// setOpen toggles the open state for a store.
func (h *StoreAdminHandler) setOpen(c *gin.Context, open bool) {
	storeID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("storeId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Store{}).Where("id = ?", storeID).
		Updates(map[string]any{"is_open": open, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// paginationParams parses page and page_size with sane bounds.
func paginationParams(c *gin.Context) (int, int) {
	page := 1
	if parsed, errParse := strconv.Atoi(strings.TrimSpace(c.Query("page"))); errParse == nil && parsed > 0 {
		page = parsed
	}
	pageSize := 20
	if parsed, errParse := strconv.Atoi(strings.TrimSpace(c.Query("page_size"))); errParse == nil && parsed > 0 && parsed <= 100 {
		pageSize = parsed
	}
	return page, pageSize
}

// formatStore converts a store model into an admin response payload.
func (h *StoreAdminHandler) formatStore(s *models.Store) gin.H {
	return gin.H{
		"id":                          s.ID,
		"seller_id":                   s.SellerID,
		"name":                        s.Name,
		"category":                    s.Category,
		"is_open":                     s.IsOpen,
		"subscription_plan":           s.SubscriptionPlan,
		"subscription_status":         s.SubscriptionStatus,
		"is_in_trial":                 s.IsInTrial,
		"trial_used":                  s.TrialUsed,
		"trial_end_date":              s.TrialEndDate,
		"highlight_weight":            s.HighlightWeight,
		"last_highlighted_at":         s.LastHighlightedAt,
		"total_highlight_impressions": s.TotalHighlightImpressions,
		"created_at":                  s.CreatedAt,
	}
}
