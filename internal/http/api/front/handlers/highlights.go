package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/highlight"
	"github.com/mercato-local/marketplace/internal/plans"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HighlightHandler serves the home-page highlight surface.
type HighlightHandler struct {
	db       *gorm.DB
	engine   *highlight.Engine
	recorder *highlight.Recorder
}

// NewHighlightHandler constructs a highlight handler.
func NewHighlightHandler(db *gorm.DB, engine *highlight.Engine, recorder *highlight.Recorder) *HighlightHandler {
	return &HighlightHandler{db: db, engine: engine, recorder: recorder}
}

// Home returns the fairness-adjusted section layout. Engine failures keep the
// payload shape valid (empty highlights map) so the home page can still
// render, but report the 500.
func (h *HighlightHandler) Home(c *gin.Context) {
	dist, errDistribute := h.engine.Distribute(c.Request.Context())
	if errDistribute != nil {
		log.WithError(errDistribute).Warn("highlight distribution failed, serving empty layout")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "highlights": gin.H{}, "total_sections": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"highlights":     dist.Sections,
		"total_sections": dist.TotalSections,
	})
}

// impressionRequest captures the payload for recording an impression.
type impressionRequest struct {
	StoreID   uint64  `json:"store_id"`   // Shown store.
	ProductID *uint64 `json:"product_id"` // Shown product, if any.
	Section   string  `json:"section"`    // Section name.
}

// RecordImpression stores one view event behind the anti-spam window.
func (h *HighlightHandler) RecordImpression(c *gin.Context) {
	var body impressionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.StoreID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}
	section := strings.TrimSpace(body.Section)
	if section == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section is required"})
		return
	}

	var viewerID *uint64
	if id := currentSellerID(c); id != 0 {
		viewerID = &id
	}

	recorded, errRecord := h.recorder.Record(c.Request.Context(), body.StoreID, body.ProductID, section, viewerID, c.ClientIP())
	if errRecord != nil {
		if errors.Is(errRecord, highlight.ErrStoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
			return
		}
		log.WithError(errRecord).Warn("record impression failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record impression failed"})
		return
	}

	message := "impression recorded"
	if !recorded {
		message = "duplicate ignored"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "recorded": recorded, "message": message})
}

// Analytics returns daily per-section impression counts for an owned store.
// The surface is plan gated: only tiers with advanced analytics (or an active
// trial) may read it.
func (h *HighlightHandler) Analytics(c *gin.Context) {
	sellerID := currentSellerID(c)

	storeID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("storeId")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return
	}
	store, ok := resolveOwnedStore(c, h.db, sellerID, &storeID)
	if !ok {
		return
	}

	limits := plans.LimitsFor(store.SubscriptionPlan)
	if store.TrialActive(time.Now().UTC()) {
		limits = plans.TrialLimits()
	}
	if !limits.AllowsAnalytics {
		c.JSON(http.StatusForbidden, gin.H{
			"success":          false,
			"error":            "advanced analytics not included in current plan",
			"suggestedUpgrade": plans.NextAbove(store.SubscriptionPlan),
		})
		return
	}

	days := 7
	if daysQ := strings.TrimSpace(c.Query("days")); daysQ != "" {
		parsed, errDays := strconv.Atoi(daysQ)
		if errDays != nil || parsed <= 0 || parsed > 90 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
			return
		}
		days = parsed
	}

	counts, errCounts := highlight.DailyImpressionCounts(c.Request.Context(), h.db, store.ID, days)
	if errCounts != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load analytics failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"store_id":          store.ID,
		"days":              days,
		"daily_impressions": counts,
		"total_impressions": store.TotalHighlightImpressions,
	})
}
