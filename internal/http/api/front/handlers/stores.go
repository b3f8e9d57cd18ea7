package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/trial"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StoreHandler serves seller storefront endpoints.
type StoreHandler struct {
	db     *gorm.DB       // Database handle for store records.
	trials *trial.Manager // Trial lifecycle manager.
}

// NewStoreHandler constructs a store handler.
func NewStoreHandler(db *gorm.DB, trials *trial.Manager) *StoreHandler {
	return &StoreHandler{db: db, trials: trials}
}

// createStoreRequest captures the payload for opening a store.
type createStoreRequest struct {
	Name        string `json:"name"`        // Store display name.
	Description string `json:"description"` // Store description.
	Category    string `json:"category"`    // Primary category.
}

// Create opens a new store for the authenticated seller and starts its trial.
func (h *StoreHandler) Create(c *gin.Context) {
	sellerID := currentSellerID(c)

	var body createStoreRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	store := models.Store{
		SellerID:               sellerID,
		Name:                   name,
		Description:            strings.TrimSpace(body.Description),
		Category:               strings.TrimSpace(body.Category),
		IsOpen:                 true,
		SubscriptionPlan:       models.PlanFreemium,
		SubscriptionStatus:     models.SubscriptionStatusNone,
		HighlightWeight:        1,
		TrialNotificationsSent: []byte("{}"),
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&store).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create store failed"})
		return
	}

	// A fresh store gets its trial immediately; failure here downgrades the
	// response but never rolls back the store.
	activated, errTrial := h.trials.Activate(c.Request.Context(), store.ID)
	if errTrial != nil {
		log.WithError(errTrial).WithField("store_id", store.ID).Warn("store created without trial activation")
		c.JSON(http.StatusCreated, gin.H{"success": true, "store": formatStore(&store), "trial_active": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "store": formatStore(activated), "trial_active": true})
}

// Me lists the authenticated seller's stores.
func (h *StoreHandler) Me(c *gin.Context) {
	sellerID := currentSellerID(c)

	var stores []models.Store
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("seller_id = ?", sellerID).
		Order("id ASC").
		Find(&stores).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list stores failed"})
		return
	}
	out := make([]gin.H, 0, len(stores))
	for i := range stores {
		out = append(out, formatStore(&stores[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stores": out})
}

// resolveOwnedStore loads a store by explicit ID when given, otherwise the
// seller's first store.
func resolveOwnedStore(c *gin.Context, db *gorm.DB, sellerID uint64, storeID *uint64) (*models.Store, bool) {
	q := db.WithContext(c.Request.Context()).Where("seller_id = ?", sellerID)
	if storeID != nil {
		q = q.Where("id = ?", *storeID)
	} else {
		q = q.Order("id ASC")
	}

	var store models.Store
	if errFind := q.First(&store).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return nil, false
	}
	return &store, true
}

// queryStoreID parses the optional store_id query parameter.
func queryStoreID(c *gin.Context) *uint64 {
	raw := strings.TrimSpace(c.Query("store_id"))
	if raw == "" {
		return nil
	}
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || id == 0 {
		return nil
	}
	return &id
}

// currentSellerID returns the seller ID stored by the auth middleware.
func currentSellerID(c *gin.Context) uint64 {
	id, _ := c.Get("sellerID")
	sellerID, _ := id.(uint64)
	return sellerID
}

// formatStore converts a store model into a response payload.
func formatStore(s *models.Store) gin.H {
	return gin.H{
		"id":                          s.ID,
		"name":                        s.Name,
		"description":                 s.Description,
		"category":                    s.Category,
		"is_open":                     s.IsOpen,
		"subscription_plan":           s.SubscriptionPlan,
		"subscription_status":         s.SubscriptionStatus,
		"is_in_trial":                 s.IsInTrial,
		"trial_used":                  s.TrialUsed,
		"trial_end_date":              s.TrialEndDate,
		"highlight_weight":            s.HighlightWeight,
		"total_highlight_impressions": s.TotalHighlightImpressions,
		"created_at":                  s.CreatedAt,
	}
}
