package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HighlightConfigHandler manages admin CRUD for per-tier section grants.
type HighlightConfigHandler struct {
	db *gorm.DB // Database handle for configuration records.
}

// NewHighlightConfigHandler constructs a highlight configuration handler.
func NewHighlightConfigHandler(db *gorm.DB) *HighlightConfigHandler {
	return &HighlightConfigHandler{db: db}
}

// validTiers lists the tier names a configuration may target.
var validTiers = map[string]struct{}{
	models.PlanFreemium: {},
	models.PlanStart:    {},
	models.PlanPro:      {},
	models.PlanPremium:  {},
	models.TierTrial:    {},
}

// normalizeSections validates and normalizes the sections JSON payload.
func normalizeSections(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON([]byte("[]")), nil
	}

	var defs []models.HighlightSection
	if errUnmarshal := json.Unmarshal(raw, &defs); errUnmarshal != nil {
		return nil, errors.New("invalid sections")
	}
	cleaned := make([]models.HighlightSection, 0, len(defs))
	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		if def.Slots < 0 || def.MaxDisplay < 0 {
			return nil, errors.New("invalid sections")
		}
		cleaned = append(cleaned, models.HighlightSection{Name: name, Slots: def.Slots, MaxDisplay: def.MaxDisplay})
	}
	rawSections, errMarshal := json.Marshal(cleaned)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(rawSections), nil
}

// createHighlightConfigRequest captures the payload for creating a configuration.
type createHighlightConfigRequest struct {
	PlanType  string          `json:"plan_type"`  // Tier name (plan name or "trial").
	Sections  json.RawMessage `json:"sections"`   // Section grant payload.
	SortOrder int             `json:"sort_order"` // Processing order.
	IsActive  *bool           `json:"is_active"`  // Optional active flag.
}

// Create validates input and inserts a configuration.
func (h *HighlightConfigHandler) Create(c *gin.Context) {
	var body createHighlightConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	planType := strings.TrimSpace(body.PlanType)
	if _, ok := validTiers[planType]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_type"})
		return
	}

	sections, errSections := normalizeSections(body.Sections)
	if errSections != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sections"})
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	var existing models.HighlightConfiguration
	if errFind := h.db.WithContext(c.Request.Context()).Where("plan_type = ?", planType).First(&existing).Error; errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "plan_type already configured"})
		return
	}

	now := time.Now().UTC()
	config := models.HighlightConfiguration{
		PlanType:  planType,
		Sections:  sections,
		SortOrder: body.SortOrder,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&config).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create configuration failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatConfig(&config))
}

// List returns all configurations, optionally filtered by active flag.
func (h *HighlightConfigHandler) List(c *gin.Context) {
	activeQ := strings.TrimSpace(c.Query("is_active"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.HighlightConfiguration{})
	if activeQ == "true" || activeQ == "1" {
		q = q.Where("is_active = ?", true)
	} else if activeQ == "false" || activeQ == "0" {
		q = q.Where("is_active = ?", false)
	}

	var rows []models.HighlightConfiguration
	if errFind := q.Order("sort_order DESC, id ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list configurations failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatConfig(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"configurations": out})
}

// Get fetches a configuration by ID.
func (h *HighlightConfigHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var config models.HighlightConfiguration
	if errFind := h.db.WithContext(c.Request.Context()).First(&config, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatConfig(&config))
}

// updateHighlightConfigRequest captures optional fields for updates.
type updateHighlightConfigRequest struct {
	Sections  *json.RawMessage `json:"sections"`   // Optional section grants.
	SortOrder *int             `json:"sort_order"` // Optional processing order.
	IsActive  *bool            `json:"is_active"`  // Optional active flag.
}

// Update validates and applies configuration field updates.
func (h *HighlightConfigHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateHighlightConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var existing models.HighlightConfiguration
	if errFind := h.db.WithContext(c.Request.Context()).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if body.Sections != nil {
		sections, errSections := normalizeSections(*body.Sections)
		if errSections != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sections"})
			return
		}
		updates["sections"] = sections
	}
	if body.SortOrder != nil {
		updates["sort_order"] = *body.SortOrder
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.HighlightConfiguration{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a configuration by ID.
func (h *HighlightConfigHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.HighlightConfiguration{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Enable marks a configuration as active.
func (h *HighlightConfigHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

// Disable marks a configuration as inactive.
func (h *HighlightConfigHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

// setActive toggles the active state for a configuration.
func (h *HighlightConfigHandler) setActive(c *gin.Context, active bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	now := time.Now().UTC()
	res := h.db.WithContext(c.Request.Context()).Model(&models.HighlightConfiguration{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": now})
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

// formatConfig converts a configuration model into a response payload.
func (h *HighlightConfigHandler) formatConfig(cfg *models.HighlightConfiguration) gin.H {
	return gin.H{
		"id":         cfg.ID,
		"plan_type":  cfg.PlanType,
		"sections":   cfg.Sections,
		"sort_order": cfg.SortOrder,
		"is_active":  cfg.IsActive,
		"created_at": cfg.CreatedAt,
		"updated_at": cfg.UpdatedAt,
	}
}
