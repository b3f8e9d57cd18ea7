package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/models"
	"gorm.io/gorm"
)

// ProductHandler serves seller product endpoints. Creation runs behind the
// plan-limit middleware.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs a product handler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// createProductRequest captures the payload for creating a product.
type createProductRequest struct {
	StoreID     *uint64 `json:"store_id"`    // Optional explicit store.
	Name        string  `json:"name"`        // Product name.
	Description string  `json:"description"` // Product description.
	Category    string  `json:"category"`    // Product category.
	PriceCents  int64   `json:"price_cents"` // Price in cents.
}

// Create inserts a product into the seller's store.
func (h *ProductHandler) Create(c *gin.Context) {
	sellerID := currentSellerID(c)

	var body createProductRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.PriceCents < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price_cents cannot be negative"})
		return
	}

	store, ok := resolveOwnedStore(c, h.db, sellerID, body.StoreID)
	if !ok {
		return
	}

	product := models.Product{
		StoreID:     store.ID,
		Name:        name,
		Description: strings.TrimSpace(body.Description),
		Category:    strings.TrimSpace(body.Category),
		PriceCents:  body.PriceCents,
		IsActive:    true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&product).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create product failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": formatProduct(&product)})
}

// List returns the seller's products for one store.
func (h *ProductHandler) List(c *gin.Context) {
	sellerID := currentSellerID(c)

	store, ok := resolveOwnedStore(c, h.db, sellerID, queryStoreID(c))
	if !ok {
		return
	}

	var products []models.Product
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("store_id = ?", store.ID).
		Order("created_at DESC, id DESC").
		Find(&products).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list products failed"})
		return
	}
	out := make([]gin.H, 0, len(products))
	for i := range products {
		out = append(out, formatProduct(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": out})
}

func formatProduct(p *models.Product) gin.H {
	return gin.H{
		"id":          p.ID,
		"store_id":    p.StoreID,
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price_cents": p.PriceCents,
		"is_active":   p.IsActive,
		"created_at":  p.CreatedAt,
	}
}
