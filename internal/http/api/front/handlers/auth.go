package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/config"
	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/security"
	"gorm.io/gorm"
)

// AuthHandler serves seller registration and login.
type AuthHandler struct {
	db     *gorm.DB          // Database handle for seller records.
	jwtCfg config.JWTConfig  // Token signing configuration.
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// registerRequest captures the payload for seller registration.
type registerRequest struct {
	Email    string `json:"email"`    // Login email.
	Password string `json:"password"` // Plaintext password.
	Name     string `json:"name"`     // Display name.
	Phone    string `json:"phone"`    // Contact phone.
}

// Register creates a seller account and returns a signed token.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required"})
		return
	}
	if len(body.Password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	var existing models.Seller
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&existing).Error; errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	hashed, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	seller := models.Seller{
		Email:    email,
		Name:     strings.TrimSpace(body.Name),
		Password: hashed,
		Phone:    strings.TrimSpace(body.Phone),
		Active:   true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&seller).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	token, errSign := security.SignSellerToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, seller.ID)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"seller": gin.H{
			"id":    seller.ID,
			"email": seller.Email,
			"name":  seller.Name,
		},
	})
}

// loginRequest captures the payload for seller login.
type loginRequest struct {
	Email    string `json:"email"`    // Login email.
	Password string `json:"password"` // Plaintext password.
}

// Login authenticates a seller and returns a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	var seller models.Seller
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&seller).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !security.CheckPassword(seller.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !seller.Active || seller.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}

	token, errSign := security.SignSellerToken(h.jwtCfg.Secret, h.jwtCfg.Expiry, seller.ID)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"seller": gin.H{
			"id":    seller.ID,
			"email": seller.Email,
			"name":  seller.Name,
		},
	})
}
