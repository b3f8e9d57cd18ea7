package front

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/config"
	"github.com/mercato-local/marketplace/internal/highlight"
	handlers "github.com/mercato-local/marketplace/internal/http/api/front/handlers"
	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/plans"
	"github.com/mercato-local/marketplace/internal/security"
	"github.com/mercato-local/marketplace/internal/trial"
	"gorm.io/gorm"
)

// Deps bundles the domain collaborators the front surface needs.
type Deps struct {
	Engine    *highlight.Engine
	Recorder  *highlight.Recorder
	Trials    *trial.Manager
	Evaluator *plans.Evaluator
}

// RegisterFrontRoutes registers public and seller routes with middleware.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, deps Deps) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	group.POST("/auth/register", authHandler.Register)
	group.POST("/auth/login", authHandler.Login)

	planHandler := handlers.NewPlanFrontHandler()
	group.GET("/plans", planHandler.List)

	highlightHandler := handlers.NewHighlightHandler(db, deps.Engine, deps.Recorder)
	group.GET("/home-highlights", highlightHandler.Home)
	group.POST("/highlights/impression", optionalSellerMiddleware(jwtCfg), highlightHandler.RecordImpression)

	authed := group.Group("")
	authed.Use(sellerAuthMiddleware(db, jwtCfg))

	authed.GET("/highlights/:storeId/analytics", highlightHandler.Analytics)

	storeHandler := handlers.NewStoreHandler(db, deps.Trials)
	authed.POST("/stores", storeHandler.Create)
	authed.GET("/stores/me", storeHandler.Me)

	trialHandler := handlers.NewTrialHandler(db, deps.Trials)
	authed.GET("/plans/trial/status", trialHandler.Status)
	authed.POST("/plans/trial/start", trialHandler.Start)
	authed.POST("/trial/:storeId/convert", trialHandler.Convert)

	productHandler := handlers.NewProductHandler(db)
	authed.POST("/products", planLimitMiddleware(deps.Evaluator, plans.ResourceProducts), productHandler.Create)
	authed.GET("/products", productHandler.List)

	promotionHandler := handlers.NewPromotionHandler(db)
	authed.POST("/promotions", planLimitMiddleware(deps.Evaluator, plans.ResourcePromotions), promotionHandler.Create)
	authed.GET("/promotions", promotionHandler.List)

	couponHandler := handlers.NewCouponHandler(db)
	authed.POST("/coupons", planLimitMiddleware(deps.Evaluator, plans.ResourceCoupons), couponHandler.Create)
	authed.GET("/coupons", couponHandler.List)
}

// sellerAuthMiddleware validates seller JWTs and loads seller context.
func sellerAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerSellerClaims(c, jwtCfg)
		if !ok {
			return
		}

		var seller models.Seller
		if errFind := db.WithContext(c.Request.Context()).First(&seller, claims.SellerID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "seller not found"})
			return
		}
		if !seller.Active || seller.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("sellerID", seller.ID)
		c.Next()
	}
}

// optionalSellerMiddleware attaches seller identity when a valid token is
// present but never rejects the request.
func optionalSellerMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token != "" && token != authHeader {
			if claims, errJWT := security.ParseSellerToken(jwtCfg.Secret, token); errJWT == nil {
				c.Set("sellerID", claims.SellerID)
			}
		}
		c.Next()
	}
}

// bearerSellerClaims extracts and validates the bearer token, aborting the
// request on failure.
func bearerSellerClaims(c *gin.Context, jwtCfg config.JWTConfig) (*security.SellerClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return nil, false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
		return nil, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
		return nil, false
	}

	claims, errJWT := security.ParseSellerToken(jwtCfg.Secret, token)
	if errJWT != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil, false
	}
	return claims, true
}

// planLimitMiddleware rejects resource creation once the store's plan cap is
// reached. The denial payload carries the counts the UI renders in its
// upgrade prompt. The target store is taken from the JSON body's store_id so
// the check and the handler's insert always land on the same store.
func planLimitMiddleware(evaluator *plans.Evaluator, kind plans.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Get("sellerID")
		sellerID, _ := id.(uint64)

		storeID := peekBodyStoreID(c)

		result, errValidate := evaluator.ValidateResourceLimit(c.Request.Context(), sellerID, storeID, kind)
		if errValidate != nil {
			if errors.Is(errValidate, plans.ErrStoreNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "store not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "plan limit check failed"})
			return
		}
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success":          false,
				"planLimitReached": true,
				"message":          result.Message,
				"currentCount":     result.CurrentCount,
				"maxAllowed":       result.MaxAllowed,
				"suggestedUpgrade": result.UpgradeSuggestion,
			})
			return
		}
		c.Next()
	}
}

// peekBodyStoreID reads the request body's optional store_id field and
// restores the body so the handler can bind it again.
func peekBodyStoreID(c *gin.Context) *uint64 {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	raw, errRead := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if errRead != nil {
		return nil
	}
	var probe struct {
		StoreID *uint64 `json:"store_id"`
	}
	if errUnmarshal := json.Unmarshal(raw, &probe); errUnmarshal != nil {
		return nil
	}
	if probe.StoreID == nil || *probe.StoreID == 0 {
		return nil
	}
	return probe.StoreID
}
