package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mercato-local/marketplace/internal/config"
	handlers "github.com/mercato-local/marketplace/internal/http/api/admin/handlers"
	"github.com/mercato-local/marketplace/internal/models"
	"github.com/mercato-local/marketplace/internal/security"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	storeHandler := handlers.NewStoreAdminHandler(db)
	authed.GET("/stores", storeHandler.List)
	authed.PUT("/highlights/:storeId/weight", storeHandler.UpdateWeight)
	authed.POST("/stores/:storeId/enable", storeHandler.Enable)
	authed.POST("/stores/:storeId/disable", storeHandler.Disable)

	configHandler := handlers.NewHighlightConfigHandler(db)
	authed.POST("/highlight-configs", configHandler.Create)
	authed.GET("/highlight-configs", configHandler.List)
	authed.GET("/highlight-configs/:id", configHandler.Get)
	authed.PUT("/highlight-configs/:id", configHandler.Update)
	authed.DELETE("/highlight-configs/:id", configHandler.Delete)
	authed.POST("/highlight-configs/:id/enable", configHandler.Enable)
	authed.POST("/highlight-configs/:id/disable", configHandler.Disable)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}
