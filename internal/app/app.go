package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mercato-local/marketplace/internal/antispam"
	"github.com/mercato-local/marketplace/internal/config"
	"github.com/mercato-local/marketplace/internal/db"
	"github.com/mercato-local/marketplace/internal/highlight"
	adminapi "github.com/mercato-local/marketplace/internal/http/api/admin"
	"github.com/mercato-local/marketplace/internal/http/api/front"
	"github.com/mercato-local/marketplace/internal/plans"
	internalsettings "github.com/mercato-local/marketplace/internal/settings"
	"github.com/mercato-local/marketplace/internal/trial"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Environment variables for the first-admin bootstrap.
const (
	EnvAdminUsername = "ADMIN_USERNAME"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// settingsRefreshInterval is how often the settings snapshot is reloaded so
// changes made by another instance become visible without a restart.
const settingsRefreshInterval = time.Minute

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the marketplace API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	if errBootstrap := bootstrapAdminFromEnv(conn); errBootstrap != nil {
		return errBootstrap
	}
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	var initState atomic.Bool
	initState.Store(initialized)

	jwtConfig, _ := config.LoadJWTConfig(configPath)

	limiter := antispam.NewManager(nil, nil, nil)
	engine := highlight.NewEngine(conn, nil)
	recorder := highlight.NewRecorder(conn, limiter, nil)
	trials := trial.NewManager(conn, nil)
	evaluator := plans.NewEvaluator(conn, nil)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	front.RegisterFrontRoutes(router, conn, jwtConfig, front.Deps{
		Engine:    engine,
		Recorder:  recorder,
		Trials:    trials,
		Evaluator: evaluator,
	})
	adminapi.RegisterAdminRoutes(router, conn, jwtConfig)
	registerInitRoutes(router, conn, dsn, &initState)

	sweeper := trial.NewSweeper(conn, nil, sweepIntervalProvider(), nil)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go refreshSettingsLoop(refreshCtx, conn)

	addr := listenAddr(configPath, defaultPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting marketplace server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Error("server shutdown error")
		}
		<-errCh
		return nil
	case errListen := <-errCh:
		if errListen != nil && errListen != http.ErrServerClosed {
			return errListen
		}
		return nil
	}
}

// registerInitRoutes exposes first-run setup endpoints. They stay registered
// but refuse to act once an admin exists.
func registerInitRoutes(router *gin.Engine, conn *gorm.DB, dsn string, initState *atomic.Bool) {
	router.GET("/v0/init/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, InitStatusResponse{Initialized: initState.Load()})
	})
	router.GET("/v0/init/prefill", func(c *gin.Context) {
		if initState.Load() {
			c.JSON(http.StatusOK, gin.H{"locked": true})
			return
		}
		prefill, errPrefill := initPrefillFromDSN(dsn)
		if errPrefill != nil {
			c.JSON(http.StatusOK, gin.H{"locked": true})
			return
		}
		c.JSON(http.StatusOK, struct {
			Locked bool `json:"locked"`
			initPrefill
		}{Locked: false, initPrefill: prefill})
	})
	router.POST("/v0/init/setup", func(c *gin.Context) {
		if ok, errInit := HasAdminInitialized(conn); errInit != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "check admin status failed"})
			return
		} else if ok {
			initState.Store(true)
			c.JSON(http.StatusBadRequest, gin.H{"error": "System already initialized"})
			return
		}

		var req InitRequest
		if errBind := c.ShouldBindJSON(&req); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBind.Error()})
			return
		}

		req.SiteName = strings.TrimSpace(req.SiteName)
		if req.SiteName == "" {
			req.SiteName = internalsettings.DefaultSiteName
		}

		req.AdminUsername = strings.TrimSpace(req.AdminUsername)
		if req.AdminUsername == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Admin username is required"})
			return
		}
		if strings.TrimSpace(req.AdminPassword) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Admin password is required"})
			return
		}
		if len(req.AdminPassword) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters"})
			return
		}

		if errAdmin := CreateAdminUserWithConn(conn, req.AdminUsername, req.AdminPassword, req.SiteName); errAdmin != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create admin: %v", errAdmin)})
			return
		}
		initState.Store(true)
		c.JSON(http.StatusOK, gin.H{"message": "Initialization successful"})
	})
}

// bootstrapAdminFromEnv creates the first admin from environment variables
// when the admins table is empty. A no-op otherwise.
func bootstrapAdminFromEnv(conn *gorm.DB) error {
	username := strings.TrimSpace(os.Getenv(EnvAdminUsername))
	password := os.Getenv(EnvAdminPassword)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	initialized, errInit := HasAdminInitialized(conn)
	if errInit != nil {
		return errInit
	}
	if initialized {
		return nil
	}
	if errCreate := CreateAdminUserWithConn(conn, username, password, internalsettings.DefaultSiteName); errCreate != nil {
		return fmt.Errorf("bootstrap admin: %w", errCreate)
	}
	log.Infof("bootstrapped admin account %q from environment", username)
	return nil
}

// sweepIntervalProvider reads the sweep interval from the settings snapshot
// on every tick.
func sweepIntervalProvider() trial.IntervalProvider {
	return func() time.Duration {
		if seconds, ok := internalsettings.NonNegativeIntValue(internalsettings.TrialSweepIntervalSecondsKey); ok && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return trial.DefaultSweepInterval
	}
}

// refreshSettingsLoop periodically reloads the settings snapshot.
func refreshSettingsLoop(ctx context.Context, conn *gorm.DB) {
	ticker := time.NewTicker(settingsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errRefresh := internalsettings.Refresh(ctx, conn); errRefresh != nil {
				log.WithError(errRefresh).Warn("settings snapshot refresh failed")
			}
		}
	}
}

// listenAddr resolves the listen address from the config file host/port.
func listenAddr(configPath string, defaultPort int) string {
	type fileConfig struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	host := ""
	port := defaultPort
	if data, errRead := os.ReadFile(configPath); errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			host = strings.TrimSpace(cfg.Host)
			if cfg.Port > 0 {
				port = cfg.Port
			}
		}
	}
	if port <= 0 {
		port = 8318
	}
	return fmt.Sprintf("%s:%d", host, port)
}
