package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mercato-local/marketplace/internal/models"
	internalsettings "github.com/mercato-local/marketplace/internal/settings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func autoMigrateModels(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Seller{},
		&models.Store{},
		&models.Product{},
		&models.Promotion{},
		&models.Coupon{},
		&models.HighlightConfiguration{},
		&models.HighlightImpression{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

func seedDefaults(conn *gorm.DB) error {
	if errSeed := ensureStringSetting(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureIntSetting(
		conn,
		internalsettings.TrialSweepIntervalSecondsKey,
		internalsettings.DefaultTrialSweepIntervalSeconds,
	); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureBoolSetting(conn, internalsettings.AntiSpamRedisEnabledKey, false); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureStringSetting(
		conn,
		internalsettings.AntiSpamRedisPrefixKey,
		internalsettings.DefaultAntiSpamRedisPrefix,
	); errSeed != nil {
		return errSeed
	}
	return ensureDefaultHighlightConfigurations(conn)
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrateModels(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errSeed := seedDefaults(conn); errSeed != nil {
		return errSeed
	}

	_ = conn.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`).Error

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_stores_plan_open",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_stores_plan_open
				ON stores (subscription_plan, is_open)
			`,
		},
		{
			name: "idx_stores_trial_sweep",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_stores_trial_sweep
				ON stores (trial_end_date)
				WHERE is_in_trial = true
			`,
		},
		{
			name: "idx_products_store_id_is_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_products_store_id_is_active
				ON products (store_id, is_active)
			`,
		},
		{
			name: "idx_promotions_store_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_promotions_store_id_created_at
				ON promotions (store_id, created_at DESC)
			`,
		},
		{
			name: "idx_coupons_store_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_coupons_store_id_created_at
				ON coupons (store_id, created_at DESC)
			`,
		},
		{
			name: "idx_highlight_impressions_store_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_highlight_impressions_store_id_created_at
				ON highlight_impressions (store_id, created_at DESC)
			`,
		},
		{
			name: "idx_highlight_configurations_active_sort",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_highlight_configurations_active_sort
				ON highlight_configurations (is_active, sort_order DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	// trgmIndex defines trigram and fallback index statements.
	type trgmIndex struct {
		name     string // Logical index name.
		trgmSQL  string // Trigram index SQL.
		lowerSQL string // Lowercase fallback index SQL.
	}
	trgmIndexes := []trgmIndex{
		{
			name: "idx_sellers_email",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_sellers_email_trgm
				ON sellers USING gin (LOWER(email) gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_sellers_email_lower
				ON sellers (LOWER(email))
			`,
		},
		{
			name: "idx_stores_name",
			trgmSQL: `
				CREATE INDEX IF NOT EXISTS idx_stores_name_trgm
				ON stores USING gin (LOWER(name) gin_trgm_ops)
			`,
			lowerSQL: `
				CREATE INDEX IF NOT EXISTS idx_stores_name_lower
				ON stores (LOWER(name))
			`,
		},
	}
	for _, item := range trgmIndexes {
		if errIdx := conn.Exec(item.trgmSQL).Error; errIdx != nil {
			if errLower := conn.Exec(item.lowerSQL).Error; errLower != nil {
				return fmt.Errorf("db: create index %s: %w", item.name, errLower)
			}
		}
	}

	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrateModels(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errSeed := seedDefaults(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_stores_plan_open",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_stores_plan_open
				ON stores (subscription_plan, is_open)
			`,
		},
		{
			name: "idx_stores_trial_sweep",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_stores_trial_sweep
				ON stores (trial_end_date)
				WHERE is_in_trial = true
			`,
		},
		{
			name: "idx_products_store_id_is_active",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_products_store_id_is_active
				ON products (store_id, is_active)
			`,
		},
		{
			name: "idx_promotions_store_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_promotions_store_id_created_at
				ON promotions (store_id, created_at DESC)
			`,
		},
		{
			name: "idx_coupons_store_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_coupons_store_id_created_at
				ON coupons (store_id, created_at DESC)
			`,
		},
		{
			name: "idx_highlight_impressions_store_id_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_highlight_impressions_store_id_created_at
				ON highlight_impressions (store_id, created_at DESC)
			`,
		},
		{
			name: "idx_highlight_configurations_active_sort",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_highlight_configurations_active_sort
				ON highlight_configurations (is_active, sort_order DESC)
			`,
		},
		{
			name: "idx_settings_updated_at_key",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
				ON settings (updated_at DESC, key DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// defaultHighlightConfigurations are the section grants seeded on first run.
// Higher tiers carry a higher sort order so they fill sections first.
func defaultHighlightConfigurations() []models.HighlightConfiguration {
	return []models.HighlightConfiguration{
		{
			PlanType:  models.PlanPremium,
			SortOrder: 50,
			IsActive:  true,
			Sections:  []byte(`[{"name":"featured","slots":4,"max_display":12},{"name":"deals","slots":3,"max_display":10},{"name":"new-arrivals","slots":2,"max_display":10}]`),
		},
		{
			PlanType:  models.PlanPro,
			SortOrder: 40,
			IsActive:  true,
			Sections:  []byte(`[{"name":"featured","slots":3,"max_display":12},{"name":"deals","slots":2,"max_display":10},{"name":"new-arrivals","slots":2,"max_display":10}]`),
		},
		{
			PlanType:  models.TierTrial,
			SortOrder: 30,
			IsActive:  true,
			Sections:  []byte(`[{"name":"featured","slots":2,"max_display":12},{"name":"rising","slots":4,"max_display":8}]`),
		},
		{
			PlanType:  models.PlanStart,
			SortOrder: 20,
			IsActive:  true,
			Sections:  []byte(`[{"name":"deals","slots":2,"max_display":10},{"name":"new-arrivals","slots":2,"max_display":10}]`),
		},
		{
			PlanType:  models.PlanFreemium,
			SortOrder: 10,
			IsActive:  true,
			Sections:  []byte(`[{"name":"new-arrivals","slots":1,"max_display":10}]`),
		},
	}
}

// ensureDefaultHighlightConfigurations seeds per-tier section grants when the
// table is empty. Admin edits are never overwritten.
func ensureDefaultHighlightConfigurations(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.HighlightConfiguration{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: count highlight configurations: %w", errCount)
	}
	if count > 0 {
		return nil
	}
	defaults := defaultHighlightConfigurations()
	if errCreate := conn.Create(&defaults).Error; errCreate != nil {
		return fmt.Errorf("db: seed highlight configurations: %w", errCreate)
	}
	return nil
}

// ensureIntSetting ensures an integer setting exists and defaults when empty.
func ensureIntSetting(conn *gorm.DB, key string, value int) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureRawSetting(conn, key, payload)
}

// ensureBoolSetting ensures a boolean setting exists and defaults when empty.
func ensureBoolSetting(conn *gorm.DB, key string, value bool) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureRawSetting(conn, key, payload)
}

// ensureStringSetting ensures a string setting exists and defaults when empty.
func ensureStringSetting(conn *gorm.DB, key, value string) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	return ensureRawSetting(conn, key, payload)
}

func ensureRawSetting(conn *gorm.DB, key string, payload []byte) error {
	rawValue := datatypes.JSON(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	now := time.Now().UTC()
	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
