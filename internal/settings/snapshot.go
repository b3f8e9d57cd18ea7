package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mercato-local/marketplace/internal/models"

	"gorm.io/gorm"
)

type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var globalSnapshot atomic.Value

func init() {
	globalSnapshot.Store(snapshot{values: make(map[string]json.RawMessage)})
}

// StoreSettings replaces the in-memory settings snapshot.
func StoreSettings(updatedAt time.Time, rows []models.Setting) {
	next := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" || len(row.Value) == 0 {
			continue
		}
		next[key] = json.RawMessage(append([]byte(nil), row.Value...))
	}
	globalSnapshot.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// Refresh reloads all settings rows into the snapshot.
func Refresh(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("settings: nil db")
	}
	var rows []models.Setting
	if errFind := db.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	StoreSettings(time.Now().UTC(), rows)
	return nil
}

// DBConfigValue returns the raw JSON value for a settings key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	snap := loadSnapshot()
	value, ok := snap.values[key]
	if !ok || len(value) == 0 {
		return nil, false
	}
	return value, true
}

func loadSnapshot() snapshot {
	v := globalSnapshot.Load()
	snap, ok := v.(snapshot)
	if !ok || snap.values == nil {
		return snapshot{values: make(map[string]json.RawMessage)}
	}
	return snap
}
