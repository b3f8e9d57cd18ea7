package highlight

import (
	"context"
	"fmt"
	"time"

	"github.com/mercato-local/marketplace/internal/models"

	"gorm.io/gorm"
)

// DailySectionCount is one day's impression total for one section.
type DailySectionCount struct {
	Day     string `json:"day"` // ISO date (YYYY-MM-DD).
	Section string `json:"section"`
	Count   int64  `json:"count"`
}

// DailyImpressionCounts aggregates a store's impressions per day and section
// over the trailing N days. Days with no impressions produce no row.
func DailyImpressionCounts(ctx context.Context, db *gorm.DB, storeID uint64, days int) ([]DailySectionCount, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var rows []DailySectionCount
	if errFind := db.WithContext(ctx).
		Model(&models.HighlightImpression{}).
		Select("DATE(created_at) AS day, section, COUNT(*) AS count").
		Where("store_id = ? AND created_at >= ?", storeID, since).
		Group("DATE(created_at), section").
		Order("day ASC, section ASC").
		Scan(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("highlight: daily counts: %w", errFind)
	}
	return rows, nil
}
