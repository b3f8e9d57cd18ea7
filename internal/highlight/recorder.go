package highlight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mercato-local/marketplace/internal/antispam"
	"github.com/mercato-local/marketplace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStoreNotFound indicates the impression targets a missing store.
var ErrStoreNotFound = errors.New("highlight: store not found")

// Recorder appends highlight impressions behind the anti-spam window and
// keeps the per-store exposure counters current.
type Recorder struct {
	db      *gorm.DB
	limiter *antispam.Manager
	nowFn   func() time.Time
}

// NewRecorder constructs a Recorder with default dependencies when nil.
func NewRecorder(db *gorm.DB, limiter *antispam.Manager, nowFn func() time.Time) *Recorder {
	if limiter == nil {
		limiter = antispam.NewManager(nil, nil, nil)
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Recorder{db: db, limiter: limiter, nowFn: nowFn}
}

// Record stores one impression unless the same (store, product, section, ip)
// tuple was already seen inside the suppression window. A suppressed call
// returns recorded=false without error. The impression insert and the store
// counter increment share one transaction; the increment is an atomic SQL
// expression, never a read-modify-write.
//
// Duplicate suppression is enforced twice: by the limiter (fast path) and by
// the unique bucket column on the impression row, which also closes the
// concurrent check-then-act race and survives process restarts.
func (r *Recorder) Record(ctx context.Context, storeID uint64, productID *uint64, section string, viewerID *uint64, ip string) (bool, error) {
	var store models.Store
	if errFind := r.db.WithContext(ctx).Select("id").Take(&store, storeID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return false, ErrStoreNotFound
		}
		return false, fmt.Errorf("highlight: lookup store: %w", errFind)
	}

	now := r.nowFn().UTC()
	key := antispam.Key(storeID, productID, section, ip)

	allowed, errAllow := r.limiter.Allow(ctx, key)
	if errAllow != nil {
		return false, fmt.Errorf("highlight: anti-spam check: %w", errAllow)
	}
	if !allowed.Allowed {
		return false, nil
	}

	row := models.HighlightImpression{
		StoreID:   storeID,
		ProductID: productID,
		Section:   section,
		ViewerID:  viewerID,
		IPAddress: ip,
		Bucket:    antispam.BucketKey(key, now),
		CreatedAt: now,
	}

	recorded := false
	if errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bucket"}},
			DoNothing: true,
		}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another request won the window; nothing to count.
			return nil
		}
		recorded = true
		return tx.Model(&models.Store{}).Where("id = ?", storeID).
			Updates(map[string]any{
				"total_highlight_impressions": gorm.Expr("total_highlight_impressions + ?", 1),
				"last_highlighted_at":         now,
			}).Error
	}); errTx != nil {
		return false, fmt.Errorf("highlight: record impression: %w", errTx)
	}
	return recorded, nil
}
