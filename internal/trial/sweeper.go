package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mercato-local/marketplace/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultSweepInterval is used when settings provide no interval.
const DefaultSweepInterval = time.Hour

// IntervalProvider supplies the current sweep interval snapshot.
type IntervalProvider func() time.Duration

// Sweeper periodically runs the trial notification and expiry sweeps. Both
// sweeps are idempotent per store: every mutation is gated by a precondition
// the mutation itself flips, so re-running against a processed store is a
// no-op.
type Sweeper struct {
	db       *gorm.DB
	notifier Notifier
	interval IntervalProvider
	nowFn    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper constructs a Sweeper with default dependencies when nil.
func NewSweeper(db *gorm.DB, notifier Notifier, interval IntervalProvider, nowFn func() time.Time) *Sweeper {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if interval == nil {
		interval = func() time.Duration { return DefaultSweepInterval }
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Sweeper{db: db, notifier: notifier, interval: interval, nowFn: nowFn}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil || s.db == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()

	log.Infof("trial sweeper started (interval=%s)", s.interval())
}

// Stop cancels the background loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// run executes sweeps until the context is canceled. The interval is re-read
// every tick so settings changes apply without a restart.
func (s *Sweeper) run(ctx context.Context) {
	s.SweepOnce(ctx)
	for {
		interval := s.interval()
		if interval <= 0 {
			interval = DefaultSweepInterval
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single notification + expiry pass. Errors are logged and
// left for the next tick; nothing is retried.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	if errNotify := s.SweepNotifications(ctx); errNotify != nil {
		log.WithError(errNotify).Warn("trial sweeper: notification pass failed")
	}
	if errExpire := s.SweepExpirations(ctx); errExpire != nil {
		log.WithError(errExpire).Warn("trial sweeper: expiry pass failed")
	}
}

// SweepNotifications fires staged notifications for stores still inside
// their trial window. Each stage is delivered at most once per store, gated
// by a per-stage flag recorded on the store row.
func (s *Sweeper) SweepNotifications(ctx context.Context) error {
	now := s.nowFn().UTC()

	var stores []models.Store
	if errFind := s.db.WithContext(ctx).
		Where("is_in_trial = ? AND trial_end_date > ?", true, now).
		Find(&stores).Error; errFind != nil {
		return fmt.Errorf("trial sweep: load active trials: %w", errFind)
	}

	for i := range stores {
		store := &stores[i]
		if store.TrialEndDate == nil {
			continue
		}
		daysRemaining := int(store.TrialEndDate.Sub(now) / (24 * time.Hour))

		sent := decodeSentFlags(store.TrialNotificationsSent)
		changed := false
		for _, threshold := range stageThresholds {
			if daysRemaining > threshold.MaxDaysLeft || sent[threshold.Stage] {
				continue
			}
			if errNotify := s.notifier.Notify(ctx, store, threshold.Stage, daysRemaining); errNotify != nil {
				log.WithError(errNotify).WithField("store_id", store.ID).Warn("trial sweeper: notify failed")
				continue
			}
			sent[threshold.Stage] = true
			changed = true
		}
		if !changed {
			continue
		}

		payload, errMarshal := json.Marshal(sent)
		if errMarshal != nil {
			return fmt.Errorf("trial sweep: marshal flags: %w", errMarshal)
		}
		if errUpdate := s.db.WithContext(ctx).Model(&models.Store{}).
			Where("id = ?", store.ID).
			Updates(map[string]any{"trial_notifications_sent": payload, "updated_at": now}).Error; errUpdate != nil {
			return fmt.Errorf("trial sweep: record flags: %w", errUpdate)
		}
	}
	return nil
}

// SweepExpirations downgrades every store whose trial window has closed.
// This is the only path back to the free tier from a trial; the notification
// flags stay behind as a historical record.
func (s *Sweeper) SweepExpirations(ctx context.Context) error {
	now := s.nowFn().UTC()
	res := s.db.WithContext(ctx).Model(&models.Store{}).
		Where("is_in_trial = ? AND trial_end_date <= ?", true, now).
		Updates(map[string]any{
			"is_in_trial":       false,
			"highlight_weight":  1,
			"subscription_plan": models.PlanFreemium,
			"updated_at":        now,
		})
	if res.Error != nil {
		return fmt.Errorf("trial sweep: expire: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Infof("trial sweeper: downgraded %d expired trial(s)", res.RowsAffected)
	}
	return nil
}

// decodeSentFlags parses the per-stage sent map, tolerating empty payloads.
func decodeSentFlags(raw []byte) map[string]bool {
	sent := make(map[string]bool)
	if len(raw) == 0 {
		return sent
	}
	if errUnmarshal := json.Unmarshal(raw, &sent); errUnmarshal != nil {
		return make(map[string]bool)
	}
	return sent
}
